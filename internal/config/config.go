// Package config loads the taskcoach configuration from a YAML file and
// TASKCOACH_* environment variables. Environment values override the file,
// command line flags override both.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"taskcoach/internal/backup"
	"taskcoach/internal/blob"
	"taskcoach/internal/core"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TASKCOACH_"

// Config is the effective configuration of the CLI.
type Config struct {
	Document string             `yaml:"document"`
	Storage  core.StorageConfig `yaml:"storage"`
	Backup   BackupConfig       `yaml:"backup"`
	Settings SettingsConfig     `yaml:"settings"`
	Log      LogConfig          `yaml:"log"`
	Metrics  MetricsConfig      `yaml:"metrics"`
	Shell    ShellConfig        `yaml:"shell"`
}

// BackupConfig configures automatic backups on save.
type BackupConfig struct {
	Enabled bool        `yaml:"enabled"`
	Keep    int         `yaml:"keep"`
	Prefix  string      `yaml:"prefix"`
	Blob    blob.Config `yaml:"blob"`
}

// SettingsConfig mirrors core.Settings.
type SettingsConfig struct {
	DueSoonHours                                int  `yaml:"due_soon_hours"`
	MarkParentCompletedWhenAllChildrenCompleted bool `yaml:"mark_parent_completed_when_all_children_completed"`
}

// Core converts to the document settings.
func (s SettingsConfig) Core() core.Settings {
	return core.Settings{
		DueSoonHours: s.DueSoonHours,
		MarkParentCompletedWhenAllChildrenCompleted: s.MarkParentCompletedWhenAllChildrenCompleted,
	}
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// MetricsConfig selects the metrics recorder.
type MetricsConfig struct {
	Backend string `yaml:"backend"` // none|expvar|prometheus
}

// ShellConfig configures the interactive shell.
type ShellConfig struct {
	Autosave time.Duration `yaml:"autosave"`
}

// Default returns the configuration used when nothing is configured.
func Default() Config {
	settings := core.DefaultSettings()
	return Config{
		Document: "taskcoach",
		Storage:  core.StorageConfig{Driver: core.StorageSQLite, Path: "taskcoach.db"},
		Backup: BackupConfig{
			Keep:   backup.DefaultKeep,
			Prefix: "backups",
			Blob:   blob.Config{Driver: blob.DriverFilesystem, Root: "taskcoach-backups"},
		},
		Settings: SettingsConfig{
			DueSoonHours: settings.DueSoonHours,
			MarkParentCompletedWhenAllChildrenCompleted: settings.MarkParentCompletedWhenAllChildrenCompleted,
		},
		Log:     LogConfig{Level: "warn", Format: "text"},
		Metrics: MetricsConfig{Backend: "none"},
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "taskcoach.yaml"
	}
	return filepath.Join(dir, "taskcoach", "config.yaml")
}

// Load reads path over the defaults and applies the environment. A missing
// file is not an error.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate reports settings the application cannot run with.
func (c Config) Validate() error {
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log format %q: want text or json", c.Log.Format)
	}
	switch c.Metrics.Backend {
	case "", "none", "expvar", "prometheus":
	default:
		return fmt.Errorf("metrics backend %q: want none, expvar or prometheus", c.Metrics.Backend)
	}
	if c.Settings.DueSoonHours < 0 {
		return fmt.Errorf("due_soon_hours must not be negative")
	}
	if c.Document == "" {
		return fmt.Errorf("document name required")
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

type envVar struct {
	name string
	set  func(*Config, string) error
}

var envVars = []envVar{
	{"DOCUMENT", func(c *Config, v string) error { c.Document = v; return nil }},
	{"STORAGE_DRIVER", func(c *Config, v string) error { c.Storage.Driver = core.StorageDriver(v); return nil }},
	{"SQLITE_PATH", func(c *Config, v string) error { c.Storage.Path = v; return nil }},
	{"POSTGRES_DSN", func(c *Config, v string) error { c.Storage.DSN = v; return nil }},
	{"BACKUP_ENABLED", boolVar(func(c *Config) *bool { return &c.Backup.Enabled })},
	{"BACKUP_KEEP", intVar(func(c *Config) *int { return &c.Backup.Keep })},
	{"BLOB_DRIVER", func(c *Config, v string) error { c.Backup.Blob.Driver = blob.Driver(v); return nil }},
	{"BLOB_FS_ROOT", func(c *Config, v string) error { c.Backup.Blob.Root = v; return nil }},
	{"BLOB_S3_BUCKET", func(c *Config, v string) error { c.Backup.Blob.S3.Bucket = v; return nil }},
	{"BLOB_S3_REGION", func(c *Config, v string) error { c.Backup.Blob.S3.Region = v; return nil }},
	{"BLOB_S3_ENDPOINT", func(c *Config, v string) error { c.Backup.Blob.S3.Endpoint = v; return nil }},
	{"BLOB_S3_PATH_STYLE", boolVar(func(c *Config) *bool { return &c.Backup.Blob.S3.PathStyle })},
	{"DUE_SOON_HOURS", intVar(func(c *Config) *int { return &c.Settings.DueSoonHours })},
	{"LOG_LEVEL", func(c *Config, v string) error { c.Log.Level = strings.ToLower(v); return nil }},
	{"LOG_FORMAT", func(c *Config, v string) error { c.Log.Format = strings.ToLower(v); return nil }},
	{"METRICS", func(c *Config, v string) error { c.Metrics.Backend = strings.ToLower(v); return nil }},
	{"AUTOSAVE", func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		c.Shell.Autosave = d
		return nil
	}},
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	for _, ev := range envVars {
		v, ok := lookup(EnvPrefix + ev.name)
		if !ok || v == "" {
			continue
		}
		if err := ev.set(cfg, v); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, ev.name, err)
		}
	}
	return nil
}

func boolVar(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

func intVar(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}
