package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"taskcoach/internal/backup"
	"taskcoach/internal/blob"
	"taskcoach/internal/config"
	"taskcoach/internal/core"
)

// app carries what the subcommands share once the configuration is loaded.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	tracePath  string

	cfg    config.Config
	logger *slog.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	registry *prometheus.Registry
	expvar   *core.ExpvarMetricsRecorder
	closers  []io.Closer
}

// load reads the configuration and applies the command line overrides.
func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(a.stderr, cfg.Log.Level, cfg.Log.Format)
	return nil
}

func (a *app) metrics() core.MetricsRecorder {
	switch a.cfg.Metrics.Backend {
	case "prometheus":
		a.registry = prometheus.NewRegistry()
		return core.NewPrometheusMetricsRecorder(a.registry)
	case "expvar":
		a.expvar = core.NewExpvarMetricsRecorder("")
		return a.expvar
	default:
		return nil
	}
}

func (a *app) backups(ctx context.Context) (*backup.Manager, error) {
	store, err := blob.Open(ctx, a.cfg.Backup.Blob)
	if err != nil {
		return nil, fmt.Errorf("open backup store: %w", err)
	}
	return backup.NewManager(store,
		backup.WithKeep(a.cfg.Backup.Keep),
		backup.WithPrefix(a.cfg.Backup.Prefix),
		backup.WithLogger(a.logger),
	), nil
}

// openDocument opens the configured document with metrics, tracing and,
// when enabled, backups on save.
func (a *app) openDocument(ctx context.Context) (*core.Document, error) {
	store, err := core.OpenSnapshotStore(ctx, a.cfg.Storage)
	if err != nil {
		return nil, err
	}
	opts := []core.Option{
		core.WithName(a.cfg.Document),
		core.WithLogger(a.logger),
		core.WithSettings(a.cfg.Settings.Core()),
		core.WithMetricsRecorder(a.metrics()),
	}
	if a.tracePath != "" {
		f, err := os.OpenFile(a.tracePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("open trace file: %w", err)
		}
		a.closers = append(a.closers, f)
		opts = append(opts, core.WithTracer(core.NewJSONTracer(f)))
	}
	if a.cfg.Backup.Enabled {
		m, err := a.backups(ctx)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		opts = append(opts, core.WithBackups(m))
	}
	doc, err := core.OpenDocument(ctx, store, opts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	a.closers = append(a.closers, doc)
	return doc, nil
}

// close releases documents and files and logs the collected metrics.
func (a *app) close() {
	if a.registry != nil {
		if families, err := a.registry.Gather(); err == nil {
			for _, mf := range families {
				a.logger.Info("metric", "name", mf.GetName(), "series", len(mf.GetMetric()))
			}
		}
	}
	if a.expvar != nil {
		snap := a.expvar.Snapshot()
		a.logger.Info("metrics", "results", snap.Results, "durations_ms", snap.DurationsMS)
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close", "error", err)
		}
	}
	a.closers = nil
}
