// Package blob re-exports the blob abstractions and selects a backend. It is
// the only package allowed to import the infra blob implementations.
package blob

import (
	"context"
	"fmt"

	"taskcoach/internal/blob/core"
	"taskcoach/internal/infra/blob/fs"
	"taskcoach/internal/infra/blob/memory"
	"taskcoach/internal/infra/blob/s3"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
	// S3Config configures the S3 driver.
	S3Config = s3.Config
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrNotFound    = core.ErrNotFound
	ErrExists      = core.ErrExists
	ErrUnsupported = core.ErrUnsupported
)

// Config selects and configures a blob backend.
type Config struct {
	Driver Driver   `yaml:"driver"`
	Root   string   `yaml:"root"` // directory of the fs driver
	S3     S3Config `yaml:"s3"`
}

// Open returns the store cfg describes. An empty driver selects fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(cfg.Root)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("blob driver %q: %w", driver, ErrUnsupported)
	}
}

// NewFilesystem returns a store below root.
func NewFilesystem(root string) (Store, error) {
	store, err := fs.New(root)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// NewMemory returns an empty in-memory store.
func NewMemory() Store {
	return memory.New()
}

// NewS3 returns a store on the configured bucket.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	store, err := s3.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// NewS3Mock returns an S3 store backed by an in-process fake transport.
func NewS3Mock() Store {
	return s3.NewMock()
}
