package core

import (
	"context"
	"fmt"

	"taskcoach/internal/infra/persistence/memory"
	"taskcoach/internal/infra/persistence/postgres"
	"taskcoach/internal/infra/persistence/sqlite"
	"taskcoach/pkg/domain"
)

// StorageDriver identifies a concrete snapshot store implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite task file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// StorageConfig selects and configures the snapshot store of a document.
type StorageConfig struct {
	Driver StorageDriver `yaml:"driver"`
	// Path is the sqlite task file.
	Path string `yaml:"path"`
	// DSN is the postgres connection string.
	DSN string `yaml:"dsn"`
	// Document names the row set in a shared postgres database.
	Document string `yaml:"document"`
}

// OpenSnapshotStore opens the store described by cfg. An empty driver
// selects sqlite.
func OpenSnapshotStore(ctx context.Context, cfg StorageConfig) (domain.SnapshotStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		store, err := sqlite.NewStore(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoragePostgres:
		store, err := postgres.NewStore(ctx, cfg.DSN, cfg.Document)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
