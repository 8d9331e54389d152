package core

import (
	"context"
	"path/filepath"
	"testing"

	"taskcoach/internal/infra/persistence/memory"
	"taskcoach/internal/infra/persistence/sqlite"
)

func TestOpenSnapshotStoreDefaultsToSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")
	store, err := OpenSnapshotStore(context.Background(), StorageConfig{Path: path})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()
	s, ok := store.(*sqlite.Store)
	if !ok {
		t.Fatalf("expected *sqlite.Store, got %T", store)
	}
	if s.Path() != path {
		t.Fatalf("expected path %s, got %s", path, s.Path())
	}
}

func TestOpenSnapshotStoreMemory(t *testing.T) {
	store, err := OpenSnapshotStore(context.Background(), StorageConfig{Driver: StorageMemory})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected *memory.Store, got %T", store)
	}
}

func TestOpenSnapshotStoreUnknownDriver(t *testing.T) {
	if _, err := OpenSnapshotStore(context.Background(), StorageConfig{Driver: "mongo"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
