// Package sqlite persists document snapshots to a SQLite file, one JSON
// payload per bucket, and guards the file with an exclusive lock.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/gofrs/flock"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"taskcoach/internal/infra/persistence/memory"
	"taskcoach/pkg/domain"
)

// Compile-time contract assertion ensuring Store satisfies the domain interface.
var _ domain.SnapshotStore = (*Store)(nil)

// ErrLocked is returned when another process holds the task file.
var ErrLocked = errors.New("task file is locked by another process")

const stateTable = "state"

var builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// Store saves snapshots to a single SQLite table.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
	mu   sync.Mutex
	path string
}

// NewStore opens or creates the SQLite file at path and locks it for the
// lifetime of the store.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "taskcoach.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("open %s: %w", path, ErrLocked)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &Store{db: db, lock: lock, path: path}, nil
}

// Load reads the snapshot; an empty file yields an empty snapshot.
func (s *Store) Load(ctx context.Context) (domain.Snapshot, error) {
	query, args, err := builder.Select("bucket", "payload").From(stateTable).ToSql()
	if err != nil {
		return domain.Snapshot{}, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var snap domain.Snapshot
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return domain.Snapshot{}, fmt.Errorf("scan: %w", err)
		}
		if err := memory.DecodeBucket(&snap, bucket, payload); err != nil {
			return domain.Snapshot{}, err
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Snapshot{}, fmt.Errorf("iterate state: %w", err)
	}
	return snap, nil
}

// Save replaces every bucket in one SQL transaction.
func (s *Store) Save(ctx context.Context, snapshot domain.Snapshot) (retErr error) {
	data, err := memory.EncodeBuckets(snapshot)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range memory.Buckets {
		query, args, err := builder.Insert(stateTable).
			Columns("bucket", "payload").
			Values(bucket, data[bucket]).
			Suffix("ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload").
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	return tx.Commit()
}

// Close closes the database and releases the file lock.
func (s *Store) Close() error {
	err := s.db.Close()
	if uerr := s.lock.Unlock(); err == nil {
		err = uerr
	}
	return err
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
