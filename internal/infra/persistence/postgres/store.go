// Package postgres persists document snapshots to PostgreSQL, one JSONB
// payload per document and bucket.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"taskcoach/internal/infra/persistence/memory"
	"taskcoach/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.SnapshotStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	// Default DSN keeps parity with the storage defaults while allowing overrides via env.
	defaultDSN      = "postgres://localhost/taskcoach?sslmode=disable"
	defaultDocument = "taskcoach"
	stateTable      = "taskcoach_state"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
	builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
)

// Store saves the snapshots of one named document. Several documents can
// share a database.
type Store struct {
	db       *sql.DB
	document string
	mu       sync.Mutex
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back
// to defaultDSN) and ensures the state table exists.
func NewStore(ctx context.Context, dsn, document string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	if document == "" {
		document = defaultDocument
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureStateTable(ctx, db); err != nil {
		return nil, err
	}
	return &Store{db: db, document: document}, nil
}

func ensureStateTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS taskcoach_state (
		document TEXT NOT NULL,
		bucket TEXT NOT NULL,
		payload JSONB NOT NULL,
		PRIMARY KEY (document, bucket)
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure state table: %w", err)
	}
	return nil
}

// Load reads the snapshot of the store's document.
func (s *Store) Load(ctx context.Context) (domain.Snapshot, error) {
	query, args, err := builder.Select("bucket", "payload").
		From(stateTable).
		Where(sq.Eq{"document": s.document}).
		ToSql()
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
			return domain.Snapshot{}, fmt.Errorf("scan state: %w", err)
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

// Save upserts every bucket of the document in one SQL transaction.
func (s *Store) Save(ctx context.Context, snapshot domain.Snapshot) error {
	data, err := memory.EncodeBuckets(snapshot)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range memory.Buckets {
		query, args, err := builder.Insert(stateTable).
			Columns("document", "bucket", "payload").
			Values(s.document, bucket, data[bucket]).
			Suffix("ON CONFLICT (document, bucket) DO UPDATE SET payload = EXCLUDED.payload").
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// Close closes the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
