package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"taskcoach/internal/infra/persistence/postgres/testutil"
	"taskcoach/pkg/domain"
)

func openStub(t *testing.T, document string) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	store, err := NewStore(context.Background(), "", document)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, conn
}

func TestNewStoreEnsuresStateTable(t *testing.T) {
	_, conn := openStub(t, "")
	var sawDDL bool
	for _, stmt := range conn.Execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE IF NOT EXISTS TASKCOACH_STATE") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("expected state table DDL, got execs: %v", conn.Execs)
	}
}

func TestSaveAndLoadPerDocument(t *testing.T) {
	ctx := context.Background()
	work, conn := openStub(t, "work")
	home := &Store{db: work.db, document: "home"}

	if err := work.Save(ctx, domain.Snapshot{Tasks: []domain.TaskRecord{{ObjectRecord: domain.ObjectRecord{ID: "w1", Subject: "Ship release"}}}}); err != nil {
		t.Fatalf("save work: %v", err)
	}
	if err := home.Save(ctx, domain.Snapshot{Tasks: []domain.TaskRecord{{ObjectRecord: domain.ObjectRecord{ID: "h1", Subject: "Water plants"}}}}); err != nil {
		t.Fatalf("save home: %v", err)
	}
	if err := work.Save(ctx, domain.Snapshot{Tasks: []domain.TaskRecord{{ObjectRecord: domain.ObjectRecord{ID: "w1", Subject: "Ship release 2"}}}}); err != nil {
		t.Fatalf("resave work: %v", err)
	}
	if rows := len(conn.Tables[stateTable]); rows != 2*5 {
		t.Fatalf("expected one row per document and bucket, got %d", rows)
	}

	got, err := work.Load(ctx)
	if err != nil {
		t.Fatalf("load work: %v", err)
	}
	if len(got.Tasks) != 1 || got.Tasks[0].Subject != "Ship release 2" {
		t.Fatalf("unexpected work tasks: %+v", got.Tasks)
	}
	got, err = home.Load(ctx)
	if err != nil {
		t.Fatalf("load home: %v", err)
	}
	if len(got.Tasks) != 1 || got.Tasks[0].ID != "h1" {
		t.Fatalf("unexpected home tasks: %+v", got.Tasks)
	}
}

func TestSaveErrors(t *testing.T) {
	ctx := context.Background()
	store, conn := openStub(t, "doc")

	conn.FailBegin = true
	if err := store.Save(ctx, domain.Snapshot{}); err == nil {
		t.Fatalf("expected begin failure")
	}
	conn.FailBegin = false

	conn.FailTables = map[string]bool{stateTable: true}
	if err := store.Save(ctx, domain.Snapshot{}); err == nil || !strings.Contains(err.Error(), "upsert tasks") {
		t.Fatalf("expected upsert failure, got %v", err)
	}
	if _, err := store.Load(ctx); err == nil {
		t.Fatalf("expected select failure")
	}
	conn.FailTables = nil

	conn.FailCommit = true
	if err := store.Save(ctx, domain.Snapshot{}); err == nil || !strings.Contains(err.Error(), "commit") {
		t.Fatalf("expected commit failure, got %v", err)
	}
}

func TestLoadPropagatesRowsError(t *testing.T) {
	ctx := context.Background()
	store, conn := openStub(t, "doc")
	if err := store.Save(ctx, domain.Snapshot{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	sentinel := errors.New("rows broke")
	conn.RowsErr = sentinel
	if _, err := store.Load(ctx); !errors.Is(err, sentinel) {
		t.Fatalf("expected rows error, got %v", err)
	}
}

func TestNewStorePingFailure(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(context.Background(), "postgres://example", "doc"); err == nil || !strings.Contains(err.Error(), "ping") {
		t.Fatalf("expected ping failure, got %v", err)
	}
}
