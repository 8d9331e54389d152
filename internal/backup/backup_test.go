package backup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"taskcoach/internal/blob"
	"taskcoach/internal/command"
	"taskcoach/internal/core"
	"taskcoach/internal/infra/persistence/memory"
	"taskcoach/pkg/domain"
)

// steppingClock advances one minute per call.
func steppingClock() func() time.Time {
	next := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		now := next
		next = next.Add(time.Minute)
		return now
	}
}

func snapshotWith(subject string) domain.Snapshot {
	return domain.Snapshot{Tasks: []domain.TaskRecord{{ObjectRecord: domain.ObjectRecord{ID: "t1", Subject: subject}}}}
}

func TestBackupPrunesOldest(t *testing.T) {
	for name, store := range map[string]blob.Store{"memory": blob.NewMemory(), "s3": blob.NewS3Mock()} {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			m := NewManager(store, WithKeep(2), WithClock(steppingClock()))
			for _, subject := range []string{"one", "two", "three", "four"} {
				if err := m.Backup(ctx, "todo", snapshotWith(subject)); err != nil {
					t.Fatalf("backup %s: %v", subject, err)
				}
			}
			entries, err := m.List(ctx, "todo")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			var keys []string
			for _, e := range entries {
				keys = append(keys, e.Key)
			}
			want := []string{
				"backups/todo/20240610T120200.000000000Z.json",
				"backups/todo/20240610T120300.000000000Z.json",
			}
			if diff := cmp.Diff(want, keys); diff != "" {
				t.Fatalf("keys mismatch (-want +got):\n%s", diff)
			}
			latest, err := m.Latest(ctx, "todo")
			if err != nil {
				t.Fatalf("latest: %v", err)
			}
			snap, err := m.Load(ctx, latest.Key)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if snap.Tasks[0].Subject != "four" {
				t.Fatalf("latest backup holds %q", snap.Tasks[0].Subject)
			}
		})
	}
}

func TestBackupsAreSeparatedPerDocument(t *testing.T) {
	ctx := context.Background()
	m := NewManager(blob.NewMemory(), WithClock(steppingClock()))
	if err := m.Backup(ctx, "home", snapshotWith("a")); err != nil {
		t.Fatalf("backup: %v", err)
	}
	if err := m.Backup(ctx, "homework", snapshotWith("b")); err != nil {
		t.Fatalf("backup: %v", err)
	}
	entries, err := m.List(ctx, "home")
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one backup of home, got %v %v", entries, err)
	}
	if _, err := m.Latest(ctx, "office"); !errors.Is(err, ErrNoBackups) {
		t.Fatalf("expected ErrNoBackups, got %v", err)
	}
	if err := m.Backup(ctx, "../escape", snapshotWith("c")); err == nil {
		t.Fatalf("expected invalid name error")
	}
}

func TestSaveWritesBackupAndRestoreReloads(t *testing.T) {
	ctx := t.Context()
	m := NewManager(blob.NewMemory(), WithClock(steppingClock()))
	store := memory.NewStore()
	doc := core.NewDocument(core.WithSnapshotStore(store), core.WithBackups(m), core.WithName("todo"))
	h := command.NewHistory(doc)
	cmd := command.NewTask("Write report")
	if _, err := h.Do(ctx, cmd); err != nil {
		t.Fatalf("new task: %v", err)
	}
	if err := doc.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := h.Do(ctx, command.NewEditSubject(cmd.Items(), "Rewrite report")); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := doc.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}

	entries, err := m.List(ctx, "todo")
	if err != nil || len(entries) != 2 {
		t.Fatalf("expected two backups, got %v %v", entries, err)
	}
	if err := m.Restore(ctx, entries[0].Key, store); err != nil {
		t.Fatalf("restore: %v", err)
	}
	restored, err := core.OpenDocument(ctx, store)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	snap := restored.Snapshot()
	if len(snap.Tasks) != 1 || snap.Tasks[0].Subject != "Write report" {
		t.Fatalf("restored %+v", snap.Tasks)
	}
}

func TestRestoreMissingBackup(t *testing.T) {
	m := NewManager(blob.NewMemory())
	err := m.Restore(context.Background(), "backups/todo/none.json", memory.NewStore())
	if !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
