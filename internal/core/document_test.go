package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskcoach/internal/infra/persistence/memory"
	"taskcoach/pkg/domain"
)

func TestRunPublishesOneEventPerCommit(t *testing.T) {
	doc := newTestDocument(t)
	addTask(t, doc, "t1", "")

	var calls []*domain.Event
	sub := doc.Bus().Subscribe(func(ev *domain.Event) { calls = append(calls, ev) }, domain.EventSubject)
	defer sub.Close()

	mustRun(t, doc, func(tx *Transaction) error {
		task, err := tx.Task("t1")
		if err != nil {
			return err
		}
		task.SetSubject(tx.Event(), "first")
		task.SetSubject(tx.Event(), "second")
		return nil
	})
	if len(calls) != 1 {
		t.Fatalf("expected a single delivery, got %d", len(calls))
	}
	payload, ok := calls[0].Payload("t1", domain.EventSubject)
	if !ok || payload != (domain.Value[string]{New: "second"}) {
		t.Fatalf("expected latest payload to win, got %#v", payload)
	}
}

func TestRunDiscardsStateOnError(t *testing.T) {
	doc := newTestDocument(t)
	published := 0
	sub := doc.Bus().Subscribe(func(*domain.Event) { published++ }, domain.EventItemsAdded)
	defer sub.Close()

	boom := errors.New("boom")
	_, err := doc.Run(context.Background(), "insert", func(tx *Transaction) error {
		if err := tx.Insert(domain.NewTask("t1", "draft", testNow), -1); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if published != 0 {
		t.Fatalf("expected no notification for a failed run")
	}
	err = doc.View(func(v View) error {
		_, err := v.Task("t1")
		return err
	})
	var nf ErrNotFound
	if !errors.As(err, &nf) || nf.ID != "t1" {
		t.Fatalf("expected not found after rollback, got %v", err)
	}
	if doc.Dirty() {
		t.Fatalf("failed run must not dirty the document")
	}
}

func TestRunHonoursCanceledContext(t *testing.T) {
	doc := newTestDocument(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := doc.Run(ctx, "insert", func(tx *Transaction) error {
		return tx.Insert(domain.NewTask("t1", "late", testNow), -1)
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := doc.View(func(v View) error {
		if len(v.Members(domain.TaskListID)) != 0 {
			t.Fatalf("expected no tasks after canceled run")
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestViewHandsOutCopies(t *testing.T) {
	doc := newTestDocument(t)
	addTask(t, doc, "t1", "")
	task := viewTask(t, doc, "t1")
	task.SetSubject(nil, "changed outside")
	if got := viewTask(t, doc, "t1").Subject(); got != "t1" {
		t.Fatalf("expected document unaffected by copy mutation, got %q", got)
	}
}

func TestHandlersMayStartNewRuns(t *testing.T) {
	doc := newTestDocument(t)
	addTask(t, doc, "t1", "")
	sub := doc.Bus().Subscribe(func(ev *domain.Event) {
		for _, src := range ev.Sources(domain.EventSubject) {
			_, _ = doc.Run(context.Background(), "follow-up", func(tx *Transaction) error {
				task, err := tx.Task(src)
				if err != nil {
					return err
				}
				task.SetDescription(tx.Event(), "renamed")
				return nil
			})
		}
	}, domain.EventSubject)
	defer sub.Close()

	mustRun(t, doc, func(tx *Transaction) error {
		task, _ := tx.Task("t1")
		task.SetSubject(tx.Event(), "new")
		return nil
	})
	if got := viewTask(t, doc, "t1").Description(); got != "renamed" {
		t.Fatalf("expected follow-up run to commit, got %q", got)
	}
}

type captureBackups struct {
	names     []string
	snapshots []domain.Snapshot
	err       error
}

func (c *captureBackups) Backup(_ context.Context, name string, snap domain.Snapshot) error {
	c.names = append(c.names, name)
	c.snapshots = append(c.snapshots, snap)
	return c.err
}

func TestSaveAndOpenRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	backups := &captureBackups{}
	doc := newTestDocument(t, WithSnapshotStore(store), WithBackups(backups), WithName("work"))
	addTask(t, doc, "parent", "")
	addTask(t, doc, "child", "parent")
	addTask(t, doc, "gone", "")
	mustRun(t, doc, func(tx *Transaction) error {
		_, err := tx.SetDeleted(true, "gone")
		return err
	})
	if !doc.Dirty() {
		t.Fatalf("expected dirty document before save")
	}
	if err := doc.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	if doc.Dirty() {
		t.Fatalf("expected clean document after save")
	}
	if len(backups.names) != 1 || backups.names[0] != "work" {
		t.Fatalf("expected one backup named work, got %v", backups.names)
	}

	reopened, err := OpenDocument(ctx, store)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := reopened.View(func(v View) error {
		members := v.Members(domain.TaskListID)
		if len(members) != 2 {
			t.Fatalf("expected tombstone excluded, got %v", members)
		}
		if children := v.Children("parent", false); len(children) != 1 || children[0] != "child" {
			t.Fatalf("expected tree restored, got %v", children)
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
	if reopened.Dirty() {
		t.Fatalf("freshly opened document must be clean")
	}
}

func TestSaveFailuresAndBackupErrors(t *testing.T) {
	ctx := context.Background()
	if err := newTestDocument(t).Save(ctx); !errors.Is(err, ErrNoStore) {
		t.Fatalf("expected ErrNoStore, got %v", err)
	}

	store := memory.NewStore()
	backups := &captureBackups{err: errors.New("bucket unavailable")}
	doc := newTestDocument(t, WithSnapshotStore(store), WithBackups(backups))
	addTask(t, doc, "t1", "")
	if err := doc.Save(ctx); err != nil {
		t.Fatalf("backup failure must not fail save: %v", err)
	}
	_ = store.Close()
	addTask(t, doc, "t2", "")
	if err := doc.Save(ctx); !errors.Is(err, memory.ErrClosed) {
		t.Fatalf("expected store error, got %v", err)
	}
	if !doc.Dirty() {
		t.Fatalf("failed save must keep the document dirty")
	}
}

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

type captureTracer struct {
	ended map[string]error
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	return ctx, &captureSpan{tracer: c, op: op}
}

func (s *captureSpan) End(err error) { s.tracer.ended[s.op] = err }

func TestRunObservability(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{ended: map[string]error{}}
	doc := newTestDocument(t, WithMetricsRecorder(metrics), WithTracer(tracer))

	if _, err := doc.Run(context.Background(), "ok", func(*Transaction) error { return nil }); err != nil {
		t.Fatalf("run: %v", err)
	}
	boom := errors.New("boom")
	_, _ = doc.Run(context.Background(), "fails", func(*Transaction) error { return boom })

	want := []metricsCall{{op: "ok", success: true}, {op: "fails", success: false}}
	if len(metrics.calls) != len(want) || metrics.calls[0] != want[0] || metrics.calls[1] != want[1] {
		t.Fatalf("unexpected metrics calls %+v", metrics.calls)
	}
	if err, ok := tracer.ended["ok"]; !ok || err != nil {
		t.Fatalf("expected successful span for ok")
	}
	if err := tracer.ended["fails"]; !errors.Is(err, boom) {
		t.Fatalf("expected failed span for fails, got %v", err)
	}
}

func TestSettingsAreUsedByLaterRuns(t *testing.T) {
	doc := newTestDocument(t)
	if doc.Settings() != DefaultSettings() {
		t.Fatalf("expected default settings")
	}
	doc.SetSettings(Settings{DueSoonHours: 1})
	mustRun(t, doc, func(tx *Transaction) error {
		if tx.Settings().DueSoonHours != 1 {
			t.Fatalf("expected updated settings inside run")
		}
		return nil
	})
}
