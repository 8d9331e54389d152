package core

import (
	"testing"
	"time"

	"taskcoach/pkg/domain"
)

var testNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func newTestDocument(t *testing.T, opts ...Option) *Document {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	doc := NewDocument(opts...)
	t.Cleanup(func() { _ = doc.Close() })
	return doc
}

// mustRun commits fn and returns the batch it produced.
func mustRun(t *testing.T, doc *Document, fn func(*Transaction) error) *domain.Event {
	t.Helper()
	ev, err := doc.Run(t.Context(), "test", fn)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return ev
}

// addTask inserts a task whose subject is its id, under parent when set.
func addTask(t *testing.T, doc *Document, id, parent domain.ID) {
	t.Helper()
	mustRun(t, doc, func(tx *Transaction) error {
		task := domain.NewTask(id, string(id), testNow)
		if parent != "" {
			task.Tree().SetParent(nil, id, parent)
		}
		return tx.Insert(task, -1)
	})
}

func viewTask(t *testing.T, doc *Document, id domain.ID) *domain.Task {
	t.Helper()
	var task *domain.Task
	if err := doc.View(func(v View) error {
		var err error
		task, err = v.Task(id)
		return err
	}); err != nil {
		t.Fatalf("view task %s: %v", id, err)
	}
	return task
}
