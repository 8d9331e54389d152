package command

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"taskcoach/internal/core"
	"taskcoach/pkg/domain"
)

var testNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func newTestHistory(t *testing.T, opts ...core.Option) (*core.Document, *History) {
	t.Helper()
	opts = append([]core.Option{core.WithClock(func() time.Time { return testNow })}, opts...)
	doc := core.NewDocument(opts...)
	return doc, NewHistory(doc)
}

func mustDo(t *testing.T, h *History, cmd Command) {
	t.Helper()
	applied, err := h.Do(t.Context(), cmd)
	if err != nil {
		t.Fatalf("do %s: %v", cmd.Name(), err)
	}
	if !applied {
		t.Fatalf("expected %s to be applicable", cmd.Name())
	}
}

func mustUndo(t *testing.T, h *History) {
	t.Helper()
	if err := h.Undo(t.Context()); err != nil {
		t.Fatalf("undo: %v", err)
	}
}

func mustRedo(t *testing.T, h *History) {
	t.Helper()
	if err := h.Redo(t.Context()); err != nil {
		t.Fatalf("redo: %v", err)
	}
}

// create runs a command that creates one object and returns its ID.
func create(t *testing.T, h *History, cmd Command) domain.ID {
	t.Helper()
	mustDo(t, h, cmd)
	return cmd.Items()[0]
}

func viewTask(t *testing.T, doc *core.Document, id domain.ID) *domain.Task {
	t.Helper()
	var task *domain.Task
	if err := doc.View(func(v core.View) error {
		var err error
		task, err = v.Task(id)
		return err
	}); err != nil {
		t.Fatalf("view task %s: %v", id, err)
	}
	return task
}

func viewCategory(t *testing.T, doc *core.Document, id domain.ID) *domain.Category {
	t.Helper()
	var cat *domain.Category
	if err := doc.View(func(v core.View) error {
		var err error
		cat, err = v.Category(id)
		return err
	}); err != nil {
		t.Fatalf("view category %s: %v", id, err)
	}
	return cat
}

func liveTasks(t *testing.T, doc *core.Document) []domain.ID {
	t.Helper()
	var ids []domain.ID
	_ = doc.View(func(v core.View) error {
		ids = v.Live(domain.TaskListID)
		return nil
	})
	return ids
}

func subjects(t *testing.T, doc *core.Document, ids []domain.ID) []string {
	t.Helper()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, viewTask(t, doc, id).Subject())
	}
	return out
}

var snapshotOpts = cmp.Options{
	cmpopts.EquateEmpty(),
	cmpopts.SortSlices(func(a, b domain.EffortRecord) bool { return a.ID < b.ID }),
}
