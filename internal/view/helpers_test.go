package view

import (
	"testing"
	"time"

	"taskcoach/internal/command"
	"taskcoach/internal/core"
	"taskcoach/pkg/domain"
)

var testNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func newTestDocument(t *testing.T) (*core.Document, *command.History) {
	t.Helper()
	doc := core.NewDocument(core.WithClock(func() time.Time { return testNow }))
	return doc, command.NewHistory(doc)
}

func run(t *testing.T, h *command.History, cmd command.Command) []domain.ID {
	t.Helper()
	applied, err := h.Do(t.Context(), cmd)
	if err != nil {
		t.Fatalf("do %s: %v", cmd.Name(), err)
	}
	if !applied {
		t.Fatalf("expected %s to be applicable", cmd.Name())
	}
	return cmd.Items()
}

// newTask creates a task and returns its ID.
func newTask(t *testing.T, h *command.History, subject string, opts ...command.ItemOption) domain.ID {
	t.Helper()
	return run(t, h, command.NewTask(subject, opts...))[0]
}

func newSubTask(t *testing.T, h *command.History, parent domain.ID, subject string) domain.ID {
	t.Helper()
	return run(t, h, command.NewSubTask([]domain.ID{parent}, subject))[0]
}

// sortedCounter counts EventSorted notifications from any view.
type sortedCounter struct {
	calls int
	last  []domain.ID
}

func (c *sortedCounter) handle(ev *domain.Event) {
	for _, n := range ev.Notifications(domain.EventSorted) {
		c.calls++
		c.last = n.Payload.(domain.Value[[]domain.ID]).New
	}
}
