package view

import (
	"slices"
	"testing"
	"time"

	"taskcoach/internal/command"
	"taskcoach/pkg/domain"
)

func TestSorterAnnouncesOnlyActualReorders(t *testing.T) {
	doc, h := newTestDocument(t)
	b := newTask(t, h, "B")
	a := newTask(t, h, "A")

	counter := &sortedCounter{}
	sub := doc.Bus().Subscribe(counter.handle, domain.EventSorted)
	defer sub.Close()

	s := NewSorter(doc, NewList(doc, domain.TaskListID))
	defer s.Close()
	if got := s.Items(); !slices.Equal(got, []domain.ID{a, b}) {
		t.Fatalf("expected [A B], got %v", got)
	}
	if counter.calls != 1 || !slices.Equal(counter.last, []domain.ID{a, b}) {
		t.Fatalf("expected one sorted notification with the new order, got %d %v", counter.calls, counter.last)
	}

	s.Reset()
	run(t, h, command.NewEditDescription([]domain.ID{a}, "no effect on the order"))
	if counter.calls != 1 {
		t.Fatalf("expected no notification without a reorder, got %d", counter.calls)
	}

	run(t, h, command.NewEditSubject([]domain.ID{a}, "C"))
	if got := s.Items(); !slices.Equal(got, []domain.ID{b, a}) || counter.calls != 2 {
		t.Fatalf("expected reorder after subject change, got %v after %d notifications", got, counter.calls)
	}
	if err := h.Undo(t.Context()); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if got := s.Items(); !slices.Equal(got, []domain.ID{a, b}) || counter.calls != 3 {
		t.Fatalf("expected undo to restore the order, got %v after %d notifications", got, counter.calls)
	}
}

func TestSorterFollowsMembership(t *testing.T) {
	doc, h := newTestDocument(t)
	m := newTask(t, h, "m")
	s := NewSorter(doc, NewList(doc, domain.TaskListID))
	defer s.Close()

	a := newTask(t, h, "a")
	if got := s.Items(); !slices.Equal(got, []domain.ID{a, m}) {
		t.Fatalf("expected new task sorted in, got %v", got)
	}
	run(t, h, command.NewDelete([]domain.ID{a}))
	if got := s.Items(); !slices.Equal(got, []domain.ID{m}) {
		t.Fatalf("expected deleted task to leave, got %v", got)
	}
}

func TestSortByMovesSubscriptions(t *testing.T) {
	doc, h := newTestDocument(t)
	low := newTask(t, h, "a", command.WithPriority(1))
	high := newTask(t, h, "b", command.WithPriority(5))

	s := NewSorter(doc, NewList(doc, domain.TaskListID), WithDescending())
	if got := s.Items(); !slices.Equal(got, []domain.ID{high, low}) {
		t.Fatalf("expected descending subjects, got %v", got)
	}
	if doc.Bus().Count(domain.EventSubject) != 1 || doc.Bus().Count(domain.EventPriority) != 0 {
		t.Fatalf("expected a subject subscription only")
	}

	s.SortBy(ByPriority)
	if doc.Bus().Count(domain.EventSubject) != 0 || doc.Bus().Count(domain.EventPriority) != 1 {
		t.Fatalf("expected the subscription to follow the sort key")
	}
	s.SetAscending(true)
	if got := s.Items(); !slices.Equal(got, []domain.ID{low, high}) {
		t.Fatalf("expected ascending priorities, got %v", got)
	}
	run(t, h, command.NewMaxPriority([]domain.ID{low}))
	if got := s.Items(); !slices.Equal(got, []domain.ID{high, low}) {
		t.Fatalf("expected priority change to reorder, got %v", got)
	}

	s.SortBy("nonsense")
	if s.Key() != BySubject {
		t.Fatalf("expected unknown keys to fall back to subject, got %s", s.Key())
	}

	s.Close()
	s.Close()
	if doc.Bus().Count(domain.EventSubject) != 0 || doc.Bus().Count(domain.EventItemsAdded) != 0 {
		t.Fatalf("expected close to drop every subscription")
	}
}

func TestSorterCaseSensitivity(t *testing.T) {
	doc, h := newTestDocument(t)
	lower := newTask(t, h, "a")
	upper := newTask(t, h, "B")
	c := newTask(t, h, "c")

	s := NewSorter(doc, NewList(doc, domain.TaskListID))
	defer s.Close()
	if got := s.Items(); !slices.Equal(got, []domain.ID{upper, lower, c}) {
		t.Fatalf("expected code point order, got %v", got)
	}
	s.SetCaseSensitive(false)
	if got := s.Items(); !slices.Equal(got, []domain.ID{lower, upper, c}) {
		t.Fatalf("expected collated order, got %v", got)
	}
}

func TestSorterTreeMode(t *testing.T) {
	doc, h := newTestDocument(t)
	z := newTask(t, h, "z")
	b := newSubTask(t, h, z, "b")
	a := newSubTask(t, h, z, "a")
	m := newTask(t, h, "m")

	s := NewSorter(doc, NewList(doc, domain.TaskListID))
	defer s.Close()
	if got := s.Items(); !slices.Equal(got, []domain.ID{a, b, m, z}) {
		t.Fatalf("expected flat order, got %v", got)
	}
	s.SetTreeMode(true)
	if got := s.Items(); !slices.Equal(got, []domain.ID{m, z, a, b}) {
		t.Fatalf("expected children under their parent, got %v", got)
	}
	run(t, h, command.NewDragAndDrop([]domain.ID{a}, m))
	if got := s.Items(); !slices.Equal(got, []domain.ID{m, a, z, b}) {
		t.Fatalf("expected moved child under its new parent, got %v", got)
	}
}

func TestSorterPutsUnsetDatesLast(t *testing.T) {
	doc, h := newTestDocument(t)
	none := newTask(t, h, "none")
	later := newTask(t, h, "later", command.WithDue(testNow.Add(48*time.Hour)))
	sooner := newTask(t, h, "sooner", command.WithDue(testNow.Add(time.Hour)))

	s := NewSorter(doc, NewList(doc, domain.TaskListID), WithSortKey(ByDue))
	defer s.Close()
	if got := s.Items(); !slices.Equal(got, []domain.ID{sooner, later, none}) {
		t.Fatalf("expected unset due dates last, got %v", got)
	}
}

// countingSource is a fixed source that counts how often it is read.
type countingSource struct {
	id    domain.ID
	reads int
}

func (c *countingSource) ID() domain.ID { return c.id }

func (c *countingSource) Items() []domain.ID {
	c.reads++
	return nil
}

func (c *countingSource) Changes() []domain.EventType {
	return []domain.EventType{domain.EventItemsAdded, domain.EventItemsRemoved, domain.EventSorted, domain.EventDeleted}
}

func TestViewsIgnoreMembershipChangesOfOtherSources(t *testing.T) {
	doc, _ := newTestDocument(t)
	src := &countingSource{id: "upstream"}
	s := NewSorter(doc, src)
	defer s.Close()
	base := src.reads

	publish := func(source domain.ID, typ domain.EventType, payload domain.Payload) {
		ev := domain.NewEvent()
		ev.AddSource(source, typ, payload)
		doc.Bus().Publish(ev)
	}
	publish(domain.TaskListID, domain.EventItemsAdded, domain.Delta[domain.ID]{Added: []domain.ID{"x"}})
	publish(domain.CategoryListID, domain.EventItemsRemoved, domain.Delta[domain.ID]{Removed: []domain.ID{"y"}})
	publish("another view", domain.EventSorted, domain.Value[[]domain.ID]{New: []domain.ID{"x"}})
	if src.reads != base {
		t.Fatalf("expected changes of other sources to be ignored, got %d resets", src.reads-base)
	}

	publish(src.id, domain.EventItemsAdded, domain.Delta[domain.ID]{Added: []domain.ID{"x"}})
	publish(src.id, domain.EventSorted, domain.Value[[]domain.ID]{New: []domain.ID{"x"}})
	if src.reads != base+2 {
		t.Fatalf("expected the source's own changes to reset the view, got %d resets", src.reads-base)
	}

	publish("x", domain.EventDeleted, domain.Value[bool]{New: true})
	if src.reads != base+3 {
		t.Fatalf("expected a deletion from any item to reset the view, got %d resets", src.reads-base)
	}
}
