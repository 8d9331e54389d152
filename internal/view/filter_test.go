package view

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"taskcoach/internal/command"
	"taskcoach/pkg/domain"
)

func TestSearchPredicate(t *testing.T) {
	doc, h := newTestDocument(t)
	report := newTask(t, h, "Write report")
	mail := newTask(t, h, "Read mail")
	docs := newTask(t, h, "Wrte docs")
	paren := newTask(t, h, "call (urgent)")
	run(t, h, command.NewEditDescription([]domain.ID{mail}, "then write back"))

	cases := []struct {
		name  string
		query *Search
		want  []domain.ID
	}{
		{"empty query", NewSearch(""), []domain.ID{report, mail, docs, paren}},
		{"folded substring", NewSearch("WRITE"), []domain.ID{report}},
		{"match case", NewSearch("write", MatchCase()), nil},
		{"descriptions", NewSearch("write", SearchDescription()), []domain.ID{report, mail}},
		{"regular expression", NewSearch("^r", RegularExpression()), []domain.ID{mail}},
		{"invalid expression as text", NewSearch("(urg", RegularExpression()), []domain.ID{paren}},
		{"typo tolerance", NewSearch("write", Tolerance(1)), []domain.ID{report, docs}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := NewFilter(doc, NewList(doc, domain.TaskListID), tc.query)
			defer f.Close()
			if diff := cmp.Diff(tc.want, f.Items()); diff != "" {
				t.Fatalf("search %q mismatch (-want +got):\n%s", tc.query.Query(), diff)
			}
		})
	}
}

func TestFilterPublishesMembershipChanges(t *testing.T) {
	doc, h := newTestDocument(t)
	task := newTask(t, h, "groceries")
	f := NewFilter(doc, NewList(doc, domain.TaskListID), NewSearch("shop"))
	defer f.Close()

	var deltas []domain.Delta[domain.ID]
	sub := doc.Bus().SubscribeSource(func(ev *domain.Event) {
		for _, typ := range []domain.EventType{domain.EventItemsAdded, domain.EventItemsRemoved} {
			for _, n := range ev.Notifications(typ) {
				deltas = append(deltas, n.Payload.(domain.Delta[domain.ID]))
			}
		}
	}, []domain.ID{f.ID()}, domain.EventItemsAdded, domain.EventItemsRemoved)
	defer sub.Close()

	run(t, h, command.NewEditSubject([]domain.ID{task}, "shopping"))
	if !f.Contains(task) {
		t.Fatalf("expected the renamed task to match")
	}
	if err := h.Undo(t.Context()); err != nil {
		t.Fatalf("undo: %v", err)
	}
	want := []domain.Delta[domain.ID]{{Added: []domain.ID{task}}, {Removed: []domain.ID{task}}}
	if diff := cmp.Diff(want, deltas); diff != "" {
		t.Fatalf("unexpected notifications (-want +got):\n%s", diff)
	}
}

func TestFilterTreeModeKeepsAncestors(t *testing.T) {
	doc, h := newTestDocument(t)
	project := newTask(t, h, "project")
	bug := newSubTask(t, h, project, "fix bug")
	newTask(t, h, "other")

	f := NewFilter(doc, NewList(doc, domain.TaskListID), NewSearch("bug"))
	defer f.Close()
	if got := f.Items(); !slices.Equal(got, []domain.ID{bug}) {
		t.Fatalf("expected only the match, got %v", got)
	}
	f.SetTreeMode(true)
	if got := f.Items(); !slices.Equal(got, []domain.ID{project, bug}) {
		t.Fatalf("expected the parent of the match, got %v", got)
	}

	f.SetPredicate(NewSearch("bug", IncludeParents()))
	f.SetTreeMode(false)
	f.SetPredicate(NewSearch("project", IncludeParents()))
	if got := f.Items(); !slices.Equal(got, []domain.ID{project, bug}) {
		t.Fatalf("expected the child to match through its parent, got %v", got)
	}
}

func TestCategoryPredicate(t *testing.T) {
	doc, h := newTestDocument(t)
	home := run(t, h, command.NewCategory("home"))[0]
	work := run(t, h, command.NewCategory("work"))[0]
	chores := newTask(t, h, "chores", command.WithCategories(home))
	dishes := newSubTask(t, h, chores, "dishes")
	report := newTask(t, h, "report", command.WithCategories(work))
	both := newTask(t, h, "commute", command.WithCategories(home, work))
	newTask(t, h, "loose end")

	anyOf := NewFilter(doc, NewList(doc, domain.TaskListID), Category{})
	defer anyOf.Close()
	allOf := NewFilter(doc, NewList(doc, domain.TaskListID), Category{MatchAll: true})
	defer allOf.Close()
	if anyOf.Len() != 5 || allOf.Len() != 5 {
		t.Fatalf("expected everything without filtered categories, got %d and %d", anyOf.Len(), allOf.Len())
	}

	run(t, h, command.NewEditCategoryFiltered([]domain.ID{home}, true))
	if got := anyOf.Items(); !slices.Equal(got, []domain.ID{chores, dishes, both}) {
		t.Fatalf("expected home items and their subitems, got %v", got)
	}
	run(t, h, command.NewEditCategoryFiltered([]domain.ID{work}, true))
	if got := anyOf.Items(); !slices.Equal(got, []domain.ID{chores, dishes, report, both}) {
		t.Fatalf("expected items in any filtered category, got %v", got)
	}
	if got := allOf.Items(); !slices.Equal(got, []domain.ID{both}) {
		t.Fatalf("expected items in every filtered category, got %v", got)
	}

	run(t, h, command.NewToggleCategory([]domain.ID{report}, home))
	if got := allOf.Items(); !slices.Equal(got, []domain.ID{report, both}) {
		t.Fatalf("expected categorization to refilter, got %v", got)
	}
}

func TestStatusPredicate(t *testing.T) {
	doc, h := newTestDocument(t)
	parent := newTask(t, h, "parent")
	child := newSubTask(t, h, parent, "child")
	other := newTask(t, h, "other")

	f := NewFilter(doc, NewList(doc, domain.TaskListID), Status{Hide: []domain.TaskStatus{domain.StatusCompleted}, HideComposite: true})
	defer f.Close()
	if got := f.Items(); !slices.Equal(got, []domain.ID{child, other}) {
		t.Fatalf("expected composite task hidden, got %v", got)
	}
	run(t, h, command.NewMarkCompleted([]domain.ID{other}))
	if f.Contains(other) {
		t.Fatalf("expected completed task hidden")
	}
	if err := h.Undo(t.Context()); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if !f.Contains(other) {
		t.Fatalf("expected reopened task visible again")
	}
	f.SetTreeMode(true)
	if got := f.Items(); !slices.Equal(got, []domain.ID{parent, child, other}) {
		t.Fatalf("expected composite tasks in tree mode, got %v", got)
	}
}

func TestSelectedPredicate(t *testing.T) {
	doc, h := newTestDocument(t)
	parent := newTask(t, h, "parent")
	child := newSubTask(t, h, parent, "child")
	newTask(t, h, "other")

	f := NewFilter(doc, NewList(doc, domain.TaskListID), Selected{Items: []domain.ID{parent}})
	defer f.Close()
	if got := f.Items(); !slices.Equal(got, []domain.ID{parent}) {
		t.Fatalf("expected only the selection, got %v", got)
	}
	f.SetPredicate(Selected{Items: []domain.ID{parent}, SubItems: true})
	if got := f.Items(); !slices.Equal(got, []domain.ID{parent, child}) {
		t.Fatalf("expected the selection with its subitems, got %v", got)
	}
	f.SetPredicate(Selected{})
	if f.Len() != 3 {
		t.Fatalf("expected an empty selection to pass everything, got %v", f.Items())
	}
}

func TestNotDeletedOverMembers(t *testing.T) {
	doc, h := newTestDocument(t)
	keep := newTask(t, h, "keep")
	drop := newTask(t, h, "drop")
	s := NewSorter(doc, NewList(doc, domain.TaskListID))
	defer s.Close()
	f := NewFilter(doc, s, NotDeleted{})
	defer f.Close()

	run(t, h, command.NewDelete([]domain.ID{drop}))
	if got := f.Items(); !slices.Equal(got, []domain.ID{keep}) {
		t.Fatalf("expected deleted task hidden, got %v", got)
	}
}

func TestStackedViewsFollowTheSorter(t *testing.T) {
	doc, h := newTestDocument(t)
	a := newTask(t, h, "a task")
	b := newTask(t, h, "b task")
	newTask(t, h, "c chore")

	s := NewSorter(doc, NewList(doc, domain.TaskListID))
	defer s.Close()
	f := NewFilter(doc, s, NewSearch("task"))
	defer f.Close()

	counter := &sortedCounter{}
	sub := doc.Bus().SubscribeSource(counter.handle, []domain.ID{f.ID()}, domain.EventSorted)
	defer sub.Close()

	run(t, h, command.NewEditSubject([]domain.ID{a}, "z task"))
	if got := f.Items(); !slices.Equal(got, []domain.ID{b, a}) {
		t.Fatalf("expected the filter to follow the sorter, got %v", got)
	}
	if counter.calls != 1 {
		t.Fatalf("expected the filter to announce the reorder once, got %d", counter.calls)
	}

	f.Close()
	f.Close()
	run(t, h, command.NewEditSubject([]domain.ID{a}, "a task"))
	if got := f.Items(); !slices.Equal(got, []domain.ID{b, a}) {
		t.Fatalf("expected a closed filter to stop following, got %v", got)
	}
}
