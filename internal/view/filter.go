package view

import (
	"slices"

	"taskcoach/internal/core"
	"taskcoach/pkg/domain"
)

// Predicate selects the items of a Filter.
type Predicate interface {
	// Watch lists the event types after which Match may answer differently.
	Watch() []domain.EventType
	// Match returns the members of items that pass, in any order. tree is
	// true when the filter keeps subitems under their parents.
	Match(v core.View, items []domain.ID, tree bool) []domain.ID
}

// Filter keeps the items of a source that pass a predicate, in source
// order. In tree mode the ancestors of passing items stay visible too.
// Membership changes are published as EventItemsAdded and
// EventItemsRemoved, a reorder without membership change as EventSorted,
// all with the filter as source.
type Filter struct {
	decorator
	predicate Predicate
	items     []domain.ID
}

var _ Source = (*Filter)(nil)

// NewFilter returns a filter over source. Only WithTreeMode applies.
func NewFilter(doc *core.Document, source Source, predicate Predicate, opts ...Option) *Filter {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	f := &Filter{decorator: newDecorator(doc, source, o.tree), predicate: predicate}
	f.attach(f.Reset, predicate.Watch())
	f.Reset()
	return f
}

// Items returns the visible IDs.
func (f *Filter) Items() []domain.ID { return slices.Clone(f.items) }

// Len returns the number of visible items.
func (f *Filter) Len() int { return len(f.items) }

// Contains reports whether id is visible.
func (f *Filter) Contains(id domain.ID) bool { return slices.Contains(f.items, id) }

// Changes implements Source.
func (f *Filter) Changes() []domain.EventType {
	return []domain.EventType{domain.EventItemsAdded, domain.EventItemsRemoved, domain.EventSorted}
}

// Predicate returns the active predicate.
func (f *Filter) Predicate() Predicate { return f.predicate }

// SetPredicate replaces the predicate and its event subscriptions.
func (f *Filter) SetPredicate(p Predicate) {
	f.predicate = p
	f.rewatch(p.Watch())
	f.Reset()
}

// SetTreeMode switches between flat and tree filtering.
func (f *Filter) SetTreeMode(tree bool) {
	f.tree = tree
	f.Reset()
}

// Reset evaluates the predicate again and publishes what changed.
func (f *Filter) Reset() {
	if f.closed {
		return
	}
	source := f.source.Items()
	var next []domain.ID
	_ = f.doc.View(func(v core.View) error {
		pass := setOf(f.predicate.Match(v, source, f.tree))
		if f.tree {
			members := setOf(source)
			for id := range pass {
				for _, anc := range v.Ancestors(id) {
					if members[anc] {
						pass[anc] = true
					}
				}
			}
		}
		for _, id := range source {
			if pass[id] {
				next = append(next, id)
			}
		}
		return nil
	})
	if slices.Equal(next, f.items) {
		return
	}
	before, after := setOf(f.items), setOf(next)
	var added, removed []domain.ID
	for _, id := range next {
		if !before[id] {
			added = append(added, id)
		}
	}
	for _, id := range f.items {
		if !after[id] {
			removed = append(removed, id)
		}
	}
	f.items = next
	ev := domain.NewEvent()
	if len(removed) > 0 {
		ev.AddSource(f.id, domain.EventItemsRemoved, domain.Delta[domain.ID]{Removed: removed})
	}
	if len(added) > 0 {
		ev.AddSource(f.id, domain.EventItemsAdded, domain.Delta[domain.ID]{Added: added})
	}
	if ev.Empty() {
		ev.AddSource(f.id, domain.EventSorted, domain.Value[[]domain.ID]{New: slices.Clone(next)})
	}
	f.publish(ev)
}
