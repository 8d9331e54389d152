// Package view derives ordered and filtered lists from the containers of a
// document. Views keep IDs only and follow the document through its event
// bus, so they must be used on the goroutine that runs commands.
package view

import (
	"slices"

	"taskcoach/internal/core"
	"taskcoach/internal/event"
	"taskcoach/pkg/domain"
)

// Source is an ordered list of IDs that views can be stacked on.
type Source interface {
	// ID is the event source of the list's own notifications.
	ID() domain.ID
	// Items returns the current members in order.
	Items() []domain.ID
	// Changes lists the event types after which Items may differ.
	Changes() []domain.EventType
}

// List exposes the live members of a document container as a Source.
type List struct {
	doc  *core.Document
	list domain.ID
}

var _ Source = (*List)(nil)

// NewList returns a source over the container list, for example
// domain.TaskListID.
func NewList(doc *core.Document, list domain.ID) *List {
	return &List{doc: doc, list: list}
}

func (l *List) ID() domain.ID { return l.list }

// Items returns the container members without tombstones.
func (l *List) Items() []domain.ID {
	var ids []domain.ID
	_ = l.doc.View(func(v core.View) error {
		ids = v.Live(l.list)
		return nil
	})
	return ids
}

func (l *List) Changes() []domain.EventType {
	return []domain.EventType{domain.EventItemsAdded, domain.EventItemsRemoved, domain.EventDeleted}
}

// Option configures a Sorter or a Filter.
type Option func(*options)

type options struct {
	tree          bool
	key           SortKey
	descending    bool
	caseSensitive bool
}

func defaultOptions() options {
	return options{key: BySubject, caseSensitive: true}
}

// WithTreeMode keeps subitems under their parents.
func WithTreeMode() Option {
	return func(o *options) { o.tree = true }
}

// WithSortKey selects the initial sort key of a Sorter.
func WithSortKey(key SortKey) Option {
	return func(o *options) { o.key = key }
}

// WithDescending sorts from the largest key down.
func WithDescending() Option {
	return func(o *options) { o.descending = true }
}

// WithCaseSensitive compares text keys by code point when true and with a
// case-insensitive collation otherwise.
func WithCaseSensitive(sensitive bool) Option {
	return func(o *options) { o.caseSensitive = sensitive }
}

// decorator holds what sorters and filters share: the upstream source, the
// subscriptions that trigger a reset and the ID notifications are sent from.
type decorator struct {
	doc    *core.Document
	source Source
	id     domain.ID
	tree   bool
	reset  func()

	upstream *event.Subscription
	items    *event.Subscription
	watch    *event.Subscription
	watching []domain.EventType
	closed   bool
}

func newDecorator(doc *core.Document, source Source, tree bool) decorator {
	return decorator{doc: doc, source: source, id: domain.NewID(), tree: tree}
}

// ID is the source of the view's sorted and membership notifications.
func (d *decorator) ID() domain.ID { return d.id }

// TreeMode reports whether subitems are kept under their parents.
func (d *decorator) TreeMode() bool { return d.tree }

// attach subscribes to the changes of the source and to types. Membership
// and order changes only count when the source itself announces them;
// EventDeleted comes from the deleted item and is taken from anyone.
func (d *decorator) attach(reset func(), types []domain.EventType) {
	d.reset = reset
	var own, shared []domain.EventType
	for _, typ := range d.source.Changes() {
		if sourced(typ) {
			own = append(own, typ)
		} else {
			shared = append(shared, typ)
		}
	}
	bus := d.doc.Bus()
	if len(own) > 0 {
		d.upstream = bus.SubscribeSource(d.onEvent, []domain.ID{d.source.ID()}, own...)
	}
	if len(shared) > 0 {
		d.items = bus.Subscribe(d.onEvent, shared...)
	}
	d.rewatch(types)
}

func sourced(typ domain.EventType) bool {
	switch typ {
	case domain.EventItemsAdded, domain.EventItemsRemoved, domain.EventSorted:
		return true
	}
	return false
}

// rewatch swaps the attribute subscription for one on types.
func (d *decorator) rewatch(types []domain.EventType) {
	if d.closed {
		return
	}
	types = dedupeTypes(types)
	if d.watch != nil && slices.Equal(types, d.watching) {
		return
	}
	d.watch.Close()
	d.watch = nil
	d.watching = types
	if len(types) > 0 {
		d.watch = d.doc.Bus().Subscribe(d.onEvent, types...)
	}
}

func (d *decorator) onEvent(*domain.Event) {
	if d.closed || d.reset == nil {
		return
	}
	d.reset()
}

func (d *decorator) publish(ev *domain.Event) {
	d.doc.Bus().Publish(ev)
}

// Close drops the view's subscriptions. It is safe to call more than once.
func (d *decorator) Close() {
	if d.closed {
		return
	}
	d.closed = true
	d.upstream.Close()
	d.items.Close()
	d.watch.Close()
}

func dedupeTypes(types []domain.EventType) []domain.EventType {
	out := make([]domain.EventType, 0, len(types))
	for _, typ := range types {
		if !slices.Contains(out, typ) {
			out = append(out, typ)
		}
	}
	return out
}

// parentIn returns the nearest ancestor of id that is in members, or "".
func parentIn(v core.View, id domain.ID, members map[domain.ID]bool) domain.ID {
	for _, anc := range v.Ancestors(id) {
		if members[anc] {
			return anc
		}
	}
	return ""
}

func setOf(ids []domain.ID) map[domain.ID]bool {
	set := make(map[domain.ID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
