// Package event dispatches committed change batches to subscribers and
// marshals externally triggered work onto the single logical thread that
// owns the document.
package event

import (
	"slices"
	"sync"

	"taskcoach/pkg/domain"
)

// Handler receives a batch restricted to one event type.
type Handler func(ev *domain.Event)

// Bus maps event types to subscribers. A committed batch is delivered as one
// call per distinct event type to each interested subscriber, in type
// first-seen order and then in subscription order.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[domain.EventType][]*entry
}

type entry struct {
	id      uint64
	handler Handler
	sources []domain.ID
	sub     *Subscription
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[domain.EventType][]*entry)}
}

// Subscription is the token returned by Subscribe. Close must be called when
// the subscriber goes away; it is safe to call more than once.
type Subscription struct {
	bus    *Bus
	id     uint64
	types  []domain.EventType
	once   sync.Once
	closed bool
}

// Subscribe registers h for every batch containing one of types.
func (b *Bus) Subscribe(h Handler, types ...domain.EventType) *Subscription {
	return b.subscribe(h, nil, types)
}

// SubscribeSource registers h for batches of types whose notifications come
// from one of sources. The handler only sees the matching sources.
func (b *Bus) SubscribeSource(h Handler, sources []domain.ID, types ...domain.EventType) *Subscription {
	return b.subscribe(h, slices.Clone(sources), types)
}

func (b *Bus) subscribe(h Handler, sources []domain.ID, types []domain.EventType) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{bus: b, id: b.nextID}
	e := &entry{id: b.nextID, handler: h, sources: sources, sub: sub}
	for _, typ := range types {
		if slices.Contains(sub.types, typ) {
			continue
		}
		sub.types = append(sub.types, typ)
		b.subs[typ] = append(b.subs[typ], e)
	}
	return sub
}

// Types returns the event types the subscription listens to.
func (s *Subscription) Types() []domain.EventType { return slices.Clone(s.types) }

// Close unregisters the subscription from every type.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.bus.remove(s)
	})
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s.closed = true
	for _, typ := range s.types {
		b.subs[typ] = slices.DeleteFunc(b.subs[typ], func(e *entry) bool { return e.id == s.id })
		if len(b.subs[typ]) == 0 {
			delete(b.subs, typ)
		}
	}
}

// Count returns the number of live subscriptions for typ.
func (b *Bus) Count(typ domain.EventType) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[typ])
}

// Publish delivers ev synchronously. Handlers may subscribe, close or publish
// while being called; a subscription closed during delivery receives nothing
// further.
func (b *Bus) Publish(ev *domain.Event) {
	if ev.Empty() {
		return
	}
	for _, typ := range ev.Types() {
		b.mu.Lock()
		targets := slices.Clone(b.subs[typ])
		b.mu.Unlock()
		for _, e := range targets {
			if b.isClosed(e) {
				continue
			}
			sub := ev.SubEvent(typ, e.sources...)
			if sub == nil {
				continue
			}
			e.handler(sub)
		}
	}
}

func (b *Bus) isClosed(e *entry) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return e.sub.closed
}
