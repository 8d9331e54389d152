package domain

import "slices"

// Attribute owns a single observable value. Set is a no-op when the value
// does not change; otherwise it records a notification of the attribute's
// event type, plus any enrichment types, on the caller's batch.
type Attribute[T comparable] struct {
	value T
	typ   EventType
	also  []EventType
}

// NewAttribute returns an attribute holding value that reports changes as typ.
// The also types are recorded with a None payload on every change.
func NewAttribute[T comparable](value T, typ EventType, also ...EventType) Attribute[T] {
	return Attribute[T]{value: value, typ: typ, also: also}
}

// Get returns the current value.
func (a Attribute[T]) Get() T { return a.value }

// Type returns the event type fired on change.
func (a Attribute[T]) Type() EventType { return a.typ }

// Set stores value and reports whether it differed from the current value.
// A nil batch mutates without notifying, which only loaders use.
func (a *Attribute[T]) Set(ev *Event, owner ID, value T) bool {
	if a.value == value {
		return false
	}
	a.value = value
	if ev != nil {
		ev.AddSource(owner, a.typ, Value[T]{New: value})
		for _, typ := range a.also {
			ev.AddSource(owner, typ, None{})
		}
	}
	return true
}

// SetEvents names the three notifications of a set-valued attribute.
type SetEvents struct {
	Changed EventType
	Added   EventType
	Removed EventType
}

// SetAttribute owns a set of members kept in insertion order. Every
// successful mutation fires the changed event with the full delta plus
// separate added and removed events that carry only their half of it.
type SetAttribute[T comparable] struct {
	items  []T
	events SetEvents
}

// NewSetAttribute returns an empty set reporting changes as events.
func NewSetAttribute[T comparable](events SetEvents, initial ...T) SetAttribute[T] {
	s := SetAttribute[T]{events: events}
	for _, v := range initial {
		if !slices.Contains(s.items, v) {
			s.items = append(s.items, v)
		}
	}
	return s
}

// Get returns a copy of the members.
func (s SetAttribute[T]) Get() []T { return slices.Clone(s.items) }

// Len returns the number of members.
func (s SetAttribute[T]) Len() int { return len(s.items) }

// Contains reports membership of v.
func (s SetAttribute[T]) Contains(v T) bool { return slices.Contains(s.items, v) }

// Events returns the notification types of the set.
func (s SetAttribute[T]) Events() SetEvents { return s.events }

// Add inserts the values not yet present and reports whether any was added.
func (s *SetAttribute[T]) Add(ev *Event, owner ID, values ...T) bool {
	var added []T
	for _, v := range values {
		if slices.Contains(s.items, v) || slices.Contains(added, v) {
			continue
		}
		added = append(added, v)
	}
	if len(added) == 0 {
		return false
	}
	s.items = append(s.items, added...)
	s.notify(ev, owner, added, nil)
	return true
}

// Remove deletes the values present and reports whether any was removed.
func (s *SetAttribute[T]) Remove(ev *Event, owner ID, values ...T) bool {
	var removed []T
	kept := s.items[:0:0]
	for _, v := range s.items {
		if slices.Contains(values, v) {
			removed = append(removed, v)
			continue
		}
		kept = append(kept, v)
	}
	if len(removed) == 0 {
		return false
	}
	s.items = kept
	s.notify(ev, owner, nil, removed)
	return true
}

// Set replaces the members with values and reports whether membership changed.
// Reordering alone is not a change.
func (s *SetAttribute[T]) Set(ev *Event, owner ID, values []T) bool {
	var next []T
	for _, v := range values {
		if !slices.Contains(next, v) {
			next = append(next, v)
		}
	}
	var added, removed []T
	for _, v := range next {
		if !slices.Contains(s.items, v) {
			added = append(added, v)
		}
	}
	for _, v := range s.items {
		if !slices.Contains(next, v) {
			removed = append(removed, v)
		}
	}
	if len(added) == 0 && len(removed) == 0 {
		return false
	}
	s.items = next
	s.notify(ev, owner, added, removed)
	return true
}

func (s *SetAttribute[T]) notify(ev *Event, owner ID, added, removed []T) {
	if ev == nil {
		return
	}
	ev.AddSource(owner, s.events.Changed, Delta[T]{Added: added, Removed: removed})
	if len(added) > 0 && s.events.Added != "" {
		ev.AddSource(owner, s.events.Added, Delta[T]{Added: added})
	}
	if len(removed) > 0 && s.events.Removed != "" {
		ev.AddSource(owner, s.events.Removed, Delta[T]{Removed: removed})
	}
}

func (s SetAttribute[T]) clone() SetAttribute[T] {
	return SetAttribute[T]{items: slices.Clone(s.items), events: s.events}
}

// OwnedCollection is the ordered collection of objects an owner holds, such as
// the notes or attachments of a task. Membership is tracked by ID; resolving
// the members and walking nested ones is the arena's job.
type OwnedCollection[T comparable] struct {
	set SetAttribute[T]
}

// NewOwnedCollection returns an empty collection reporting changes as events.
func NewOwnedCollection[T comparable](events SetEvents, initial ...T) OwnedCollection[T] {
	return OwnedCollection[T]{set: NewSetAttribute(events, initial...)}
}

// Items returns the members in insertion order.
func (c OwnedCollection[T]) Items() []T { return c.set.Get() }

// Len returns the number of members.
func (c OwnedCollection[T]) Len() int { return c.set.Len() }

// Contains reports membership of v.
func (c OwnedCollection[T]) Contains(v T) bool { return c.set.Contains(v) }

// Add appends members, firing the added and changed notifications.
func (c *OwnedCollection[T]) Add(ev *Event, owner ID, values ...T) bool {
	return c.set.Add(ev, owner, values...)
}

// Remove drops members, firing the removed and changed notifications.
func (c *OwnedCollection[T]) Remove(ev *Event, owner ID, values ...T) bool {
	return c.set.Remove(ev, owner, values...)
}

// Set replaces the members.
func (c *OwnedCollection[T]) Set(ev *Event, owner ID, values []T) bool {
	return c.set.Set(ev, owner, values)
}

func (c OwnedCollection[T]) clone() OwnedCollection[T] {
	return OwnedCollection[T]{set: c.set.clone()}
}
