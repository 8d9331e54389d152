package domain

import "slices"

// EventType enumerates every change notification the domain can emit.
// The set is closed: subscribers switch on these constants and type-assert
// the payload documented next to each one.
type EventType string

// Object events. Payload: Value[string] unless noted.
const (
	EventSubject         EventType = "subject"
	EventDescription     EventType = "description"
	EventForegroundColor EventType = "foregroundColor"
	EventBackgroundColor EventType = "backgroundColor"
	EventFont            EventType = "font"
	EventIcon            EventType = "icon"
	// EventAppearance accompanies any color, font or icon change. Payload: None.
	EventAppearance EventType = "appearance"
	// EventModificationTime payload: Value[time.Time].
	EventModificationTime EventType = "modificationTime"
	// EventDeleted payload: Value[bool], true when tombstoned.
	EventDeleted EventType = "deleted"
)

// Composite and container events.
const (
	// EventParent payload: Value[ID], empty for root items.
	EventParent EventType = "parent"
	// EventChildAdded payload: Delta[ID].
	EventChildAdded EventType = "childAdded"
	// EventChildRemoved payload: Delta[ID].
	EventChildRemoved EventType = "childRemoved"
	// EventItemsAdded payload: Delta[ID]; source is a container or a view.
	EventItemsAdded EventType = "itemsAdded"
	// EventItemsRemoved payload: Delta[ID]; source is a container or a view.
	EventItemsRemoved EventType = "itemsRemoved"
)

// Task events.
const (
	// Date time events carry Value[time.Time]; the zero time means unset.
	EventPlannedStart EventType = "plannedStart"
	EventDue          EventType = "due"
	EventActualStart  EventType = "actualStart"
	EventCompletion   EventType = "completion"
	EventReminder     EventType = "reminder"
	// EventPriority payload: Value[int].
	EventPriority EventType = "priority"
	// EventPercentageComplete payload: Value[int].
	EventPercentageComplete EventType = "percentageComplete"
	// EventBudget payload: Value[time.Duration].
	EventBudget EventType = "budget"
	// EventHourlyFee and EventFixedFee payload: Value[float64].
	EventHourlyFee EventType = "hourlyFee"
	EventFixedFee  EventType = "fixedFee"
	// EventShouldMarkCompleted payload: Value[TriState].
	EventShouldMarkCompleted EventType = "shouldMarkCompleted"
	// EventRecurrence payload: Value[Recurrence].
	EventRecurrence EventType = "recurrence"
	// Relation events carry Delta[ID].
	EventPrerequisites        EventType = "prerequisites"
	EventPrerequisitesAdded   EventType = "prerequisitesAdded"
	EventPrerequisitesRemoved EventType = "prerequisitesRemoved"
	EventDependencies         EventType = "dependencies"
	EventDependenciesAdded    EventType = "dependenciesAdded"
	EventDependenciesRemoved  EventType = "dependenciesRemoved"
	EventEfforts              EventType = "efforts"
	EventEffortsAdded         EventType = "effortsAdded"
	EventEffortsRemoved       EventType = "effortsRemoved"
	// EventTracking payload: Value[bool], true while an effort is running.
	EventTracking EventType = "tracking"
)

// Category and categorizable events. Membership events carry Delta[ID].
const (
	EventCategories            EventType = "categories"
	EventCategoriesAdded       EventType = "categoriesAdded"
	EventCategoriesRemoved     EventType = "categoriesRemoved"
	EventCategorizables        EventType = "categorizables"
	EventCategorizablesAdded   EventType = "categorizablesAdded"
	EventCategorizablesRemoved EventType = "categorizablesRemoved"
	// EventFiltered payload: Value[bool].
	EventFiltered EventType = "filtered"
	// EventExclusiveSubcategories payload: Value[bool].
	EventExclusiveSubcategories EventType = "exclusiveSubcategories"
)

// Owner events. Payload: Delta[ID].
const (
	EventNotes              EventType = "notes"
	EventNotesAdded         EventType = "notesAdded"
	EventNotesRemoved       EventType = "notesRemoved"
	EventAttachments        EventType = "attachments"
	EventAttachmentsAdded   EventType = "attachmentsAdded"
	EventAttachmentsRemoved EventType = "attachmentsRemoved"
)

// Effort and attachment events.
const (
	// EventEffortTask payload: Value[ID].
	EventEffortTask EventType = "effortTask"
	// EventEffortStart and EventEffortStop payload: Value[time.Time].
	EventEffortStart EventType = "effortStart"
	EventEffortStop  EventType = "effortStop"
	// EventLocation payload: Value[string].
	EventLocation EventType = "location"
)

// View and history events.
const (
	// EventSorted payload: Value[[]ID] holding the new order. Source is the sorter.
	EventSorted EventType = "sorted"
	// EventHistory payload: Value[string] naming the command that moved the
	// history, empty after it is cleared. Source is HistoryID.
	EventHistory EventType = "history"
)

// Payload is the typed data attached to a notification. The interface is
// sealed; the implementations are Value, Delta and None.
type Payload interface {
	payload()
}

// Value carries the new value of a single-valued attribute.
type Value[T any] struct {
	New T
}

func (Value[T]) payload() {}

// Delta carries the members added to and removed from a set-valued attribute.
type Delta[T comparable] struct {
	Added   []T
	Removed []T
}

func (Delta[T]) payload() {}

// merge folds d into the earlier payload prev of the same batch. Members
// added and then removed, or removed and then added, cancel out. It reports
// false when nothing is left.
func (d Delta[T]) merge(prev Payload) (Payload, bool) {
	old, ok := prev.(Delta[T])
	if !ok {
		return d, true
	}
	var out Delta[T]
	for _, v := range old.Added {
		if !slices.Contains(d.Removed, v) {
			out.Added = appendNew(out.Added, v)
		}
	}
	for _, v := range old.Removed {
		if !slices.Contains(d.Added, v) {
			out.Removed = appendNew(out.Removed, v)
		}
	}
	for _, v := range d.Added {
		if !slices.Contains(old.Removed, v) {
			out.Added = appendNew(out.Added, v)
		}
	}
	for _, v := range d.Removed {
		if !slices.Contains(old.Added, v) {
			out.Removed = appendNew(out.Removed, v)
		}
	}
	return out, len(out.Added) > 0 || len(out.Removed) > 0
}

func appendNew[T comparable](s []T, v T) []T {
	if slices.Contains(s, v) {
		return s
	}
	return append(s, v)
}

// merger is implemented by payloads that accumulate within a batch.
type merger interface {
	merge(prev Payload) (Payload, bool)
}

// None marks notifications that carry no data.
type None struct{}

func (None) payload() {}

// Notification is one (source, type, payload) record of an Event.
type Notification struct {
	Type    EventType
	Source  ID
	Payload Payload
}

// Event accumulates the notifications produced while one transaction runs.
// It keeps a single notification per (type, source) pair and remembers the
// order in which types first appeared. A later Value replaces an earlier one;
// Deltas are merged.
type Event struct {
	types   []EventType
	sources map[EventType][]ID
	records map[EventType]map[ID]Payload
}

// NewEvent returns an empty batch.
func NewEvent() *Event {
	return &Event{
		sources: make(map[EventType][]ID),
		records: make(map[EventType]map[ID]Payload),
	}
}

// AddSource records a notification. A nil payload is stored as None.
func (e *Event) AddSource(source ID, typ EventType, payload Payload) {
	if payload == nil {
		payload = None{}
	}
	bySource, ok := e.records[typ]
	if !ok {
		bySource = make(map[ID]Payload)
		e.records[typ] = bySource
		e.types = append(e.types, typ)
	}
	prev, seen := bySource[source]
	if !seen {
		e.sources[typ] = append(e.sources[typ], source)
		bySource[source] = payload
		return
	}
	if m, ok := payload.(merger); ok {
		merged, keep := m.merge(prev)
		if !keep {
			e.drop(source, typ)
			return
		}
		payload = merged
	}
	bySource[source] = payload
}

func (e *Event) drop(source ID, typ EventType) {
	delete(e.records[typ], source)
	e.sources[typ] = slices.DeleteFunc(e.sources[typ], func(id ID) bool { return id == source })
	if len(e.sources[typ]) > 0 {
		return
	}
	delete(e.records, typ)
	delete(e.sources, typ)
	e.types = slices.DeleteFunc(e.types, func(t EventType) bool { return t == typ })
}

// Empty reports whether no notification has been recorded.
func (e *Event) Empty() bool { return e == nil || len(e.types) == 0 }

// Types returns the recorded event types in first-seen order.
func (e *Event) Types() []EventType {
	if e == nil {
		return nil
	}
	return slices.Clone(e.types)
}

// Sources returns the sources recorded for typ in first-seen order.
func (e *Event) Sources(typ EventType) []ID {
	if e == nil {
		return nil
	}
	return slices.Clone(e.sources[typ])
}

// Has reports whether a notification of typ was recorded for source.
func (e *Event) Has(source ID, typ EventType) bool {
	if e == nil {
		return false
	}
	_, ok := e.records[typ][source]
	return ok
}

// Payload returns the payload recorded for (source, typ).
func (e *Event) Payload(source ID, typ EventType) (Payload, bool) {
	if e == nil {
		return nil, false
	}
	p, ok := e.records[typ][source]
	return p, ok
}

// Notifications returns the notifications of typ in source order.
func (e *Event) Notifications(typ EventType) []Notification {
	if e == nil {
		return nil
	}
	out := make([]Notification, 0, len(e.sources[typ]))
	for _, src := range e.sources[typ] {
		out = append(out, Notification{Type: typ, Source: src, Payload: e.records[typ][src]})
	}
	return out
}

// SubEvent returns a new batch restricted to typ and, when sources is not
// empty, to those sources. It returns nil when nothing matches.
func (e *Event) SubEvent(typ EventType, sources ...ID) *Event {
	if e == nil {
		return nil
	}
	sub := NewEvent()
	for _, src := range e.sources[typ] {
		if len(sources) > 0 && !slices.Contains(sources, src) {
			continue
		}
		sub.AddSource(src, typ, e.records[typ][src])
	}
	if sub.Empty() {
		return nil
	}
	return sub
}
