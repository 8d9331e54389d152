package view

import (
	"cmp"
	"slices"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"taskcoach/internal/core"
	"taskcoach/pkg/domain"
)

// SortKey names the attribute a Sorter orders by.
type SortKey string

// Sort keys. Task keys order other kinds as if the attribute were unset.
const (
	BySubject            SortKey = "subject"
	ByDescription        SortKey = "description"
	ByCreated            SortKey = "created"
	ByModified           SortKey = "modified"
	ByPlannedStart       SortKey = "plannedStart"
	ByDue                SortKey = "due"
	ByActualStart        SortKey = "actualStart"
	ByCompletion         SortKey = "completion"
	ByReminder           SortKey = "reminder"
	ByPriority           SortKey = "priority"
	ByPercentageComplete SortKey = "percentageComplete"
	ByBudget             SortKey = "budget"
	ByTimeSpent          SortKey = "timeSpent"
	ByHourlyFee          SortKey = "hourlyFee"
	ByFixedFee           SortKey = "fixedFee"
	ByStatus             SortKey = "status"
	ByEffortStart        SortKey = "effortStart"
	ByEffortStop         SortKey = "effortStop"
)

// keySpec compares two entities on one attribute. Exactly one of the
// extractors is set.
type keySpec struct {
	events []domain.EventType
	text   func(e domain.Entity) string
	time   func(e domain.Entity) time.Time
	number func(v core.View, e domain.Entity, tree bool) float64
}

var dateEvents = []domain.EventType{
	domain.EventPlannedStart, domain.EventDue, domain.EventActualStart, domain.EventCompletion,
	domain.EventPrerequisites, domain.EventChildAdded, domain.EventChildRemoved,
}

var effortEvents = []domain.EventType{
	domain.EventEfforts, domain.EventEffortStart, domain.EventEffortStop, domain.EventEffortTask,
}

// statusRank orders statuses from most to least urgent.
var statusRank = map[domain.TaskStatus]int{
	domain.StatusOverdue:   0,
	domain.StatusDueSoon:   1,
	domain.StatusLate:      2,
	domain.StatusActive:    3,
	domain.StatusInactive:  4,
	domain.StatusCompleted: 5,
}

func taskTime(get func(*domain.Task) time.Time) func(domain.Entity) time.Time {
	return func(e domain.Entity) time.Time {
		if t, ok := e.(*domain.Task); ok {
			return get(t)
		}
		return time.Time{}
	}
}

func taskNumber(get func(*domain.Task) float64) func(core.View, domain.Entity, bool) float64 {
	return func(_ core.View, e domain.Entity, _ bool) float64 {
		if t, ok := e.(*domain.Task); ok {
			return get(t)
		}
		return 0
	}
}

func effortTime(get func(*domain.Effort) time.Time) func(domain.Entity) time.Time {
	return func(e domain.Entity) time.Time {
		if eff, ok := e.(*domain.Effort); ok {
			return get(eff)
		}
		return time.Time{}
	}
}

var sortKeys = map[SortKey]keySpec{
	BySubject: {
		events: []domain.EventType{domain.EventSubject},
		text:   func(e domain.Entity) string { return e.Base().Subject() },
	},
	ByDescription: {
		events: []domain.EventType{domain.EventDescription},
		text:   func(e domain.Entity) string { return e.Base().Description() },
	},
	ByCreated: {
		time: func(e domain.Entity) time.Time { return e.Base().Created() },
	},
	ByModified: {
		events: []domain.EventType{domain.EventModificationTime},
		time:   func(e domain.Entity) time.Time { return e.Base().Modified() },
	},
	ByPlannedStart: {
		events: []domain.EventType{domain.EventPlannedStart},
		time:   taskTime((*domain.Task).PlannedStart),
	},
	ByDue: {
		events: []domain.EventType{domain.EventDue},
		time:   taskTime((*domain.Task).Due),
	},
	ByActualStart: {
		events: []domain.EventType{domain.EventActualStart},
		time:   taskTime((*domain.Task).ActualStart),
	},
	ByCompletion: {
		events: []domain.EventType{domain.EventCompletion},
		time:   taskTime((*domain.Task).Completion),
	},
	ByReminder: {
		events: []domain.EventType{domain.EventReminder},
		time:   taskTime((*domain.Task).Reminder),
	},
	ByPriority: {
		events: []domain.EventType{domain.EventPriority},
		number: taskNumber(func(t *domain.Task) float64 { return float64(t.Priority()) }),
	},
	ByPercentageComplete: {
		events: []domain.EventType{domain.EventPercentageComplete, domain.EventCompletion},
		number: taskNumber(func(t *domain.Task) float64 { return float64(t.PercentageComplete()) }),
	},
	ByBudget: {
		events: []domain.EventType{domain.EventBudget},
		number: taskNumber(func(t *domain.Task) float64 { return float64(t.Budget()) }),
	},
	ByTimeSpent: {
		events: effortEvents,
		number: func(v core.View, e domain.Entity, tree bool) float64 {
			switch x := e.(type) {
			case *domain.Task:
				return float64(v.TimeSpent(x.ID(), tree))
			case *domain.Effort:
				return float64(x.Duration(v.Now()))
			}
			return 0
		},
	},
	ByHourlyFee: {
		events: []domain.EventType{domain.EventHourlyFee},
		number: taskNumber((*domain.Task).HourlyFee),
	},
	ByFixedFee: {
		events: []domain.EventType{domain.EventFixedFee},
		number: taskNumber((*domain.Task).FixedFee),
	},
	ByStatus: {
		events: dateEvents,
		number: func(v core.View, e domain.Entity, _ bool) float64 {
			if _, ok := e.(*domain.Task); !ok {
				return float64(len(statusRank))
			}
			return float64(statusRank[v.Status(e.ID())])
		},
	},
	ByEffortStart: {
		events: []domain.EventType{domain.EventEffortStart},
		time:   effortTime((*domain.Effort).Start),
	},
	ByEffortStop: {
		events: []domain.EventType{domain.EventEffortStop},
		time:   effortTime((*domain.Effort).Stop),
	},
}

// Sorter keeps the items of a source ordered by one key. It publishes
// EventSorted, with itself as source, only when the order actually changes.
type Sorter struct {
	decorator
	key           SortKey
	descending    bool
	caseSensitive bool
	collator      *collate.Collator
	order         []domain.ID
}

var _ Source = (*Sorter)(nil)

// NewSorter sorts source by subject unless an option says otherwise. The
// initial order is the source order, so a sorter over an unsorted source
// announces its first sort.
func NewSorter(doc *core.Document, source Source, opts ...Option) *Sorter {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	s := &Sorter{
		decorator:     newDecorator(doc, source, o.tree),
		key:           o.key,
		descending:    o.descending,
		caseSensitive: o.caseSensitive,
		collator:      collate.New(language.Und, collate.IgnoreCase),
		order:         source.Items(),
	}
	if _, ok := sortKeys[s.key]; !ok {
		doc.Logger().Debug("unknown sort key, sorting by subject", "key", s.key)
		s.key = BySubject
	}
	s.attach(s.Reset, s.watchedEvents())
	s.Reset()
	return s
}

// Items returns the sorted IDs.
func (s *Sorter) Items() []domain.ID { return slices.Clone(s.order) }

// Changes implements Source.
func (s *Sorter) Changes() []domain.EventType {
	return []domain.EventType{domain.EventSorted}
}

// Key returns the active sort key.
func (s *Sorter) Key() SortKey { return s.key }

// SortBy switches the sort key and moves the attribute subscription to the
// events of the new key. Unknown keys fall back to the subject.
func (s *Sorter) SortBy(key SortKey) {
	if _, ok := sortKeys[key]; !ok {
		s.doc.Logger().Debug("unknown sort key, sorting by subject", "key", key)
		key = BySubject
	}
	if key == s.key {
		return
	}
	s.key = key
	s.rewatch(s.watchedEvents())
	s.Reset()
}

// SetAscending changes the sort direction.
func (s *Sorter) SetAscending(ascending bool) {
	s.descending = !ascending
	s.Reset()
}

// SetCaseSensitive changes how text keys compare.
func (s *Sorter) SetCaseSensitive(sensitive bool) {
	s.caseSensitive = sensitive
	s.Reset()
}

// SetTreeMode switches between a flat and a parent-first order.
func (s *Sorter) SetTreeMode(tree bool) {
	s.tree = tree
	s.rewatch(s.watchedEvents())
	s.Reset()
}

func (s *Sorter) watchedEvents() []domain.EventType {
	types := slices.Clone(sortKeys[s.key].events)
	if s.tree {
		types = append(types, domain.EventParent)
	}
	return types
}

// Reset sorts the source again and publishes EventSorted when the order
// differs from the previous one.
func (s *Sorter) Reset() {
	if s.closed {
		return
	}
	items := s.source.Items()
	var order []domain.ID
	_ = s.doc.View(func(v core.View) error {
		order = s.sort(v, items)
		return nil
	})
	if slices.Equal(order, s.order) {
		return
	}
	s.order = order
	ev := domain.NewEvent()
	ev.AddSource(s.id, domain.EventSorted, domain.Value[[]domain.ID]{New: slices.Clone(order)})
	s.publish(ev)
}

func (s *Sorter) sort(v core.View, items []domain.ID) []domain.ID {
	entities := make(map[domain.ID]domain.Entity, len(items))
	for _, id := range items {
		if e, err := v.Lookup(id); err == nil {
			entities[id] = e
		}
	}
	spec := sortKeys[s.key]
	compare := func(a, b domain.ID) int {
		ea, eb := entities[a], entities[b]
		if ea == nil || eb == nil {
			return 0
		}
		c := s.compare(v, spec, ea, eb)
		if s.descending {
			return -c
		}
		return c
	}
	if !s.tree {
		out := slices.Clone(items)
		slices.SortStableFunc(out, compare)
		return out
	}
	members := setOf(items)
	children := make(map[domain.ID][]domain.ID)
	var roots []domain.ID
	for _, id := range items {
		if parent := parentIn(v, id, members); parent != "" {
			children[parent] = append(children[parent], id)
		} else {
			roots = append(roots, id)
		}
	}
	out := make([]domain.ID, 0, len(items))
	var walk func(level []domain.ID)
	walk = func(level []domain.ID) {
		slices.SortStableFunc(level, compare)
		for _, id := range level {
			out = append(out, id)
			walk(children[id])
		}
	}
	walk(roots)
	return out
}

func (s *Sorter) compare(v core.View, spec keySpec, a, b domain.Entity) int {
	switch {
	case spec.text != nil:
		ta, tb := spec.text(a), spec.text(b)
		if s.caseSensitive {
			return cmp.Compare(ta, tb)
		}
		return s.collator.CompareString(ta, tb)
	case spec.time != nil:
		return compareTimes(spec.time(a), spec.time(b))
	case spec.number != nil:
		return cmp.Compare(spec.number(v, a, s.tree), spec.number(v, b, s.tree))
	}
	return 0
}

// compareTimes orders unset times after every set time.
func compareTimes(a, b time.Time) int {
	switch {
	case a.IsZero() && b.IsZero():
		return 0
	case a.IsZero():
		return 1
	case b.IsZero():
		return -1
	}
	return a.Compare(b)
}
