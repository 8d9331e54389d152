package domain

import (
	"fmt"
	"time"
)

// PercentageCompleted is the percentage that marks a task completed.
const PercentageCompleted = 100

// Task is a composite to-do item with dates, budget, efforts and relations.
type Task struct {
	Object
	Composite

	plannedStart        Attribute[time.Time]
	due                 Attribute[time.Time]
	actualStart         Attribute[time.Time]
	completion          Attribute[time.Time]
	reminder            Attribute[time.Time]
	priority            Attribute[int]
	percentage          Attribute[int]
	budget              Attribute[time.Duration]
	hourlyFee           Attribute[float64]
	fixedFee            Attribute[float64]
	shouldMarkCompleted Attribute[TriState]
	recurrence          Attribute[Recurrence]

	prerequisites SetAttribute[ID]
	dependencies  SetAttribute[ID]
	categories    SetAttribute[ID]
	efforts       OwnedCollection[ID]
	notes         OwnedCollection[ID]
	attachments   OwnedCollection[ID]
}

var (
	_ TreeEntity      = (*Task)(nil)
	_ Categorizable   = (*Task)(nil)
	_ NoteOwner       = (*Task)(nil)
	_ AttachmentOwner = (*Task)(nil)
)

// NewTask builds a root task. Use an empty id to generate one.
func NewTask(id ID, subject string, created time.Time) *Task {
	return &Task{
		Object:              newObject(id, subject, created),
		Composite:           newComposite(""),
		plannedStart:        NewAttribute(time.Time{}, EventPlannedStart),
		due:                 NewAttribute(time.Time{}, EventDue),
		actualStart:         NewAttribute(time.Time{}, EventActualStart),
		completion:          NewAttribute(time.Time{}, EventCompletion),
		reminder:            NewAttribute(time.Time{}, EventReminder),
		priority:            NewAttribute(0, EventPriority),
		percentage:          NewAttribute(0, EventPercentageComplete),
		budget:              NewAttribute(time.Duration(0), EventBudget),
		hourlyFee:           NewAttribute(0.0, EventHourlyFee),
		fixedFee:            NewAttribute(0.0, EventFixedFee),
		shouldMarkCompleted: NewAttribute(Inherit, EventShouldMarkCompleted),
		recurrence:          NewAttribute(Recurrence{}, EventRecurrence),
		prerequisites:       NewSetAttribute[ID](SetEvents{EventPrerequisites, EventPrerequisitesAdded, EventPrerequisitesRemoved}),
		dependencies:        NewSetAttribute[ID](SetEvents{EventDependencies, EventDependenciesAdded, EventDependenciesRemoved}),
		categories:          NewSetAttribute[ID](categoryEvents),
		efforts:             NewOwnedCollection[ID](SetEvents{EventEfforts, EventEffortsAdded, EventEffortsRemoved}),
		notes:               NewOwnedCollection[ID](noteEvents),
		attachments:         NewOwnedCollection[ID](attachmentEvents),
	}
}

// Kind implements Entity.
func (t *Task) Kind() Kind { return KindTask }

// Tree implements TreeEntity.
func (t *Task) Tree() *Composite { return &t.Composite }

// CloneEntity implements Entity.
func (t *Task) CloneEntity() Entity { return t.Clone() }

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	cp := *t
	cp.Composite = t.Composite.clone()
	cp.prerequisites = t.prerequisites.clone()
	cp.dependencies = t.dependencies.clone()
	cp.categories = t.categories.clone()
	cp.efforts = t.efforts.clone()
	cp.notes = t.notes.clone()
	cp.attachments = t.attachments.clone()
	return &cp
}

func (t *Task) PlannedStart() time.Time { return t.plannedStart.Get() }
func (t *Task) Due() time.Time          { return t.due.Get() }
func (t *Task) ActualStart() time.Time  { return t.actualStart.Get() }
func (t *Task) Completion() time.Time   { return t.completion.Get() }
func (t *Task) Reminder() time.Time     { return t.reminder.Get() }
func (t *Task) Priority() int           { return t.priority.Get() }
func (t *Task) Budget() time.Duration   { return t.budget.Get() }
func (t *Task) HourlyFee() float64      { return t.hourlyFee.Get() }
func (t *Task) FixedFee() float64       { return t.fixedFee.Get() }

// PercentageComplete returns the own percentage, 100 once completed.
func (t *Task) PercentageComplete() int {
	if t.Completed() {
		return PercentageCompleted
	}
	return t.percentage.Get()
}

// ShouldMarkCompleted returns the own setting for auto-completing the task
// when its last open child completes.
func (t *Task) ShouldMarkCompleted() TriState { return t.shouldMarkCompleted.Get() }

// Recurrence returns the own recurrence of the task.
func (t *Task) Recurrence() Recurrence { return t.recurrence.Get() }

// Completed reports whether a completion time is set.
func (t *Task) Completed() bool { return !t.completion.Get().IsZero() }

// Prerequisites returns the IDs of tasks that must complete first.
func (t *Task) Prerequisites() []ID { return t.prerequisites.Get() }

// Dependencies returns the IDs of tasks waiting for this one.
func (t *Task) Dependencies() []ID { return t.dependencies.Get() }

// Categories implements Categorizable.
func (t *Task) Categories() []ID { return t.categories.Get() }

// Efforts returns the IDs of efforts booked on the task itself.
func (t *Task) Efforts() []ID { return t.efforts.Items() }

// Notes implements NoteOwner.
func (t *Task) Notes() []ID { return t.notes.Items() }

// Attachments implements AttachmentOwner.
func (t *Task) Attachments() []ID { return t.attachments.Items() }

func (t *Task) SetPlannedStart(ev *Event, v time.Time) bool {
	return t.plannedStart.Set(ev, t.id, NormalizeTime(v))
}

func (t *Task) SetDue(ev *Event, v time.Time) bool { return t.due.Set(ev, t.id, NormalizeTime(v)) }

func (t *Task) SetActualStart(ev *Event, v time.Time) bool {
	return t.actualStart.Set(ev, t.id, NormalizeTime(v))
}

// SetCompletion sets the raw completion time. Cascades to subtasks, efforts
// and parents are the document's responsibility.
func (t *Task) SetCompletion(ev *Event, v time.Time) bool {
	return t.completion.Set(ev, t.id, NormalizeTime(v))
}

func (t *Task) SetReminder(ev *Event, v time.Time) bool {
	return t.reminder.Set(ev, t.id, NormalizeTime(v))
}

func (t *Task) SetPriority(ev *Event, p int) bool { return t.priority.Set(ev, t.id, p) }

// SetPercentageComplete stores p clamped to [0, 100].
func (t *Task) SetPercentageComplete(ev *Event, p int) bool {
	p = min(max(p, 0), PercentageCompleted)
	return t.percentage.Set(ev, t.id, p)
}

func (t *Task) SetBudget(ev *Event, d time.Duration) bool { return t.budget.Set(ev, t.id, d) }

func (t *Task) SetHourlyFee(ev *Event, fee float64) bool { return t.hourlyFee.Set(ev, t.id, fee) }

func (t *Task) SetFixedFee(ev *Event, fee float64) bool { return t.fixedFee.Set(ev, t.id, fee) }

func (t *Task) SetShouldMarkCompleted(ev *Event, v TriState) bool {
	return t.shouldMarkCompleted.Set(ev, t.id, v)
}

func (t *Task) SetRecurrence(ev *Event, r Recurrence) bool {
	return t.recurrence.Set(ev, t.id, r)
}

func (t *Task) AddPrerequisites(ev *Event, ids ...ID) bool {
	return t.prerequisites.Add(ev, t.id, ids...)
}

func (t *Task) RemovePrerequisites(ev *Event, ids ...ID) bool {
	return t.prerequisites.Remove(ev, t.id, ids...)
}

func (t *Task) AddDependencies(ev *Event, ids ...ID) bool {
	return t.dependencies.Add(ev, t.id, ids...)
}

func (t *Task) RemoveDependencies(ev *Event, ids ...ID) bool {
	return t.dependencies.Remove(ev, t.id, ids...)
}

// AddCategories implements Categorizable.
func (t *Task) AddCategories(ev *Event, ids ...ID) bool { return t.categories.Add(ev, t.id, ids...) }

// RemoveCategories implements Categorizable.
func (t *Task) RemoveCategories(ev *Event, ids ...ID) bool {
	return t.categories.Remove(ev, t.id, ids...)
}

func (t *Task) AddEfforts(ev *Event, ids ...ID) bool { return t.efforts.Add(ev, t.id, ids...) }

func (t *Task) RemoveEfforts(ev *Event, ids ...ID) bool {
	return t.efforts.Remove(ev, t.id, ids...)
}

// AddNotes implements NoteOwner.
func (t *Task) AddNotes(ev *Event, ids ...ID) bool { return t.notes.Add(ev, t.id, ids...) }

// RemoveNotes implements NoteOwner.
func (t *Task) RemoveNotes(ev *Event, ids ...ID) bool { return t.notes.Remove(ev, t.id, ids...) }

// AddAttachments implements AttachmentOwner.
func (t *Task) AddAttachments(ev *Event, ids ...ID) bool {
	return t.attachments.Add(ev, t.id, ids...)
}

// RemoveAttachments implements AttachmentOwner.
func (t *Task) RemoveAttachments(ev *Event, ids ...ID) bool {
	return t.attachments.Remove(ev, t.id, ids...)
}

// Record implements Entity.
func (t *Task) Record() Record {
	return TaskRecord{
		ObjectRecord:        t.objectRecord(),
		Parent:              t.Parent(),
		Children:            t.Children(),
		PlannedStart:        t.plannedStart.Get(),
		Due:                 t.due.Get(),
		ActualStart:         t.actualStart.Get(),
		Completion:          t.completion.Get(),
		Reminder:            t.reminder.Get(),
		Priority:            t.priority.Get(),
		PercentageComplete:  t.percentage.Get(),
		Budget:              t.budget.Get(),
		HourlyFee:           t.hourlyFee.Get(),
		FixedFee:            t.fixedFee.Get(),
		ShouldMarkCompleted: t.shouldMarkCompleted.Get(),
		Recurrence:          t.recurrence.Get(),
		Prerequisites:       t.prerequisites.Get(),
		Dependencies:        t.dependencies.Get(),
		Categories:          t.categories.Get(),
		Efforts:             t.efforts.Items(),
		Notes:               t.notes.Items(),
		Attachments:         t.attachments.Items(),
	}
}

// Apply implements Entity.
func (t *Task) Apply(ev *Event, rec Record) error {
	r, ok := rec.(TaskRecord)
	if !ok || r.ID != t.id {
		return fmt.Errorf("apply %T to task %s: %w", rec, t.id, ErrRecordMismatch)
	}
	t.applyTask(ev, r)
	return nil
}

func (t *Task) applyTask(ev *Event, r TaskRecord) {
	t.SetPlannedStart(ev, r.PlannedStart)
	t.SetDue(ev, r.Due)
	t.SetActualStart(ev, r.ActualStart)
	t.SetCompletion(ev, r.Completion)
	t.SetReminder(ev, r.Reminder)
	t.SetPriority(ev, r.Priority)
	t.SetPercentageComplete(ev, r.PercentageComplete)
	t.SetBudget(ev, r.Budget)
	t.SetHourlyFee(ev, r.HourlyFee)
	t.SetFixedFee(ev, r.FixedFee)
	t.SetShouldMarkCompleted(ev, r.ShouldMarkCompleted)
	t.SetRecurrence(ev, r.Recurrence)
	t.prerequisites.Set(ev, t.id, r.Prerequisites)
	t.dependencies.Set(ev, t.id, r.Dependencies)
	t.categories.Set(ev, t.id, r.Categories)
	t.efforts.Set(ev, t.id, r.Efforts)
	t.notes.Set(ev, t.id, r.Notes)
	t.attachments.Set(ev, t.id, r.Attachments)
	t.applyObject(ev, r.ObjectRecord)
}

// TaskFromRecord rebuilds a task, including its tree position, from r.
func TaskFromRecord(r TaskRecord) *Task {
	t := NewTask(r.ID, r.Subject, r.Created)
	t.Object = objectFromRecord(r.ObjectRecord)
	t.Composite = newComposite(r.Parent)
	t.children = append([]ID(nil), r.Children...)
	t.applyTask(nil, r)
	return t
}
