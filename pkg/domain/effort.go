package domain

import (
	"fmt"
	"time"
)

// Effort is a period of time spent on a task. A zero stop time means the
// effort is still being tracked.
type Effort struct {
	Object

	task  Attribute[ID]
	start Attribute[time.Time]
	stop  Attribute[time.Time]
}

var _ Entity = (*Effort)(nil)

// NewEffort builds an effort on task starting at start. Use an empty id to
// generate one and a zero stop to start tracking.
func NewEffort(id, task ID, start, stop time.Time) *Effort {
	return &Effort{
		Object: newObject(id, "", start),
		task:   NewAttribute(task, EventEffortTask),
		start:  NewAttribute(NormalizeTime(start), EventEffortStart),
		stop:   NewAttribute(NormalizeTime(stop), EventEffortStop),
	}
}

func (e *Effort) Kind() Kind          { return KindEffort }
func (e *Effort) CloneEntity() Entity { return e.Clone() }

// Clone returns a copy of the effort.
func (e *Effort) Clone() *Effort {
	cp := *e
	return &cp
}

// Task returns the ID of the task the effort is booked on.
func (e *Effort) Task() ID { return e.task.Get() }

func (e *Effort) Start() time.Time { return e.start.Get() }
func (e *Effort) Stop() time.Time  { return e.stop.Get() }

// Tracking reports whether the effort has no stop time yet.
func (e *Effort) Tracking() bool { return e.stop.Get().IsZero() }

// Duration returns the effort length, measured up to now while tracking.
func (e *Effort) Duration(now time.Time) time.Duration {
	stop := e.stop.Get()
	if stop.IsZero() {
		stop = now
	}
	if d := stop.Sub(e.start.Get()); d > 0 {
		return d
	}
	return 0
}

func (e *Effort) SetTask(ev *Event, task ID) bool { return e.task.Set(ev, e.id, task) }

func (e *Effort) SetStart(ev *Event, t time.Time) bool {
	return e.start.Set(ev, e.id, NormalizeTime(t))
}

func (e *Effort) SetStop(ev *Event, t time.Time) bool {
	return e.stop.Set(ev, e.id, NormalizeTime(t))
}

// Record implements Entity.
func (e *Effort) Record() Record {
	return EffortRecord{
		ObjectRecord: e.objectRecord(),
		Task:         e.task.Get(),
		Start:        e.start.Get(),
		Stop:         e.stop.Get(),
	}
}

// Apply implements Entity.
func (e *Effort) Apply(ev *Event, rec Record) error {
	r, ok := rec.(EffortRecord)
	if !ok || r.ID != e.id {
		return fmt.Errorf("apply %T to effort %s: %w", rec, e.id, ErrRecordMismatch)
	}
	e.SetTask(ev, r.Task)
	e.SetStart(ev, r.Start)
	e.SetStop(ev, r.Stop)
	e.applyObject(ev, r.ObjectRecord)
	return nil
}

// EffortFromRecord rebuilds an effort from r.
func EffortFromRecord(r EffortRecord) *Effort {
	e := NewEffort(r.ID, r.Task, r.Start, r.Stop)
	e.Object = objectFromRecord(r.ObjectRecord)
	return e
}
