package command

import (
	"slices"
	"time"

	"taskcoach/internal/core"
	"taskcoach/pkg/domain"
)

// effortSubject names an effort command after the task of the effort.
func (b *base) effortSubject(v core.View, id domain.ID) {
	if e, err := v.Effort(id); err == nil {
		b.nameFrom(v, e.Task())
	}
}

// allEfforts reports whether every item is an effort on a live task.
func allEfforts(v core.View, items []domain.ID) bool {
	for _, id := range items {
		if _, err := v.Effort(id); err != nil || v.IsDeleted(id) {
			return false
		}
	}
	return true
}

// NewEffort books an effort on each task. When an effort starts before the
// actual start of its task the actual start is pulled back; the overwritten
// actual starts are kept so undo restores exactly those.
type NewEffort struct {
	base
	tasks           []domain.ID
	start, stop     time.Time
	protos          []domain.Record
	oldActualStarts map[domain.ID]time.Time
}

// NewNewEffort returns a command booking an effort from start to stop on
// each task. A zero start means now; a zero stop leaves the effort running.
func NewNewEffort(tasks []domain.ID, start, stop time.Time) *NewEffort {
	efforts := make([]domain.ID, len(tasks))
	for i := range efforts {
		efforts[i] = domain.NewID()
	}
	return &NewEffort{
		base:            newBase(`New effort of "%s"`, "New efforts", efforts),
		tasks:           slices.Clone(tasks),
		start:           domain.NormalizeTime(start),
		stop:            domain.NormalizeTime(stop),
		oldActualStarts: make(map[domain.ID]time.Time),
	}
}

func (c *NewEffort) CanDo(v core.View) bool {
	if len(c.tasks) == 0 || !allTasks(v, c.tasks) || len(live(v, c.tasks)) != len(c.tasks) {
		return false
	}
	if c.stop.IsZero() {
		return true
	}
	start := c.start
	if start.IsZero() {
		start = v.Now()
	}
	return start.Before(c.stop)
}

func (c *NewEffort) Do(tx *core.Transaction) error {
	if c.protos == nil {
		c.nameFrom(tx, c.tasks[0])
		start := c.start
		if start.IsZero() {
			start = tx.Now()
		}
		for i, task := range c.tasks {
			c.protos = append(c.protos, domain.NewEffort(c.items[i], task, start, c.stop).Record())
		}
	}
	if err := c.touch(tx, dedupe(c.tasks)); err != nil {
		return err
	}
	for _, proto := range c.protos {
		e, err := domain.FromRecord(proto)
		if err != nil {
			return err
		}
		effort := e.(*domain.Effort)
		t, err := tx.Task(effort.Task())
		if err != nil {
			return err
		}
		if _, saved := c.oldActualStarts[t.ID()]; !saved {
			if actual := t.ActualStart(); actual.IsZero() || effort.Start().Before(actual) {
				c.oldActualStarts[t.ID()] = actual
			}
		}
		if err := tx.Insert(effort, -1); err != nil {
			return err
		}
	}
	return nil
}

func (c *NewEffort) Undo(tx *core.Transaction) error {
	for _, id := range c.items {
		if _, err := tx.Remove(id); err != nil {
			return err
		}
	}
	for _, task := range dedupe(c.tasks) {
		actual, saved := c.oldActualStarts[task]
		if !saved {
			continue
		}
		t, err := tx.Task(task)
		if err != nil {
			return err
		}
		t.SetActualStart(tx.Event(), actual)
		delete(c.oldActualStarts, task)
	}
	return c.untouch(tx)
}

func (c *NewEffort) Redo(tx *core.Transaction) error { return c.Do(tx) }

// DeleteEffort removes efforts from their tasks. Efforts are not kept as
// tombstones; undo books the same efforts again.
type DeleteEffort struct {
	base
	protos []domain.Record
	states savedStates
}

// NewDeleteEffort returns a command deleting efforts.
func NewDeleteEffort(efforts []domain.ID) *DeleteEffort {
	return &DeleteEffort{base: newBase(`Delete effort "%s"`, "Delete efforts", efforts)}
}

func (c *DeleteEffort) CanDo(v core.View) bool {
	return c.base.CanDo(v) && allEfforts(v, c.items)
}

func (c *DeleteEffort) taskIDs(v core.View) []domain.ID {
	var out []domain.ID
	for _, id := range c.items {
		if e, err := v.Effort(id); err == nil {
			out = append(out, e.Task())
		}
	}
	return dedupe(out)
}

func (c *DeleteEffort) Do(tx *core.Transaction) error {
	tasks := c.taskIDs(tx)
	if c.protos == nil {
		c.effortSubject(tx, c.items[0])
		records, err := capture(tx, c.items)
		if err != nil {
			return err
		}
		c.protos = records
		if err := c.states.save(tx, tasks); err != nil {
			return err
		}
	}
	if err := c.touch(tx, tasks); err != nil {
		return err
	}
	for _, id := range c.items {
		if _, err := tx.Remove(id); err != nil {
			return err
		}
	}
	return nil
}

func (c *DeleteEffort) Undo(tx *core.Transaction) error {
	for _, proto := range c.protos {
		e, err := domain.FromRecord(proto)
		if err != nil {
			return err
		}
		if err := tx.Insert(e, -1); err != nil {
			return err
		}
	}
	return c.states.restore(tx)
}

func (c *DeleteEffort) Redo(tx *core.Transaction) error { return c.Do(tx) }

func newEffortEdit(singular, plural string, items []domain.ID) *stateCommand {
	c := newState(singular, plural, items)
	c.scope = func(v core.View) []domain.ID {
		var tasks []domain.ID
		for _, id := range c.items {
			if e, err := v.Effort(id); err == nil {
				tasks = append(tasks, e.Task())
			}
		}
		return existing(v, slices.Concat(c.items, tasks))
	}
	return c
}

// NewEditEffortTask returns a command booking efforts on another task.
func NewEditEffortTask(efforts []domain.ID, task domain.ID) Command {
	c := newEffortEdit(`Change task of "%s" effort`, "Change task of effort", efforts)
	inner := c.scope
	c.scope = func(v core.View) []domain.ID { return existing(v, append(inner(v), task)) }
	c.check = func(v core.View) bool {
		_, err := v.Task(task)
		return err == nil && !v.IsDeleted(task) && allEfforts(v, c.items)
	}
	c.apply = func(tx *core.Transaction) error {
		c.effortSubject(tx, c.items[0])
		for _, id := range c.items {
			if err := tx.SetEffortTask(id, task); err != nil {
				return err
			}
		}
		return nil
	}
	return c
}

// NewEditEffortStart returns a command changing the start of efforts. The
// start must stay before the stop of every effort.
func NewEditEffortStart(efforts []domain.ID, start time.Time) Command {
	start = domain.NormalizeTime(start)
	c := newEffortEdit(`Change effort start date and time of "%s"`, "Change effort start date and time", efforts)
	c.check = func(v core.View) bool {
		if start.IsZero() || !allEfforts(v, c.items) {
			return false
		}
		for _, id := range c.items {
			e, _ := v.Effort(id)
			if !e.Tracking() && !start.Before(e.Stop()) {
				return false
			}
		}
		return true
	}
	c.apply = func(tx *core.Transaction) error {
		c.effortSubject(tx, c.items[0])
		for _, id := range c.items {
			if err := tx.SetEffortStart(id, start); err != nil {
				return err
			}
		}
		return nil
	}
	return c
}

// NewEditEffortStop returns a command changing the stop of efforts. The
// stop must come after the start; a zero stop resumes tracking.
func NewEditEffortStop(efforts []domain.ID, stop time.Time) Command {
	stop = domain.NormalizeTime(stop)
	c := newEffortEdit(`Change effort stop date and time of "%s"`, "Change effort stop date and time", efforts)
	c.check = func(v core.View) bool {
		if !allEfforts(v, c.items) {
			return false
		}
		for _, id := range c.items {
			e, _ := v.Effort(id)
			if !stop.IsZero() && !stop.After(e.Start()) {
				return false
			}
		}
		return true
	}
	c.apply = func(tx *core.Transaction) error {
		c.effortSubject(tx, c.items[0])
		for _, id := range c.items {
			if err := tx.SetEffortStop(id, stop); err != nil {
				return err
			}
		}
		return nil
	}
	return c
}
