package core

import (
	"time"

	"taskcoach/pkg/domain"
)

// SetCompletion completes a task at at, or reopens it when at is zero, and
// applies the derived changes: a completed task loses its reminder, reaches
// 100%, stops tracking and completes its open subtasks; a parent whose last
// open child completes is completed when its setting says so, and reopening
// a child reopens a completed parent. A recurring task is not completed; its
// dates move to the next occurrence instead.
func (tx *Transaction) SetCompletion(id domain.ID, at time.Time) error {
	t, err := lookupAs[*domain.Task](tx.arena, id, domain.KindTask)
	if err != nil {
		return err
	}
	tx.setCompletion(t, domain.NormalizeTime(at))
	return nil
}

func (tx *Transaction) setCompletion(t *domain.Task, at time.Time) {
	if !at.IsZero() && !at.Equal(t.Completion()) && t.Recurrence().Active() {
		tx.recur(t, t.Recurrence(), at)
		return
	}
	if !t.SetCompletion(tx.ev, at) {
		return
	}
	parent, _ := lookupAs[*domain.Task](tx.arena, t.Parent(), domain.KindTask)
	if at.IsZero() {
		if t.PercentageComplete() == domain.PercentageCompleted {
			t.SetPercentageComplete(tx.ev, 0)
		}
		if parent != nil && parent.Completed() {
			tx.setCompletion(parent, time.Time{})
		}
		return
	}
	t.SetReminder(tx.ev, time.Time{})
	t.SetPercentageComplete(tx.ev, domain.PercentageCompleted)
	if parent != nil && tx.shouldMarkCompleted(parent) {
		tx.setCompletion(parent, at)
	}
	for _, child := range t.Children() {
		ct, err := lookupAs[*domain.Task](tx.arena, child, domain.KindTask)
		if err != nil || ct.Completed() || tx.IsDeleted(child) {
			continue
		}
		ct.SetRecurrence(tx.ev, domain.Recurrence{})
		tx.setCompletion(ct, at)
	}
	tx.stopTracking(t, at)
}

// recur reopens t and moves its dates one occurrence of rec ahead, basing
// them on at when rec says so. Subtasks without a recurrence of their own
// recur along with it.
func (tx *Transaction) recur(t *domain.Task, rec domain.Recurrence, at time.Time) {
	t.SetCompletion(tx.ev, time.Time{})
	due, start := t.Due(), t.PlannedStart()
	var nextDue time.Time
	if !due.IsZero() {
		basis := due
		if rec.BasedOnCompletion {
			basis = at
		}
		nextDue = withClock(rec.Next(basis), due)
		t.SetDue(tx.ev, nextDue)
	}
	if !start.IsZero() {
		var next time.Time
		if due.IsZero() {
			basis := start
			if rec.BasedOnCompletion {
				basis = at
			}
			next = withClock(rec.Next(basis), start)
		} else {
			next = nextDue.Add(-due.Sub(start))
		}
		t.SetPlannedStart(tx.ev, next)
	}
	t.SetActualStart(tx.ev, time.Time{})
	t.SetPercentageComplete(tx.ev, 0)
	if reminder := t.Reminder(); !reminder.IsZero() {
		t.SetReminder(tx.ev, rec.Next(reminder))
	}
	for _, child := range t.Children() {
		ct, err := lookupAs[*domain.Task](tx.arena, child, domain.KindTask)
		if err != nil || tx.IsDeleted(child) || ct.Recurrence().Active() {
			continue
		}
		tx.recur(ct, rec, at)
	}
	if own := t.Recurrence(); own.Active() {
		t.SetRecurrence(tx.ev, own.Advance())
	}
}

// withClock returns the date of day at the clock time of clock.
func withClock(day, clock time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), clock.Second(), clock.Nanosecond(), clock.Location())
}

func (tx *Transaction) shouldMarkCompleted(t *domain.Task) bool {
	if t.Completed() || !t.ShouldMarkCompleted().Resolve(tx.settings.MarkParentCompletedWhenAllChildrenCompleted) {
		return false
	}
	open := 0
	live := 0
	for _, child := range t.Children() {
		ct, err := lookupAs[*domain.Task](tx.arena, child, domain.KindTask)
		if err != nil || tx.IsDeleted(child) {
			continue
		}
		live++
		if !ct.Completed() {
			open++
		}
	}
	return live > 0 && open == 0
}

// SetPercentageComplete sets the percentage of a task. Reaching 100%
// completes the task, leaving 100% reopens it and any progress on a task
// that has not started yet starts it now.
func (tx *Transaction) SetPercentageComplete(id domain.ID, p int) error {
	t, err := lookupAs[*domain.Task](tx.arena, id, domain.KindTask)
	if err != nil {
		return err
	}
	if !t.SetPercentageComplete(tx.ev, p) {
		return nil
	}
	p = t.PercentageComplete()
	switch {
	case p == domain.PercentageCompleted && !t.Completed():
		tx.setCompletion(t, tx.now)
	case p != domain.PercentageCompleted && t.Completed():
		tx.setCompletion(t, time.Time{})
	}
	if p > 0 && p < domain.PercentageCompleted && t.ActualStart().IsZero() {
		t.SetActualStart(tx.ev, tx.now)
	}
	return nil
}

// StopTracking stops the running efforts of a task at at and returns their IDs.
func (tx *Transaction) StopTracking(task domain.ID, at time.Time) ([]domain.ID, error) {
	t, err := lookupAs[*domain.Task](tx.arena, task, domain.KindTask)
	if err != nil {
		return nil, err
	}
	return tx.stopTracking(t, at), nil
}

func (tx *Transaction) stopTracking(t *domain.Task, at time.Time) []domain.ID {
	var stopped []domain.ID
	for _, id := range t.Efforts() {
		e, err := lookupAs[*domain.Effort](tx.arena, id, domain.KindEffort)
		if err != nil || !e.Tracking() {
			continue
		}
		if at.Before(e.Start()) {
			e.SetStop(tx.ev, e.Start())
		} else {
			e.SetStop(tx.ev, at)
		}
		stopped = append(stopped, id)
	}
	if len(stopped) > 0 {
		tx.ev.AddSource(t.ID(), domain.EventTracking, domain.Value[bool]{New: false})
	}
	return stopped
}

// TrackingTasks returns the live tasks with a running effort.
func (tx *Transaction) TrackingTasks() []domain.ID {
	var out []domain.ID
	for _, id := range tx.Live(domain.TaskListID) {
		if tx.Tracking(id) {
			out = append(out, id)
		}
	}
	return out
}

func (tx *Transaction) bookEffort(e *domain.Effort) error {
	t, err := lookupAs[*domain.Task](tx.arena, e.Task(), domain.KindTask)
	if err != nil {
		return err
	}
	wasTracking := tx.Tracking(t.ID())
	t.AddEfforts(tx.ev, e.ID())
	pullActualStart(tx.ev, t, e.Start())
	if e.Tracking() && !wasTracking {
		tx.ev.AddSource(t.ID(), domain.EventTracking, domain.Value[bool]{New: true})
	}
	return nil
}

func (tx *Transaction) unbookEffort(e *domain.Effort) {
	t, err := lookupAs[*domain.Task](tx.arena, e.Task(), domain.KindTask)
	if err != nil {
		return
	}
	if t.RemoveEfforts(tx.ev, e.ID()) && e.Tracking() && !tx.Tracking(t.ID()) {
		tx.ev.AddSource(t.ID(), domain.EventTracking, domain.Value[bool]{New: false})
	}
}

// pullActualStart moves the actual start of t back to start when the task
// has not started yet or started later.
func pullActualStart(ev *domain.Event, t *domain.Task, start time.Time) {
	if start.IsZero() {
		return
	}
	if actual := t.ActualStart(); actual.IsZero() || start.Before(actual) {
		t.SetActualStart(ev, start)
	}
}

// SetEffortStart changes the start of an effort and pulls the actual start
// of its task back if needed.
func (tx *Transaction) SetEffortStart(id domain.ID, start time.Time) error {
	e, err := lookupAs[*domain.Effort](tx.arena, id, domain.KindEffort)
	if err != nil {
		return err
	}
	if !e.SetStart(tx.ev, start) {
		return nil
	}
	if t, err := lookupAs[*domain.Task](tx.arena, e.Task(), domain.KindTask); err == nil {
		pullActualStart(tx.ev, t, e.Start())
	}
	return nil
}

// SetEffortStop changes the stop of an effort; a zero stop resumes tracking.
func (tx *Transaction) SetEffortStop(id domain.ID, stop time.Time) error {
	e, err := lookupAs[*domain.Effort](tx.arena, id, domain.KindEffort)
	if err != nil {
		return err
	}
	wasTracking := tx.Tracking(e.Task())
	if !e.SetStop(tx.ev, stop) {
		return nil
	}
	if tracking := tx.Tracking(e.Task()); tracking != wasTracking {
		tx.ev.AddSource(e.Task(), domain.EventTracking, domain.Value[bool]{New: tracking})
	}
	return nil
}

// SetEffortTask books an effort on another task.
func (tx *Transaction) SetEffortTask(id, task domain.ID) error {
	e, err := lookupAs[*domain.Effort](tx.arena, id, domain.KindEffort)
	if err != nil {
		return err
	}
	if e.Task() == task {
		return nil
	}
	if _, err := lookupAs[*domain.Task](tx.arena, task, domain.KindTask); err != nil {
		return err
	}
	tx.unbookEffort(e)
	e.SetTask(tx.ev, task)
	return tx.bookEffort(e)
}

// LinkPrerequisites makes task wait for prerequisites and records the
// reverse dependency on each of them.
func (tx *Transaction) LinkPrerequisites(task domain.ID, prerequisites ...domain.ID) error {
	t, err := lookupAs[*domain.Task](tx.arena, task, domain.KindTask)
	if err != nil {
		return err
	}
	for _, id := range prerequisites {
		p, err := lookupAs[*domain.Task](tx.arena, id, domain.KindTask)
		if err != nil {
			return err
		}
		if id == task {
			continue
		}
		t.AddPrerequisites(tx.ev, id)
		p.AddDependencies(tx.ev, task)
	}
	return nil
}

// UnlinkPrerequisites removes prerequisite relations and their reverse side.
func (tx *Transaction) UnlinkPrerequisites(task domain.ID, prerequisites ...domain.ID) error {
	t, err := lookupAs[*domain.Task](tx.arena, task, domain.KindTask)
	if err != nil {
		return err
	}
	for _, id := range prerequisites {
		t.RemovePrerequisites(tx.ev, id)
		if p, err := lookupAs[*domain.Task](tx.arena, id, domain.KindTask); err == nil {
			p.RemoveDependencies(tx.ev, task)
		}
	}
	return nil
}
