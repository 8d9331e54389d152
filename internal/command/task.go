package command

import (
	"slices"
	"time"

	"taskcoach/internal/core"
	"taskcoach/pkg/domain"
)

// NewTask returns a command creating a root task.
func NewTask(subject string, opts ...ItemOption) Command {
	return newTaskItems("New task", "New tasks", []domain.ID{""}, subject, opts)
}

// NewSubTask returns a command creating a subtask below each parent. The
// subtask cannot start before or be due after its parent, and completed
// parents are reopened.
func NewSubTask(parents []domain.ID, subject string, opts ...ItemOption) Command {
	c := newTaskItems(`New subtask of "%s"`, "New subtasks", parents, subject, opts)
	c.reopen = true
	return c
}

func newTaskItems(singular, plural string, parents []domain.ID, subject string, opts []ItemOption) *newItem {
	spec := specOf(opts)
	c := newNewItem(singular, plural, parents)
	c.build = func(tx *core.Transaction, id, parent domain.ID) (domain.Entity, error) {
		t := domain.NewTask(id, subject, tx.Now())
		start, due := spec.plannedStart, spec.due
		if parent != "" {
			p, err := tx.Task(parent)
			if err != nil {
				return nil, err
			}
			if !start.IsZero() && p.PlannedStart().After(start) {
				start = p.PlannedStart()
			}
			if due.IsZero() || (!p.Due().IsZero() && p.Due().Before(due)) {
				due = p.Due()
			}
			t.Tree().SetParent(nil, id, parent)
		}
		t.SetDescription(nil, spec.description)
		t.SetPlannedStart(nil, start)
		t.SetDue(nil, due)
		t.SetReminder(nil, spec.reminder)
		t.SetPriority(nil, spec.priority)
		return t, nil
	}
	link, unlink := categorize(spec.categories)
	prerequisites := slices.Clone(spec.prerequisites)
	c.link = func(tx *core.Transaction, id domain.ID) error {
		if link != nil {
			if err := link(tx, id); err != nil {
				return err
			}
		}
		return tx.LinkPrerequisites(id, live(tx, prerequisites)...)
	}
	c.unlink = func(tx *core.Transaction, id domain.ID) error {
		if unlink != nil {
			if err := unlink(tx, id); err != nil {
				return err
			}
		}
		return tx.UnlinkPrerequisites(id, prerequisites...)
	}
	return c
}

// allTasks reports whether every item is a task.
func allTasks(v core.View, items []domain.ID) bool {
	for _, id := range items {
		if _, err := v.Task(id); err != nil {
			return false
		}
	}
	return true
}

// anyTask reports whether some item is a task satisfying ok.
func anyTask(v core.View, items []domain.ID, ok func(*domain.Task) bool) bool {
	return slices.ContainsFunc(items, func(id domain.ID) bool {
		t, err := v.Task(id)
		return err == nil && ok(t)
	})
}

// eachTask calls fn for the items that are tasks satisfying ok at the time
// of the call.
func eachTask(tx *core.Transaction, items []domain.ID, ok func(*domain.Task) bool, fn func(*domain.Task) error) error {
	for _, id := range items {
		t, err := tx.Task(id)
		if err != nil {
			return err
		}
		if ok != nil && !ok(t) {
			continue
		}
		if err := fn(t); err != nil {
			return err
		}
	}
	return nil
}

func isOpen(t *domain.Task) bool { return !t.Completed() }

// NewMarkCompleted returns a command completing the open tasks among items now.
func NewMarkCompleted(items []domain.ID) Command {
	c := newState(`Mark "%s" completed`, "Mark tasks completed", items)
	c.check = func(v core.View) bool { return allTasks(v, c.items) && anyTask(v, c.items, isOpen) }
	c.apply = func(tx *core.Transaction) error {
		return eachTask(tx, c.items, isOpen, func(t *domain.Task) error {
			return tx.SetCompletion(t.ID(), tx.Now())
		})
	}
	return c
}

// NewMarkActive returns a command starting tasks now and reopening them.
func NewMarkActive(items []domain.ID) Command {
	c := newState(`Mark "%s" active`, "Mark task active", items)
	inactive := func(now time.Time) func(*domain.Task) bool {
		return func(t *domain.Task) bool {
			return t.ActualStart().IsZero() || t.ActualStart().After(now) || t.Completed()
		}
	}
	c.check = func(v core.View) bool { return allTasks(v, c.items) && anyTask(v, c.items, inactive(v.Now())) }
	c.apply = func(tx *core.Transaction) error {
		return eachTask(tx, c.items, inactive(tx.Now()), func(t *domain.Task) error {
			if t.ActualStart().IsZero() || t.ActualStart().After(tx.Now()) {
				t.SetActualStart(tx.Event(), tx.Now())
			}
			return tx.SetCompletion(t.ID(), time.Time{})
		})
	}
	return c
}

// NewMarkInactive returns a command clearing the actual start and the
// completion of tasks.
func NewMarkInactive(items []domain.ID) Command {
	c := newState(`Mark "%s" inactive`, "Mark task inactive", items)
	started := func(t *domain.Task) bool { return !t.ActualStart().IsZero() || t.Completed() }
	c.check = func(v core.View) bool { return allTasks(v, c.items) && anyTask(v, c.items, started) }
	c.apply = func(tx *core.Transaction) error {
		return eachTask(tx, c.items, started, func(t *domain.Task) error {
			if err := tx.SetCompletion(t.ID(), time.Time{}); err != nil {
				return err
			}
			t.SetActualStart(tx.Event(), time.Time{})
			return nil
		})
	}
	return c
}

func itemsOnly(c *stateCommand) func(core.View) []domain.ID {
	return func(core.View) []domain.ID { return c.items }
}

func newPriorityChange(singular, plural string, items []domain.ID, delta int) Command {
	c := newState(singular, plural, items)
	c.scope = itemsOnly(c)
	c.check = func(v core.View) bool { return allTasks(v, c.items) }
	c.apply = func(tx *core.Transaction) error {
		return eachTask(tx, c.items, nil, func(t *domain.Task) error {
			t.SetPriority(tx.Event(), t.Priority()+delta)
			return nil
		})
	}
	return c
}

// NewIncreasePriority returns a command raising the priority of tasks by one.
func NewIncreasePriority(items []domain.ID) Command {
	return newPriorityChange(`Increase priority of "%s"`, "Increase priority", items, 1)
}

// NewDecreasePriority returns a command lowering the priority of tasks by one.
func NewDecreasePriority(items []domain.ID) Command {
	return newPriorityChange(`Decrease priority of "%s"`, "Decrease priority", items, -1)
}

func newExtremePriority(singular, plural string, items []domain.ID, highest bool) Command {
	c := newState(singular, plural, items)
	c.scope = itemsOnly(c)
	c.check = func(v core.View) bool { return allTasks(v, c.items) }
	c.apply = func(tx *core.Transaction) error {
		var priorities []int
		for _, id := range tx.Live(domain.TaskListID) {
			if t, err := tx.Task(id); err == nil {
				priorities = append(priorities, t.Priority())
			}
		}
		if len(priorities) == 0 {
			return nil
		}
		extreme := slices.Min(priorities) - 1
		if highest {
			extreme = slices.Max(priorities) + 1
		}
		return eachTask(tx, c.items, nil, func(t *domain.Task) error {
			t.SetPriority(tx.Event(), extreme)
			return nil
		})
	}
	return c
}

// NewMaxPriority returns a command giving tasks a priority above all others.
func NewMaxPriority(items []domain.ID) Command {
	return newExtremePriority(`Maximize priority of "%s"`, "Maximize priority", items, true)
}

// NewMinPriority returns a command giving tasks a priority below all others.
func NewMinPriority(items []domain.ID) Command {
	return newExtremePriority(`Minimize priority of "%s"`, "Minimize priority", items, false)
}

// NewEditPriority returns a command setting the priority of tasks.
func NewEditPriority(items []domain.ID, priority int) Command {
	return newEdit(`Change priority of "%s"`, "Change priority", items, priority,
		attr(core.View.Task, (*domain.Task).Priority, (*domain.Task).SetPriority))
}

// period is one end of a date range of a task and how to reach the other end.
type period struct {
	get      func(*domain.Task) time.Time
	set      func(tx *core.Transaction, t *domain.Task, v time.Time) error
	getOther func(*domain.Task) time.Time
	setOther func(tx *core.Transaction, t *domain.Task, v time.Time) error
}

func setPlannedStart(tx *core.Transaction, t *domain.Task, v time.Time) error {
	t.SetPlannedStart(tx.Event(), v)
	return nil
}

func setDue(tx *core.Transaction, t *domain.Task, v time.Time) error {
	t.SetDue(tx.Event(), v)
	return nil
}

func setActualStart(tx *core.Transaction, t *domain.Task, v time.Time) error {
	t.SetActualStart(tx.Event(), v)
	return nil
}

func setCompletion(tx *core.Transaction, t *domain.Task, v time.Time) error {
	return tx.SetCompletion(t.ID(), v)
}

// newPeriodEdit sets one end of a period. With keepDelta the other end
// moves along when both ends and the new value are set.
func newPeriodEdit(singular, plural string, items []domain.ID, value time.Time, keepDelta bool, p period) Command {
	value = domain.NormalizeTime(value)
	c := newState(singular, plural, items)
	c.check = func(v core.View) bool { return allTasks(v, c.items) }
	c.apply = func(tx *core.Transaction) error {
		return eachTask(tx, c.items, nil, func(t *domain.Task) error {
			current, other := p.get(t), p.getOther(t)
			if keepDelta && p.setOther != nil && !value.IsZero() && !current.IsZero() && !other.IsZero() {
				if err := p.setOther(tx, t, other.Add(value.Sub(current))); err != nil {
					return err
				}
			}
			return p.set(tx, t, value)
		})
	}
	return c
}

// NewEditPlannedStart returns a command setting the planned start of tasks.
func NewEditPlannedStart(items []domain.ID, start time.Time, keepDelta bool) Command {
	return newPeriodEdit(`Change planned start date of "%s"`, "Change planned start date", items, start, keepDelta,
		period{get: (*domain.Task).PlannedStart, set: setPlannedStart, getOther: (*domain.Task).Due, setOther: setDue})
}

// NewEditDue returns a command setting the due date of tasks.
func NewEditDue(items []domain.ID, due time.Time, keepDelta bool) Command {
	return newPeriodEdit(`Change due date of "%s"`, "Change due date", items, due, keepDelta,
		period{get: (*domain.Task).Due, set: setDue, getOther: (*domain.Task).PlannedStart, setOther: setPlannedStart})
}

// NewEditActualStart returns a command setting the actual start of tasks.
func NewEditActualStart(items []domain.ID, start time.Time, keepDelta bool) Command {
	return newPeriodEdit(`Change actual start date of "%s"`, "Change actual start date", items, start, keepDelta,
		period{get: (*domain.Task).ActualStart, set: setActualStart, getOther: (*domain.Task).Completion, setOther: setCompletion})
}

// NewEditCompletion returns a command completing tasks at the given time, or
// reopening them when it is zero.
func NewEditCompletion(items []domain.ID, completion time.Time) Command {
	return newPeriodEdit(`Change completion date of "%s"`, "Change completion date", items, completion, false,
		period{get: (*domain.Task).Completion, set: setCompletion, getOther: (*domain.Task).ActualStart})
}

// NewEditReminder returns a command setting the reminder of tasks.
func NewEditReminder(items []domain.ID, reminder time.Time) Command {
	return newEdit(`Change reminder date/time of "%s"`, "Change reminder dates/times", items, domain.NormalizeTime(reminder),
		attr(core.View.Task, (*domain.Task).Reminder, (*domain.Task).SetReminder))
}

// NewEditPercentageComplete returns a command setting the progress of tasks.
func NewEditPercentageComplete(items []domain.ID, percentage int) Command {
	c := newState(`Change percentage complete of "%s"`, "Change percentages complete", items)
	c.check = func(v core.View) bool { return allTasks(v, c.items) }
	c.apply = func(tx *core.Transaction) error {
		for _, id := range c.items {
			if err := tx.SetPercentageComplete(id, percentage); err != nil {
				return err
			}
		}
		return nil
	}
	return c
}

// NewEditBudget returns a command setting the budget of tasks.
func NewEditBudget(items []domain.ID, budget time.Duration) Command {
	return newEdit(`Change budget of "%s"`, "Change budgets", items, budget,
		attr(core.View.Task, (*domain.Task).Budget, (*domain.Task).SetBudget))
}

// NewEditHourlyFee returns a command setting the hourly fee of tasks.
func NewEditHourlyFee(items []domain.ID, fee float64) Command {
	return newEdit(`Change hourly fee of "%s"`, "Change hourly fees", items, fee,
		attr(core.View.Task, (*domain.Task).HourlyFee, (*domain.Task).SetHourlyFee))
}

// NewEditFixedFee returns a command setting the fixed fee of tasks.
func NewEditFixedFee(items []domain.ID, fee float64) Command {
	return newEdit(`Change fixed fee of "%s"`, "Change fixed fees", items, fee,
		attr(core.View.Task, (*domain.Task).FixedFee, (*domain.Task).SetFixedFee))
}

// NewEditShouldMarkCompleted returns a command setting whether tasks
// complete once all their children are completed.
func NewEditShouldMarkCompleted(items []domain.ID, value domain.TriState) Command {
	return newEdit(`Change when "%s" is marked completed`, "Change when tasks are marked completed", items, value,
		attr(core.View.Task, (*domain.Task).ShouldMarkCompleted, (*domain.Task).SetShouldMarkCompleted))
}

// NewEditRecurrence returns a command setting how tasks repeat. The zero
// Recurrence stops them from recurring.
func NewEditRecurrence(items []domain.ID, rec domain.Recurrence) Command {
	return newEdit(`Change recurrence of "%s"`, "Change recurrence", items, rec,
		attr(core.View.Task, (*domain.Task).Recurrence, (*domain.Task).SetRecurrence))
}

// NewEditPrerequisites returns a command making tasks wait for add and no
// longer wait for remove.
func NewEditPrerequisites(items, add, remove []domain.ID) Command {
	c := newState(`Change prerequisites of "%s"`, "Change prerequisites", items)
	add, remove = slices.Clone(add), slices.Clone(remove)
	c.scope = func(v core.View) []domain.ID {
		return existing(v, slices.Concat(c.items, add, remove))
	}
	c.check = func(v core.View) bool {
		return allTasks(v, c.items) && allTasks(v, add) && len(live(v, add)) == len(add)
	}
	c.apply = func(tx *core.Transaction) error {
		for _, id := range c.items {
			if err := tx.LinkPrerequisites(id, add...); err != nil {
				return err
			}
			if err := tx.UnlinkPrerequisites(id, remove...); err != nil {
				return err
			}
		}
		return nil
	}
	return c
}

// StartEffort books a running effort on each task, stopping the efforts
// running anywhere else first.
type StartEffort struct {
	base
	efforts []domain.ID
	protos  []domain.Record
	states  savedStates
}

// NewStartEffort returns a command starting to track tasks.
func NewStartEffort(items []domain.ID) *StartEffort {
	efforts := make([]domain.ID, len(items))
	for i := range efforts {
		efforts[i] = domain.NewID()
	}
	return &StartEffort{base: newBase(`Start tracking "%s"`, "Start tracking", items), efforts: efforts}
}

// Efforts returns the IDs of the efforts the command books.
func (c *StartEffort) Efforts() []domain.ID { return slices.Clone(c.efforts) }

func (c *StartEffort) CanDo(v core.View) bool {
	return c.base.CanDo(v) && allTasks(v, c.items) && len(live(v, c.items)) == len(c.items) &&
		anyTask(v, c.items, func(t *domain.Task) bool { return !v.Tracking(t.ID()) })
}

func (c *StartEffort) Do(tx *core.Transaction) error {
	if c.protos == nil {
		for i, id := range c.items {
			c.protos = append(c.protos, domain.NewEffort(c.efforts[i], id, tx.Now(), time.Time{}).Record())
		}
	}
	tracking := tx.TrackingTasks()
	scope := slices.Concat(c.items, tracking)
	for _, id := range tracking {
		scope = append(scope, tx.Efforts(id, false)...)
	}
	if err := c.states.save(tx, scope); err != nil {
		return err
	}
	if err := c.touch(tx, c.items); err != nil {
		return err
	}
	for _, id := range tracking {
		if _, err := tx.StopTracking(id, tx.Now()); err != nil {
			return err
		}
	}
	return c.insert(tx)
}

func (c *StartEffort) insert(tx *core.Transaction) error {
	for _, proto := range c.protos {
		e, err := domain.FromRecord(proto)
		if err != nil {
			return err
		}
		if err := tx.Insert(e, -1); err != nil {
			return err
		}
	}
	return nil
}

func (c *StartEffort) Undo(tx *core.Transaction) error {
	for _, id := range c.efforts {
		if _, err := tx.Remove(id); err != nil {
			return err
		}
	}
	return c.states.undo(tx)
}

func (c *StartEffort) Redo(tx *core.Transaction) error {
	if err := c.states.redo(tx); err != nil {
		return err
	}
	return c.insert(tx)
}

// NewStopEffort returns a command stopping the running efforts of tasks,
// or of all tasks when items is empty. It can always be done.
func NewStopEffort(items []domain.ID) Command {
	c := newState(`Stop tracking "%s"`, "Stop tracking", items)
	targets := func(v core.View) []domain.ID {
		if len(c.items) > 0 {
			return c.items
		}
		var out []domain.ID
		for _, id := range v.Live(domain.TaskListID) {
			if v.Tracking(id) {
				out = append(out, id)
			}
		}
		return out
	}
	c.scope = func(v core.View) []domain.ID {
		var ids []domain.ID
		for _, id := range targets(v) {
			ids = append(ids, v.Efforts(id, false)...)
		}
		return ids
	}
	c.apply = func(tx *core.Transaction) error {
		for _, id := range targets(tx) {
			if _, err := tx.StopTracking(id, tx.Now()); err != nil {
				return err
			}
		}
		return nil
	}
	return &stopEffort{stateCommand: c}
}

type stopEffort struct{ *stateCommand }

func (c *stopEffort) CanDo(core.View) bool { return true }
