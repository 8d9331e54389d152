package core

import (
	"testing"
	"time"

	"taskcoach/pkg/domain"
)

func TestCompletingLastChildCompletesParent(t *testing.T) {
	doc := newTestDocument(t)
	addTask(t, doc, "parent", "")
	addTask(t, doc, "a", "parent")
	addTask(t, doc, "b", "parent")

	mustRun(t, doc, func(tx *Transaction) error { return tx.SetCompletion("a", testNow) })
	if viewTask(t, doc, "parent").Completed() {
		t.Fatalf("parent must stay open while a child is open")
	}
	ev := mustRun(t, doc, func(tx *Transaction) error { return tx.SetCompletion("b", testNow) })
	if !viewTask(t, doc, "parent").Completed() {
		t.Fatalf("expected parent completed with its last child")
	}
	if !ev.Has("parent", domain.EventCompletion) {
		t.Fatalf("expected parent completion in the same batch")
	}

	mustRun(t, doc, func(tx *Transaction) error { return tx.SetCompletion("a", time.Time{}) })
	if viewTask(t, doc, "parent").Completed() {
		t.Fatalf("reopening a child must reopen the parent")
	}
	if got := viewTask(t, doc, "a").PercentageComplete(); got != 0 {
		t.Fatalf("expected reopened child below 100%%, got %d", got)
	}
}

func TestParentSettingCanForbidAutoCompletion(t *testing.T) {
	doc := newTestDocument(t, WithSettings(Settings{DueSoonHours: 24}))
	addTask(t, doc, "parent", "")
	addTask(t, doc, "only", "parent")
	mustRun(t, doc, func(tx *Transaction) error { return tx.SetCompletion("only", testNow) })
	if viewTask(t, doc, "parent").Completed() {
		t.Fatalf("setting off: parent must stay open")
	}

	mustRun(t, doc, func(tx *Transaction) error {
		if err := tx.SetCompletion("only", time.Time{}); err != nil {
			return err
		}
		parent, _ := tx.Task("parent")
		parent.SetShouldMarkCompleted(tx.Event(), domain.Yes)
		return tx.SetCompletion("only", testNow)
	})
	if !viewTask(t, doc, "parent").Completed() {
		t.Fatalf("task override must complete the parent")
	}
}

func TestCompletingParentCompletesChildrenAndStopsTracking(t *testing.T) {
	doc := newTestDocument(t)
	addTask(t, doc, "parent", "")
	addTask(t, doc, "child", "parent")
	start := testNow.Add(-time.Hour)
	ev := mustRun(t, doc, func(tx *Transaction) error {
		parent, _ := tx.Task("parent")
		parent.SetReminder(tx.Event(), testNow.Add(time.Hour))
		return tx.Insert(domain.NewEffort("e1", "parent", start, time.Time{}), -1)
	})
	if !ev.Has("parent", domain.EventTracking) {
		t.Fatalf("expected tracking start notification")
	}

	ev = mustRun(t, doc, func(tx *Transaction) error { return tx.SetCompletion("parent", testNow) })
	parent := viewTask(t, doc, "parent")
	if !parent.Reminder().IsZero() || parent.PercentageComplete() != domain.PercentageCompleted {
		t.Fatalf("expected reminder cleared and 100%%, got %v %d", parent.Reminder(), parent.PercentageComplete())
	}
	if !viewTask(t, doc, "child").Completed() {
		t.Fatalf("expected child completed with parent")
	}
	payload, _ := ev.Payload("parent", domain.EventTracking)
	if payload != (domain.Value[bool]{New: false}) {
		t.Fatalf("expected tracking stop, got %#v", payload)
	}
	if err := doc.View(func(v View) error {
		e, err := v.Effort("e1")
		if err != nil {
			return err
		}
		if !e.Stop().Equal(testNow) {
			t.Fatalf("expected effort stopped at completion, got %v", e.Stop())
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestPercentageDrivesCompletionAndStart(t *testing.T) {
	doc := newTestDocument(t)
	addTask(t, doc, "t1", "")
	mustRun(t, doc, func(tx *Transaction) error { return tx.SetPercentageComplete("t1", 40) })
	task := viewTask(t, doc, "t1")
	if !task.ActualStart().Equal(testNow) {
		t.Fatalf("expected progress to start the task now, got %v", task.ActualStart())
	}
	mustRun(t, doc, func(tx *Transaction) error { return tx.SetPercentageComplete("t1", 100) })
	if !viewTask(t, doc, "t1").Completed() {
		t.Fatalf("expected 100%% to complete the task")
	}
	mustRun(t, doc, func(tx *Transaction) error { return tx.SetPercentageComplete("t1", 90) })
	if viewTask(t, doc, "t1").Completed() {
		t.Fatalf("expected leaving 100%% to reopen the task")
	}
}

func TestEffortPullsActualStartBack(t *testing.T) {
	doc := newTestDocument(t)
	addTask(t, doc, "t1", "")
	later := testNow.Add(-time.Hour)
	earlier := testNow.Add(-3 * time.Hour)
	mustRun(t, doc, func(tx *Transaction) error {
		task, _ := tx.Task("t1")
		task.SetActualStart(tx.Event(), later)
		return tx.Insert(domain.NewEffort("e1", "t1", earlier, testNow), -1)
	})
	if got := viewTask(t, doc, "t1").ActualStart(); !got.Equal(earlier) {
		t.Fatalf("expected actual start pulled back to %v, got %v", earlier, got)
	}
	mustRun(t, doc, func(tx *Transaction) error { return tx.SetEffortStart("e1", earlier.Add(-time.Hour)) })
	if got := viewTask(t, doc, "t1").ActualStart(); !got.Equal(earlier.Add(-time.Hour)) {
		t.Fatalf("expected actual start to follow the effort, got %v", got)
	}
}

func TestEffortTaskAndStopChanges(t *testing.T) {
	doc := newTestDocument(t)
	addTask(t, doc, "a", "")
	addTask(t, doc, "b", "")
	mustRun(t, doc, func(tx *Transaction) error {
		return tx.Insert(domain.NewEffort("e1", "a", testNow.Add(-time.Hour), time.Time{}), -1)
	})
	ev := mustRun(t, doc, func(tx *Transaction) error { return tx.SetEffortTask("e1", "b") })
	if !ev.Has("a", domain.EventEffortsRemoved) || !ev.Has("b", domain.EventEffortsAdded) {
		t.Fatalf("expected effort moved between tasks, got types %v", ev.Types())
	}
	if err := doc.View(func(v View) error {
		if v.Tracking("a") || !v.Tracking("b") {
			t.Fatalf("expected tracking to follow the effort")
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
	ev = mustRun(t, doc, func(tx *Transaction) error { return tx.SetEffortStop("e1", testNow) })
	if payload, _ := ev.Payload("b", domain.EventTracking); payload != (domain.Value[bool]{New: false}) {
		t.Fatalf("expected tracking stop for b, got %#v", payload)
	}
}

func TestPrerequisitesAreSymmetricAndAffectStatus(t *testing.T) {
	doc := newTestDocument(t)
	addTask(t, doc, "first", "")
	addTask(t, doc, "second", "")
	mustRun(t, doc, func(tx *Transaction) error {
		second, _ := tx.Task("second")
		second.SetPlannedStart(tx.Event(), testNow.Add(-time.Hour))
		return tx.LinkPrerequisites("second", "first", "second")
	})
	first := viewTask(t, doc, "first")
	if deps := first.Dependencies(); len(deps) != 1 || deps[0] != "second" {
		t.Fatalf("expected reverse dependency, got %v", deps)
	}
	if prereqs := viewTask(t, doc, "second").Prerequisites(); len(prereqs) != 1 {
		t.Fatalf("a task cannot be its own prerequisite, got %v", prereqs)
	}
	statusOf := func(id domain.ID) domain.TaskStatus {
		var s domain.TaskStatus
		_ = doc.View(func(v View) error { s = v.Status(id); return nil })
		return s
	}
	if statusOf("second") != domain.StatusInactive {
		t.Fatalf("expected open prerequisite to make the task inactive, got %s", statusOf("second"))
	}
	mustRun(t, doc, func(tx *Transaction) error { return tx.SetCompletion("first", testNow) })
	if statusOf("second") != domain.StatusLate {
		t.Fatalf("expected late once prerequisites complete, got %s", statusOf("second"))
	}
	mustRun(t, doc, func(tx *Transaction) error { return tx.UnlinkPrerequisites("second", "first") })
	if len(viewTask(t, doc, "first").Dependencies()) != 0 {
		t.Fatalf("expected reverse dependency removed")
	}
}

func TestTimeSpentAndTrackingTasks(t *testing.T) {
	doc := newTestDocument(t)
	addTask(t, doc, "parent", "")
	addTask(t, doc, "child", "parent")
	mustRun(t, doc, func(tx *Transaction) error {
		if err := tx.Insert(domain.NewEffort("e1", "parent", testNow.Add(-2*time.Hour), testNow.Add(-time.Hour)), -1); err != nil {
			return err
		}
		return tx.Insert(domain.NewEffort("e2", "child", testNow.Add(-30*time.Minute), time.Time{}), -1)
	})
	_ = doc.View(func(v View) error {
		if got := v.TimeSpent("parent", false); got != time.Hour {
			t.Fatalf("expected 1h on parent, got %v", got)
		}
		if got := v.TimeSpent("parent", true); got != 90*time.Minute {
			t.Fatalf("expected 90m including child, got %v", got)
		}
		return nil
	})
	mustRun(t, doc, func(tx *Transaction) error {
		tracking := tx.TrackingTasks()
		if len(tracking) != 1 || tracking[0] != "child" {
			t.Fatalf("expected child tracking, got %v", tracking)
		}
		stopped, err := tx.StopTracking("child", testNow)
		if err != nil || len(stopped) != 1 {
			t.Fatalf("expected one stopped effort, got %v %v", stopped, err)
		}
		return nil
	})
}

func TestRecurringTaskMovesDatesInsteadOfCompleting(t *testing.T) {
	doc := newTestDocument(t)
	addTask(t, doc, "weekly", "")
	addTask(t, doc, "child", "weekly")
	addTask(t, doc, "own", "weekly")
	start := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	due := time.Date(2024, 6, 11, 17, 0, 0, 0, time.UTC)
	mustRun(t, doc, func(tx *Transaction) error {
		task, _ := tx.Task("weekly")
		task.SetPlannedStart(tx.Event(), start)
		task.SetDue(tx.Event(), due)
		task.SetActualStart(tx.Event(), start)
		task.SetPercentageComplete(tx.Event(), 40)
		task.SetRecurrence(tx.Event(), domain.Recurrence{Unit: domain.RecurWeekly})
		own, _ := tx.Task("own")
		own.SetRecurrence(tx.Event(), domain.Recurrence{Unit: domain.RecurDaily})
		return nil
	})

	ev := mustRun(t, doc, func(tx *Transaction) error { return tx.SetCompletion("weekly", testNow) })
	got := viewTask(t, doc, "weekly")
	if got.Completed() || ev.Has("weekly", domain.EventCompletion) {
		t.Fatalf("recurring task must stay open")
	}
	if !got.Due().Equal(due.AddDate(0, 0, 7)) || !got.PlannedStart().Equal(start.AddDate(0, 0, 7)) {
		t.Fatalf("expected dates a week later, start=%v due=%v", got.PlannedStart(), got.Due())
	}
	if !got.ActualStart().IsZero() || got.PercentageComplete() != 0 || got.Recurrence().Count != 1 {
		t.Fatalf("expected a fresh occurrence, actual=%v pct=%d rec=%+v", got.ActualStart(), got.PercentageComplete(), got.Recurrence())
	}
	if viewTask(t, doc, "own").Recurrence().Count != 0 {
		t.Fatalf("a subtask with its own recurrence must not recur with its parent")
	}

	mustRun(t, doc, func(tx *Transaction) error {
		task, _ := tx.Task("weekly")
		task.SetRecurrence(tx.Event(), domain.Recurrence{Unit: domain.RecurMonthly, BasedOnCompletion: true})
		return tx.SetCompletion("weekly", testNow)
	})
	got = viewTask(t, doc, "weekly")
	if want := time.Date(2024, 7, 10, 17, 0, 0, 0, time.UTC); !got.Due().Equal(want) {
		t.Fatalf("expected due a month after completion at the old clock time, got %v want %v", got.Due(), want)
	}
	if period := got.Due().Sub(got.PlannedStart()); period != due.Sub(start) {
		t.Fatalf("expected the planned period to be kept, got %v", period)
	}
}

func TestCompletingParentEndsRecurrenceOfChildren(t *testing.T) {
	doc := newTestDocument(t)
	addTask(t, doc, "parent", "")
	addTask(t, doc, "daily", "parent")
	mustRun(t, doc, func(tx *Transaction) error {
		child, _ := tx.Task("daily")
		child.SetRecurrence(tx.Event(), domain.Recurrence{Unit: domain.RecurDaily})
		return nil
	})
	mustRun(t, doc, func(tx *Transaction) error { return tx.SetCompletion("parent", testNow) })
	child := viewTask(t, doc, "daily")
	if !child.Completed() || child.Recurrence().Active() {
		t.Fatalf("expected the recurring child completed for good, completed=%v rec=%+v", child.Completed(), child.Recurrence())
	}
}
