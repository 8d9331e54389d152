package domain

import "time"

// TaskStatus is the state of a task derived from its dates.
type TaskStatus string

// Task statuses. Completed, active and inactive are disjoint; due soon,
// overdue and late refine the open states.
const (
	StatusInactive  TaskStatus = "inactive"
	StatusLate      TaskStatus = "late"
	StatusActive    TaskStatus = "active"
	StatusDueSoon   TaskStatus = "duesoon"
	StatusOverdue   TaskStatus = "overdue"
	StatusCompleted TaskStatus = "completed"
)

// Statuses lists every task status in display order.
func Statuses() []TaskStatus {
	return []TaskStatus{StatusInactive, StatusLate, StatusActive, StatusDueSoon, StatusOverdue, StatusCompleted}
}

// StatusEventTypes are the events that can change a task's status.
var StatusEventTypes = []EventType{
	EventPlannedStart, EventDue, EventActualStart, EventCompletion,
	EventPrerequisites, EventDeleted,
}

// Status derives the status of t at now. prerequisitesOpen reports whether
// any prerequisite, inherited ones included, is still open.
func (t *Task) Status(now time.Time, dueSoon time.Duration, prerequisitesOpen bool) TaskStatus {
	if t.Completed() {
		return StatusCompleted
	}
	due := t.Due()
	if !due.IsZero() {
		left := due.Sub(now)
		if left < 0 {
			return StatusOverdue
		}
		if left < dueSoon {
			return StatusDueSoon
		}
	}
	if start := t.ActualStart(); !start.IsZero() && !start.After(now) {
		return StatusActive
	}
	if prerequisitesOpen {
		return StatusInactive
	}
	if planned := t.PlannedStart(); !planned.IsZero() && planned.Before(now) {
		return StatusLate
	}
	return StatusInactive
}
