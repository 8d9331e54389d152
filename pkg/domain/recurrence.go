package domain

import "time"

// RecurrenceUnit is the period of a recurring task. The empty unit means the
// task does not recur.
type RecurrenceUnit string

const (
	RecurNever   RecurrenceUnit = ""
	RecurDaily   RecurrenceUnit = "daily"
	RecurWeekly  RecurrenceUnit = "weekly"
	RecurMonthly RecurrenceUnit = "monthly"
	RecurYearly  RecurrenceUnit = "yearly"
)

// Recurrence describes how a task repeats. Completing a recurring task moves
// its dates to the next occurrence instead of completing it.
type Recurrence struct {
	Unit RecurrenceUnit `json:"unit,omitempty"`
	// Amount is the number of units between occurrences; values below one
	// count as one.
	Amount int `json:"amount,omitempty"`
	// SameWeekday makes a monthly recurrence land on the same weekday of the
	// month, e.g. the second Tuesday, instead of the same day.
	SameWeekday bool `json:"same_weekday,omitempty"`
	// Max is the number of recurrences after which the task stops recurring;
	// zero is unlimited. Count is how many have happened.
	Max   int `json:"max,omitempty"`
	Count int `json:"count,omitempty"`
	// BasedOnCompletion computes the next dates from the completion time
	// rather than from the current dates.
	BasedOnCompletion bool `json:"based_on_completion,omitempty"`
}

// Active reports whether the recurrence repeats at all.
func (r Recurrence) Active() bool { return r.Unit != RecurNever }

// Next returns the occurrence after t. The clock time of t is kept.
func (r Recurrence) Next(t time.Time) time.Time {
	if t.IsZero() || !r.Active() {
		return t
	}
	n := max(r.Amount, 1)
	switch r.Unit {
	case RecurDaily:
		return t.AddDate(0, 0, n)
	case RecurWeekly:
		return t.AddDate(0, 0, 7*n)
	case RecurMonthly:
		if r.SameWeekday {
			return sameWeekdayOfMonth(t, n)
		}
		return addMonths(t, n)
	case RecurYearly:
		return addMonths(t, 12*n)
	}
	return t
}

// Advance returns the recurrence after one more occurrence. It becomes
// inactive once Max is reached.
func (r Recurrence) Advance() Recurrence {
	if !r.Active() {
		return r
	}
	r.Count++
	if r.Max > 0 && r.Count >= r.Max {
		r.Unit = RecurNever
	}
	return r
}

// addMonths adds months to t, clamping the day to the end of the target
// month so that January 31st is followed by the last day of February.
func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	return first.AddDate(0, 0, min(d, daysIn(first))-1)
}

// sameWeekdayOfMonth finds the same weekday of the same week of the month
// months later. A fifth weekday that does not exist becomes the last one.
func sameWeekdayOfMonth(t time.Time, months int) time.Time {
	week := (t.Day() - 1) / 7
	y, m, _ := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	offset := (int(t.Weekday()) - int(first.Weekday()) + 7) % 7
	day := 1 + offset + 7*week
	if day > daysIn(first) {
		day -= 7
	}
	return first.AddDate(0, 0, day-1)
}

func daysIn(first time.Time) int {
	return first.AddDate(0, 1, -1).Day()
}
