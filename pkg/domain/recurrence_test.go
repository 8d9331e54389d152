package domain

import (
	"testing"
	"time"
)

func TestRecurrenceNext(t *testing.T) {
	at := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 17, 30, 0, 0, time.UTC)
	}
	cases := []struct {
		name string
		rec  Recurrence
		from time.Time
		want time.Time
	}{
		{"every third day", Recurrence{Unit: RecurDaily, Amount: 3}, at(2024, 6, 29), at(2024, 7, 2)},
		{"zero amount counts as one", Recurrence{Unit: RecurWeekly}, at(2024, 6, 10), at(2024, 6, 17)},
		{"month end clamps", Recurrence{Unit: RecurMonthly}, at(2024, 1, 31), at(2024, 2, 29)},
		{"leap day next year", Recurrence{Unit: RecurYearly}, at(2024, 2, 29), at(2025, 2, 28)},
		{"second tuesday", Recurrence{Unit: RecurMonthly, SameWeekday: true}, at(2024, 6, 11), at(2024, 7, 9)},
		{"fifth friday becomes the last", Recurrence{Unit: RecurMonthly, SameWeekday: true}, at(2024, 5, 31), at(2024, 6, 28)},
		{"inactive keeps the date", Recurrence{}, at(2024, 6, 10), at(2024, 6, 10)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.rec.Next(tc.from); !got.Equal(tc.want) {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
	if got := (Recurrence{Unit: RecurDaily}).Next(time.Time{}); !got.IsZero() {
		t.Fatalf("expected an unset date to stay unset, got %s", got)
	}
}

func TestRecurrenceAdvanceStopsAtMax(t *testing.T) {
	rec := Recurrence{Unit: RecurWeekly, Max: 2}
	rec = rec.Advance()
	if !rec.Active() || rec.Count != 1 {
		t.Fatalf("expected one recurrence left, got %+v", rec)
	}
	rec = rec.Advance()
	if rec.Active() || rec.Count != 2 {
		t.Fatalf("expected the recurrence to end at its maximum, got %+v", rec)
	}
	if again := rec.Advance(); again != rec {
		t.Fatalf("expected an ended recurrence to stay put, got %+v", again)
	}
	unlimited := Recurrence{Unit: RecurDaily}.Advance().Advance()
	if !unlimited.Active() || unlimited.Count != 2 {
		t.Fatalf("expected an unlimited recurrence to keep going, got %+v", unlimited)
	}
}
