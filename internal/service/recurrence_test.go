package service

import (
	"testing"
	"time"

	"github.com/iliyamo/tripshare/internal/model"
)

func TestExpandRecurrence(t *testing.T) {
	// Monday 2026-06-01 08:30 UTC.
	dep := time.Date(2026, 6, 1, 8, 30, 0, 0, time.UTC)
	today := time.Date(2026, 5, 30, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		pattern string
		end     time.Time
		want    int
	}{
		{"none", model.RecurNone, dep.AddDate(0, 0, 10), 0},
		{"daily one week", model.RecurDaily, time.Date(2026, 6, 8, 0, 0, 0, 0, time.UTC), 7},
		{"weekly three weeks", model.RecurWeekly, dep.AddDate(0, 0, 21), 3},
		{"weekdays two weeks", model.RecurWeekdays, time.Date(2026, 6, 14, 0, 0, 0, 0, time.UTC), 9},
		{"end before departure", model.RecurDaily, dep.AddDate(0, 0, -3), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExpandRecurrence(dep, tc.pattern, tc.end, today)
			if len(got) != tc.want {
				t.Fatalf("got %d occurrences, want %d: %v", len(got), tc.want, got)
			}
			for _, d := range got {
				if d.Hour() != 8 || d.Minute() != 30 {
					t.Fatalf("time of day changed: %v", d)
				}
				if !d.After(dep) {
					t.Fatalf("occurrence %v not after departure", d)
				}
				if tc.pattern == model.RecurWeekly && d.Weekday() != dep.Weekday() {
					t.Fatalf("weekly occurrence on %v", d.Weekday())
				}
				if tc.pattern == model.RecurWeekdays && (d.Weekday() == time.Saturday || d.Weekday() == time.Sunday) {
					t.Fatalf("weekday occurrence on %v", d.Weekday())
				}
			}
		})
	}
}

func TestExpandRecurrenceIsCappedAtSixtyDays(t *testing.T) {
	today := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	dep := time.Date(2026, 1, 2, 7, 0, 0, 0, time.UTC)
	got := ExpandRecurrence(dep, model.RecurDaily, dep.AddDate(2, 0, 0), today)

	last := got[len(got)-1]
	if want := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC); !last.Equal(want) {
		t.Fatalf("last occurrence %v, want %v", last, want)
	}
	// Jan 3 .. Mar 2 inclusive.
	if len(got) != 59 {
		t.Fatalf("got %d occurrences, want 59", len(got))
	}
}
