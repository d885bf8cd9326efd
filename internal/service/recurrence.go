package service

import (
	"time"

	"github.com/iliyamo/tripshare/internal/model"
)

// RecurrenceHorizon bounds how far ahead occurrences are generated.
const RecurrenceHorizon = 60 * 24 * time.Hour

// ExpandRecurrence returns the departure times of the occurrences that follow
// departure.  Candidates are the calendar days after the departure day up to
// min(end, today+60d), inclusive; each keeps the departure's time of day.
// The end date and the horizon are compared by calendar day in UTC.
func ExpandRecurrence(departure time.Time, pattern string, end, today time.Time) []time.Time {
	if pattern == model.RecurNone || pattern == "" {
		return nil
	}
	departure = departure.UTC()
	last := day(end)
	if limit := day(today).Add(RecurrenceHorizon); limit.Before(last) {
		last = limit
	}

	var out []time.Time
	for d := departure.AddDate(0, 0, 1); !day(d).After(last); d = d.AddDate(0, 0, 1) {
		switch pattern {
		case model.RecurDaily:
			out = append(out, d)
		case model.RecurWeekly:
			if d.Weekday() == departure.Weekday() {
				out = append(out, d)
			}
		case model.RecurWeekdays:
			if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
				out = append(out, d)
			}
		}
	}
	return out
}

// day truncates t to midnight UTC.
func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
