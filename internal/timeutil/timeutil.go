// Package timeutil holds calendar helpers shared by the timesheet and
// reporting services: week bounds, flexible date-range parsing and the
// date formats the UI exchanges with the backend.
package timeutil

import (
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates (work_date, week_start).
const DateLayout = "2006-01-02"

// DisplayDateLayout matches the DD-MM-YYYY labels used by report charts
// and CSV detail rows.
const DisplayDateLayout = "02-01-2006"

// queryDateLayouts are tried in order when parsing user-supplied range
// bounds. Dots are stripped first so abbreviated months like "Aug." parse.
var queryDateLayouts = []string{
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"01/02/2006",
	"02-01-2006",
}

// WeekBounds returns the Monday and Sunday of the week containing day.
func WeekBounds(day time.Time) (monday, sunday time.Time) {
	y, m, d := day.Date()
	day = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	monday = day.AddDate(0, 0, -offset)
	sunday = monday.AddDate(0, 0, 6)
	return monday, sunday
}

// WeekStart returns the Monday of the week containing day, formatted
// with DateLayout.
func WeekStart(day time.Time) string {
	monday, _ := WeekBounds(day)
	return monday.Format(DateLayout)
}

// ParseQueryDate parses a user-supplied date in any accepted format.
// It reports ok=false when no format matched; callers fall back to a
// default bound and surface a warning instead of failing the request.
func ParseQueryDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ".", ""))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range queryDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DaysBetween iterates calendar dates from start through end inclusive.
func DaysBetween(start, end time.Time) []time.Time {
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
