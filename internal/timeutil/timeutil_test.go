package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekBounds(t *testing.T) {
	tests := []struct {
		name   string
		day    string
		monday string
		sunday string
	}{
		{"monday maps to itself", "2026-08-17", "2026-08-17", "2026-08-23"},
		{"wednesday maps back", "2026-08-19", "2026-08-17", "2026-08-23"},
		{"sunday stays in its week", "2026-08-23", "2026-08-17", "2026-08-23"},
		{"year boundary", "2026-01-01", "2025-12-29", "2026-01-04"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			day, err := time.Parse(DateLayout, tt.day)
			require.NoError(t, err)
			monday, sunday := WeekBounds(day)
			assert.Equal(t, tt.monday, monday.Format(DateLayout))
			assert.Equal(t, tt.sunday, sunday.Format(DateLayout))
		})
	}
}

func TestWeekBoundsIgnoresTimeOfDay(t *testing.T) {
	late := time.Date(2026, 8, 23, 23, 59, 0, 0, time.UTC)
	monday, _ := WeekBounds(late)
	assert.Equal(t, "2026-08-17", monday.Format(DateLayout))
}

func TestWeekStart(t *testing.T) {
	day := time.Date(2026, 8, 21, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-08-17", WeekStart(day))
}

func TestParseQueryDateFormats(t *testing.T) {
	want := time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC)
	inputs := []string{
		"2026-08-17",
		"August 17, 2026",
		"Aug 17, 2026",
		"Aug. 17, 2026",
		"08/17/2026",
		"17-08-2026",
		"  2026-08-17  ",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			got, ok := ParseQueryDate(input)
			require.True(t, ok)
			assert.True(t, got.Equal(want), "got %v", got)
		})
	}
}

func TestParseQueryDateRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "  ", "yesterday", "2026-13-40", "17th of August"} {
		_, ok := ParseQueryDate(input)
		assert.False(t, ok, "input %q", input)
	}
}

func TestDaysBetween(t *testing.T) {
	start := time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC)

	days := DaysBetween(start, end)
	require.Len(t, days, 3)
	assert.Equal(t, "2026-08-17", days[0].Format(DateLayout))
	assert.Equal(t, "2026-08-19", days[2].Format(DateLayout))

	assert.Len(t, DaysBetween(start, start), 1)
	assert.Empty(t, DaysBetween(end, start))
}
