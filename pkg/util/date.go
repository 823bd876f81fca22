package util

import (
	"time"
)

// DayLayout is the ISO calendar date used for snapshot keys.
const DayLayout = "2006-01-02"

// Day formats t as its calendar date in t's location.
func Day(t time.Time) string {
	return t.Format(DayLayout)
}

// ParseDay parses an ISO calendar date, also accepting full RFC3339
// timestamps. Returns (t, true) if any worked.
func ParseDay(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DayLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}
