package utils

import (
	"strings"
	"time"
)

const CalendarDayLayout = "2006-01-02"

// CalendarDay formats t as a YYYY-MM-DD string in loc.
func CalendarDay(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(CalendarDayLayout)
}

// PreviousCalendarDay returns the day string before t in loc, following the
// calendar rather than subtracting 24h.
func PreviousCalendarDay(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d-1, 12, 0, 0, 0, loc).Format(CalendarDayLayout)
}

// NormalizeTag lowercases a free-form tag and replaces spaces and dashes with
// underscores.
func NormalizeTag(raw string) string {
	normalized := strings.TrimSpace(raw)
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = strings.ToLower(normalized)
	return normalized
}
