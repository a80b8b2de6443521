package util

import (
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the wire and storage format for trading dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD trading date, RFC3339 or unix seconds, normalized to UTC midnight.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Day(t), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Day(t), true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return Day(time.Unix(ts, 0)), true
	}
	return time.Time{}, false
}

// ParseDateDefault parses a date or returns def if empty/invalid.
func ParseDateDefault(s string, def time.Time) time.Time {
	if t, ok := ParseDate(s); ok {
		return t
	}
	return def
}

// MustParseDate panics on invalid input. Intended for tests and fixtures.
func MustParseDate(s string) time.Time {
	t, ok := ParseDate(s)
	if !ok {
		panic(fmt.Sprintf("invalid date %q", s))
	}
	return t
}

// Day truncates t to UTC midnight of its calendar date.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a date as YYYY-MM-DD, empty for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// CalendarDays is the number of calendar days from start to end.
func CalendarDays(start, end time.Time) int {
	return int(Day(end).Sub(Day(start)).Hours() / 24)
}

// BusinessDaysBetween counts weekdays after start up to and including end, floored at 1.
func BusinessDaysBetween(start, end time.Time) int {
	start, end = Day(start), Day(end)
	n := 0
	for d := start.AddDate(0, 0, 1); !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	if n < 1 {
		return 1
	}
	return n
}

// AddBusinessDays steps n weekdays forward from start.
func AddBusinessDays(start time.Time, n int) time.Time {
	d := Day(start)
	for n > 0 {
		d = d.AddDate(0, 0, 1)
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n--
		}
	}
	return d
}
