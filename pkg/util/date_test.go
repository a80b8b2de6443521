package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseDateLayout(t *testing.T) {
	got, ok := ParseDate("2024-10-10")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got != time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected date %v", got)
	}
}

func TestParseDateRFC3339Truncates(t *testing.T) {
	got, ok := ParseDate("2024-10-10T22:10:10Z")
	if !ok {
		t.Fatalf("expected ok")
	}
	if FormatDate(got) != "2024-10-10" || got.Hour() != 0 {
		t.Fatalf("unexpected date %v", got)
	}
}

func TestParseDateUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseDate(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if FormatDate(got) != "2024-10-10" {
		t.Fatalf("unexpected date %v", got)
	}
}

func TestParseDateDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	got := ParseDateDefault("not-a-date", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestBusinessDaysBetween(t *testing.T) {
	fri := MustParseDate("2024-01-05")
	cases := []struct {
		end  string
		want int
	}{
		{"2024-01-05", 1}, // same day floors at 1
		{"2024-01-06", 1}, // saturday
		{"2024-01-08", 1}, // monday
		{"2024-01-09", 2},
		{"2024-01-12", 5},
	}
	for _, c := range cases {
		if got := BusinessDaysBetween(fri, MustParseDate(c.end)); got != c.want {
			t.Fatalf("BusinessDaysBetween(fri, %s) = %d, want %d", c.end, got, c.want)
		}
	}
}

func TestCalendarDays(t *testing.T) {
	if got := CalendarDays(MustParseDate("2024-01-30"), MustParseDate("2024-02-02")); got != 3 {
		t.Fatalf("unexpected calendar days %d", got)
	}
}

func TestAddBusinessDaysSkipsWeekend(t *testing.T) {
	got := AddBusinessDays(MustParseDate("2024-01-05"), 1)
	if FormatDate(got) != "2024-01-08" {
		t.Fatalf("unexpected date %v", got)
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(2.345); got != 2.35 {
		t.Fatalf("Round2(2.345) = %v", got)
	}
	if got := Round2(-1.005); got != -1.01 {
		t.Fatalf("Round2(-1.005) = %v", got)
	}
}
