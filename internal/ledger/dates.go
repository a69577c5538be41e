package ledger

import (
	"fmt"
	"strings"
	"time"
)

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

// Day buckets an instant into its UTC calendar day ("YYYY-MM-DD"). Every
// attendance record is keyed by the day of its punch-in as seen in UTC, so
// two punches in the same UTC day always collide regardless of the caller's
// wall clock.
func Day(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// Month buckets an instant into its UTC calendar month ("YYYY-MM").
func Month(t time.Time) string {
	return t.UTC().Format(monthLayout)
}

// MonthOfDay extracts the "YYYY-MM" prefix of a day key.
func MonthOfDay(day string) string {
	if len(day) < len(monthLayout) {
		return day
	}
	return day[:len(monthLayout)]
}

// ParseDay validates a day key.
func ParseDay(s string) (string, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid day %q: %w", s, err)
	}
	return t.Format(dayLayout), nil
}

// ParseMonth validates a month key.
func ParseMonth(s string) (string, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid month %q: %w", s, err)
	}
	return t.Format(monthLayout), nil
}

// AtClock resolves a "HH:MM" wall-clock string on the UTC day of the given
// instant. Used to turn a configured shift start like "09:00" into the
// concrete instant it means on the punch day. Returns the zero time for an
// empty or malformed clock string.
func AtClock(t time.Time, clock string) time.Time {
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return time.Time{}
	}
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}
	}
	day := t.UTC()
	return time.Date(day.Year(), day.Month(), day.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, time.UTC)
}
