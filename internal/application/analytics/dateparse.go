package analytics

import (
	"strings"
	"time"
)

// InvalidDateError reports a date filter value that matched none of the
// accepted layouts. It carries the original text so the caller can echo it
// back instead of silently substituting a default range.
type InvalidDateError struct {
	Original string
}

func (e *InvalidDateError) Error() string {
	return "unparseable date: " + e.Original
}

// dateLayouts are the accepted textual date shapes, tried in order. The
// dotted day-month-year form comes first because "05.03.2024" must read as
// the 5th of March, never as the 3rd of May.
var dateLayouts = []string{
	"02.01.2006",
	"2006-01-02",
	time.RFC3339Nano,
	time.RFC3339,
	"2006/01/02",
	"Jan 2, 2006",
}

func parseDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &InvalidDateError{Original: raw}
}

// ParseRangeStart parses a range-start filter value and normalizes it to the
// start of its UTC day. A blank value yields the zero time, meaning the
// caller's default applies.
func ParseRangeStart(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	t, err := parseDate(raw)
	if err != nil {
		return time.Time{}, err
	}
	return DayStart(t), nil
}

// ParseRangeEnd parses a range-end filter value and normalizes it to the end
// of its UTC day (23:59:59.999). A blank value yields the zero time.
func ParseRangeEnd(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	t, err := parseDate(raw)
	if err != nil {
		return time.Time{}, err
	}
	return DayEnd(t), nil
}

// DayStart returns midnight UTC of the instant's calendar day.
func DayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DayEnd returns the last reported instant of the instant's calendar day,
// at millisecond precision.
func DayEnd(t time.Time) time.Time {
	return DayStart(t).Add(24*time.Hour - time.Millisecond)
}
