package core

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// Month identifies a calendar month, parsed from a "YYYY-MM" token.
type Month struct {
	Year  int
	Month time.Month
}

// DateRange is an inclusive [Start, End] interval of instants.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseMonth validates a "YYYY-MM" token. Month numbers outside 01-12 are
// rejected even though they match the pattern.
func ParseMonth(token string) (Month, error) {
	if !monthPattern.MatchString(token) {
		return Month{}, NewValidationError("month", fmt.Errorf("%w: %q is not YYYY-MM", ErrInvalidMonth, token))
	}
	year, _ := strconv.Atoi(token[:4])
	month, _ := strconv.Atoi(token[5:])
	if month < 1 || month > 12 {
		return Month{}, NewValidationError("month", fmt.Errorf("%w: %q is out of range", ErrInvalidMonth, token))
	}
	return Month{Year: year, Month: time.Month(month)}, nil
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Range returns the first and the last millisecond of the month in UTC.
// Day 0 of the following month normalizes to the last day of this one.
func (m Month) Range() DateRange {
	return DateRange{
		Start: time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(m.Year, m.Month+1, 0, 23, 59, 59, int(999*time.Millisecond), time.UTC),
	}
}

// String renders the month back as a "YYYY-MM" token.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Contains reports whether t falls inside the inclusive range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// MonthRange parses a token and returns its range in one step.
func MonthRange(token string) (DateRange, error) {
	m, err := ParseMonth(token)
	if err != nil {
		return DateRange{}, err
	}
	return m.Range(), nil
}

// CurrentMonth returns the month of now in UTC.
func CurrentMonth(now time.Time) Month {
	return MonthOf(now.UTC())
}

// RecentMonths lists the n months ending with the month of now, newest first.
func RecentMonths(now time.Time, n int) []Month {
	out := make([]Month, 0, n)
	cur := CurrentMonth(now)
	for i := 0; i < n; i++ {
		t := time.Date(cur.Year, cur.Month-time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		out = append(out, MonthOf(t))
	}
	return out
}
