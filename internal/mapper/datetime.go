package mapper

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TwoDigitYearPivot defines how 2-digit years are interpreted: a year that
// would land more than this many years in the future is moved back a century.
var TwoDigitYearPivot = 20

// Day-first layouts. Go's "2" and "1" accept one or two digits, so
// "1/3/2024" and "01/03/2024" share a layout. Year-first ISO forms are
// unambiguous and accepted as well.
var (
	fourDigitYearLayouts = []string{
		"2/1/2006", "2-1-2006", "2.1.2006",
		"2006-1-2", "2006/1/2", "2006.1.2",
		"20060102",
		"2 Jan 2006", "2 January 2006", "Jan 2, 2006", "January 2, 2006",
	}
	twoDigitYearLayouts = []string{
		"2/1/06", "2-1-06", "2.1.06",
	}
	clockLayouts = []string{
		"15:04", "15:04:05", "15.04", "15.04.05",
		"3:04PM", "3:04 PM", "3:04:05 PM", "3PM", "3 PM",
	}
)

var (
	errEmptyDate  = errors.New("empty date")
	errEmptyClock = errors.New("empty time")
)

// parseDate parses a day-first date. The value may carry a time of day
// ("2024-03-01 08:00:00", "01/03/2024T08:00"); it is returned as clock,
// hasClock reports whether one was found.
func parseDate(s string) (day time.Time, clock time.Duration, hasClock bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, 0, false, errEmptyDate
	}

	datePart, clockPart := splitDateClock(s)
	day, err = parseDay(datePart)
	if err != nil {
		return time.Time{}, 0, false, err
	}
	if clockPart == "" {
		return day, 0, false, nil
	}
	clock, err = parseClock(clockPart)
	if err != nil {
		return time.Time{}, 0, false, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return day, clock, true, nil
}

func parseDay(s string) (time.Time, error) {
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return midnight(t), nil
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return midnight(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// parseClock parses a time of day into an offset from midnight.
func parseClock(s string) (time.Duration, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, errEmptyClock
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("invalid time %q", s)
}

// combine joins a date cell and a time cell into one wall-clock instant.
// An empty time cell uses the clock embedded in the date cell, or midnight.
func combine(date, clock string) (time.Time, error) {
	day, embedded, _, err := parseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	if strings.TrimSpace(clock) == "" {
		return day.Add(embedded), nil
	}
	offset, err := parseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(offset), nil
}

// splitDateClock separates a trailing time of day from a date string.
func splitDateClock(s string) (string, string) {
	if len(s) > 10 && s[10] == 'T' && isDigit(s[9]) && isDigit(s[11]) {
		return s[:10], s[11:]
	}
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return s, ""
	}
	last := fields[len(fields)-1]
	n := 1
	if u := strings.ToUpper(last); (u == "AM" || u == "PM") && len(fields) >= 3 {
		n = 2
	}
	clock := strings.Join(fields[len(fields)-n:], " ")
	if !strings.ContainsAny(clock, ":.") && n == 1 {
		return s, ""
	}
	return strings.Join(fields[:len(fields)-n], " "), clock
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
