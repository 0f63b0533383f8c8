package taxcalc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDate is returned when a date string is not a valid YYYY-MM-DD calendar date.
var ErrInvalidDate = errors.New("invalid date")

// ParseDate parses a YYYY-MM-DD date. Unpadded month and day ("2025-1-5") are accepted.
func ParseDate(s string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w: %q is not YYYY-MM-DD", ErrInvalidDate, s)
	}

	var ymd [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidDate, s, err)
		}
		ymd[i] = n
	}

	year, month, day := ymd[0], ymd[1], ymd[2]
	if year < 1 || year > 9999 {
		return time.Time{}, fmt.Errorf("%w: %q: year out of range", ErrInvalidDate, s)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalises overflow (Feb 30 -> Mar 2), so reject anything that moved.
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, fmt.Errorf("%w: %q: no such day", ErrInvalidDate, s)
	}
	return t, nil
}

// YearsBetween returns the number of whole years from start to end, the same
// count a spreadsheet DATEDIF(start, end, "Y") gives. Never negative.
func YearsBetween(start, end time.Time) int {
	years := end.Year() - start.Year()
	if end.Month() < start.Month() || (end.Month() == start.Month() && end.Day() < start.Day()) {
		years--
	}
	return max(0, years)
}

// HoldingYears counts whole years held from start up to a sale, measured to the
// day after the sale date.
func HoldingYears(start, sale time.Time) int {
	return YearsBetween(start, sale.AddDate(0, 0, 1))
}
