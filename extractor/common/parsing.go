package common

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var nonNumericRegex = regexp.MustCompile(`[^0-9.]`)

// ErrMalformedAmount is returned when a monetary string carries digits that
// do not form a number.
var ErrMalformedAmount = errors.New("malformed amount")

// CleanDecimal parses a string into a decimal.Decimal, removing currency
// markers, thousands separators and labels. A leading minus sign or
// accounting parentheses make the result negative.
func CleanDecimal(text string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(text)
	negative := strings.HasPrefix(trimmed, "-") ||
		strings.HasPrefix(trimmed, "$-") ||
		(strings.Contains(trimmed, "(") && strings.HasSuffix(trimmed, ")"))

	cleanText := nonNumericRegex.ReplaceAllString(trimmed, "")
	if cleanText == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(cleanText)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, text)
	}
	if negative {
		amount = amount.Neg()
	}

	return amount, nil
}

// dateLayouts are tried in order by ParseDate.
var dateLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"2006-01-02",
	"01/02/06",
	"1/2/06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate parses a date in any of the layouts exports are known to use and
// truncates it to a UTC calendar day.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return DateOnly(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", value)
}

// DateOnly drops the clock part of t, keeping its calendar day in UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDateRange builds an inclusive range out of two YYYY-MM-DD style
// strings. Both empty returns nil.
func ParseDateRange(start, end string) (*DateRange, error) {
	if start == "" && end == "" {
		return nil, nil
	}
	if start == "" || end == "" {
		return nil, errors.New("both start and end are required for a date range")
	}
	s, err := ParseDate(start)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	e, err := ParseDate(end)
	if err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}
	if e.Before(s) {
		return nil, errors.New("end cannot be before start")
	}
	return &DateRange{Start: s, End: e}, nil
}

// SafeDiv divides a by b and returns zero when b is zero.
func SafeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}
