package report

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aqlanhadi/rentrecon/extractor/common"
)

var (
	filenameRangeRegex = regexp.MustCompile(`(\d{1,2})[_\-](\d{1,2})[_\-](\d{4})[_\-](\d{1,2})[_\-](\d{1,2})[_\-](\d{4})`)
	filenameDateRegex  = regexp.MustCompile(`(\d{1,2})[_\-](\d{1,2})[_\-](\d{4})`)
	filenameMonthRegex = regexp.MustCompile(`(?i)(January|February|March|April|May|June|July|August|September|October|November|December)[_\s]?(\d{4})`)
)

const defaultPeriod = "Current Period"

// PeriodFromFilename derives the reporting period label and date range from
// an export filename such as "earnings_01_01_2024-03_31_2024.pdf". The range
// is nil when the name carries no usable date.
func PeriodFromFilename(name string) (string, *common.DateRange) {
	base := filepath.Base(name)

	if m := filenameRangeRegex.FindStringSubmatch(base); m != nil {
		start, okStart := buildDate(m[3], m[1], m[2])
		end, okEnd := buildDate(m[6], m[4], m[5])
		if okStart && okEnd && !end.Before(start) {
			return periodLabel(start, end), &common.DateRange{Start: start, End: end}
		}
	}

	if m := filenameDateRegex.FindStringSubmatch(base); m != nil {
		if d, ok := buildDate(m[3], m[1], m[2]); ok {
			r := monthRange(d.Year(), d.Month())
			return d.Format("January 2006"), &r
		}
	}

	if m := filenameMonthRegex.FindStringSubmatch(base); m != nil {
		month := strings.ToLower(m[1])
		t, err := time.Parse("January 2006", strings.ToUpper(month[:1])+month[1:]+" "+m[2])
		if err == nil {
			r := monthRange(t.Year(), t.Month())
			return t.Format("January 2006"), &r
		}
	}

	return defaultPeriod, nil
}

func buildDate(year, month, day string) (time.Time, bool) {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// reject overflow such as 02_30
	if t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

func monthRange(year int, month time.Month) common.DateRange {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return common.DateRange{Start: start, End: start.AddDate(0, 1, -1)}
}

func periodLabel(start, end time.Time) string {
	switch {
	case start.Year() == end.Year() && start.Month() == time.January && end.Month() == time.December:
		return fmt.Sprintf("Full Year %d", start.Year())
	case start.Year() == end.Year() && start.Month() == end.Month():
		return start.Format("Jan 2006")
	case start.Year() == end.Year():
		return fmt.Sprintf("%s - %s %d", start.Format("Jan"), end.Format("Jan"), start.Year())
	default:
		return fmt.Sprintf("%s - %s", start.Format("Jan 2006"), end.Format("Jan 2006"))
	}
}
