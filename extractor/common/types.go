package common

import (
	"time"
)

// Confidence describes how a value was recovered from its source.
type Confidence string

const (
	// ConfidenceExact values came from a clearly delimited field.
	ConfidenceExact Confidence = "exact"
	// ConfidenceHeuristic values came from disambiguating an undelimited
	// field and passed the plausibility cross-check.
	ConfidenceHeuristic Confidence = "heuristic"
	// ConfidenceLow values came from an undelimited field and failed the
	// plausibility cross-check. They are still returned.
	ConfidenceLow Confidence = "low-confidence"
)

// DateRange is an inclusive calendar range. Both ends are dates at UTC
// midnight.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls on a day inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := DateOnly(t)
	return !d.Before(DateOnly(r.Start)) && !d.After(DateOnly(r.End))
}

// Days returns the number of calendar days in the range, counting both ends.
// An inverted range has zero days.
func (r DateRange) Days() int {
	start, end := DateOnly(r.Start), DateOnly(r.End)
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// Months returns the first day of every calendar month touched by the range.
func (r DateRange) Months() []time.Time {
	start, end := DateOnly(r.Start), DateOnly(r.End)
	if end.Before(start) {
		return nil
	}
	var months []time.Time
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cur.After(end) {
		months = append(months, cur)
		cur = cur.AddDate(0, 1, 0)
	}
	return months
}

// Diagnostics counts the problems met while parsing a source. Nothing in
// here is fatal; it is surfaced to callers next to the parsed records.
type Diagnostics struct {
	TotalRows        int      `json:"total_rows"`
	SkippedRows      int      `json:"skipped_rows"`
	ExcludedRows     int      `json:"excluded_rows"`
	FilteredBookings int      `json:"filtered_bookings"`
	ParseAnomalies   int      `json:"parse_anomalies"`
	AmbiguousRuns    int      `json:"ambiguous_runs"`
	LowConfidence    int      `json:"low_confidence"`
	Notes            []string `json:"notes,omitempty"`
}

// Add folds other into d.
func (d *Diagnostics) Add(other Diagnostics) {
	d.TotalRows += other.TotalRows
	d.SkippedRows += other.SkippedRows
	d.ExcludedRows += other.ExcludedRows
	d.FilteredBookings += other.FilteredBookings
	d.ParseAnomalies += other.ParseAnomalies
	d.AmbiguousRuns += other.AmbiguousRuns
	d.LowConfidence += other.LowConfidence
	d.Notes = append(d.Notes, other.Notes...)
}

// Note appends a human readable diagnostic line.
func (d *Diagnostics) Note(msg string) {
	d.Notes = append(d.Notes, msg)
}
