package reconcile

import (
	"fmt"
	"io"

	"github.com/aqlanhadi/rentrecon/extractor/common"
	"github.com/aqlanhadi/rentrecon/extractor/ledger"
	"github.com/aqlanhadi/rentrecon/extractor/report"
	"github.com/aqlanhadi/rentrecon/matcher"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// DefaultDaysInPeriod is used when neither the options, the ledger filter nor
// the report filename say how long the period is.
const DefaultDaysInPeriod = 30

// Options configures one reconciliation run.
type Options struct {
	Ledger  ledger.Config
	Report  report.Config
	Matcher matcher.Config
	Health  HealthConfig

	// Filter keeps ledger bookings whose stay starts inside it.
	Filter              *common.DateRange
	DaysInPeriod        int
	PreferLedgerRevenue bool
	IncludeHealth       bool
	// MonthsInactive overrides the derived inactivity per report name.
	MonthsInactive map[string]int
}

// DefaultOptions returns Options with every package default.
func DefaultOptions() Options {
	return Options{
		Ledger:  ledger.DefaultConfig(),
		Report:  report.DefaultConfig(),
		Matcher: matcher.DefaultConfig(),
		Health:  DefaultHealthConfig(),
	}
}

// Input names the two sources of a run. Ledger is CSV; ReportRows is the
// report rendered to text rows.
type Input struct {
	LedgerSource string
	Ledger       io.Reader
	ReportSource string
	ReportRows   []string
}

// Summary is the portfolio roll-up of the records. ReportNightsBooked is the
// delimited total from the report and is authoritative; per-record report
// nights are estimates.
type Summary struct {
	Period             string            `json:"period"`
	DateRange          *common.DateRange `json:"date_range,omitempty"`
	DaysInPeriod       int               `json:"days_in_period"`
	Properties         int               `json:"properties"`
	ActiveCount        int               `json:"active_count"`
	InactiveCount      int               `json:"inactive_count"`
	MatchedCount       int               `json:"matched_count"`
	TotalRevenue       decimal.Decimal   `json:"total_revenue"`
	TotalNetRevenue    decimal.Decimal   `json:"total_net_revenue"`
	TotalNights        int               `json:"total_nights"`
	TotalBookings      int               `json:"total_bookings"`
	ReportNightsBooked *int              `json:"report_nights_booked,omitempty"`
	ReportGross        decimal.Decimal   `json:"report_gross"`
	LedgerRevenue      decimal.Decimal   `json:"ledger_revenue"`
	LedgerNights       int               `json:"ledger_nights"`
	AverageHealth      *int              `json:"average_health,omitempty"`
}

// Diagnostics gathers what each stage reported.
type Diagnostics struct {
	Ledger             common.Diagnostics `json:"ledger"`
	Report             common.Diagnostics `json:"report"`
	UnmatchedReport    int                `json:"unmatched_report"`
	UnmatchedLedger    int                `json:"unmatched_ledger"`
	OccupancyAnomalies int                `json:"occupancy_anomalies"`
	LowConfidence      int                `json:"low_confidence"`
}

// Result is the output of Run.
type Result struct {
	Records         []CanonicalPropertyRecord `json:"records"`
	Summary         Summary                   `json:"summary"`
	Matches         []matcher.IdentityMatch   `json:"matches"`
	UnmatchedLedger []string                  `json:"unmatched_ledger"`
	Diagnostics     Diagnostics               `json:"diagnostics"`
}

// Run parses both sources, matches their property names, merges them and
// optionally scores each record. Data problems are reported in the result
// diagnostics; the only errors are a failing ledger reader and an invalid
// report configuration. Run keeps no state between calls.
func Run(in Input, opts Options) (*Result, error) {
	extractor, err := report.NewExtractor(opts.Report)
	if err != nil {
		return nil, err
	}
	rep := extractor.Extract(in.ReportSource, in.ReportRows)

	var led *ledger.Result
	if in.Ledger != nil {
		led, err = ledger.Parse(in.Ledger, in.LedgerSource, opts.Ledger, opts.Filter)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ledger %s: %w", in.LedgerSource, err)
		}
	} else {
		led = &ledger.Result{Source: in.LedgerSource, RawNights: map[string]int{}}
		led.Diagnostics.Note("no ledger supplied")
	}

	return Reconcile(rep, led, opts), nil
}

// Reconcile merges already parsed sources.
func Reconcile(rep *report.Result, led *ledger.Result, opts Options) *Result {
	matches := matcher.Match(rep.Names(), led.Names(), opts.Matcher)

	days := daysInPeriod(opts, rep)
	records := Merge(rep.Properties, led.Properties, matches, MergeOptions{
		PreferLedgerRevenue: opts.PreferLedgerRevenue,
		DaysInPeriod:        days,
	})

	result := &Result{
		Records:         records,
		Matches:         matches.Matches,
		UnmatchedLedger: matches.UnmatchedLedger,
		Diagnostics: Diagnostics{
			Ledger:          led.Diagnostics,
			Report:          rep.Diagnostics,
			UnmatchedReport: len(matches.UnmatchedReport),
			UnmatchedLedger: len(matches.UnmatchedLedger),
		},
	}

	healthTotal := 0
	for i := range result.Records {
		rec := &result.Records[i]
		rec.MonthsInactive = monthsInactive(rec, led, opts)
		if opts.IncludeHealth {
			score := Score(*rec, rec.MonthsInactive, opts.Health)
			rec.Health = &score
			healthTotal += score.Score
		}
		if rec.OccupancyAnomaly {
			result.Diagnostics.OccupancyAnomalies++
			log.WithFields(log.Fields{"property": rec.Name, "occupancy": rec.Occupancy.String()}).Warn("occupancy above 100%")
		}
		if rec.NightsConfidence == common.ConfidenceLow {
			result.Diagnostics.LowConfidence++
		}
	}

	result.Summary = summarize(result.Records, rep, led, days)
	if opts.IncludeHealth && len(result.Records) > 0 {
		avg := healthTotal / len(result.Records)
		result.Summary.AverageHealth = &avg
	}

	log.WithFields(log.Fields{
		"report":           rep.Source,
		"ledger":           led.Source,
		"records":          len(result.Records),
		"matched":          len(matches.Matches),
		"unmatched_report": len(matches.UnmatchedReport),
		"skipped_rows":     led.Diagnostics.SkippedRows,
	}).Info("reconciliation complete")

	return result
}

func daysInPeriod(opts Options, rep *report.Result) int {
	switch {
	case opts.DaysInPeriod > 0:
		return opts.DaysInPeriod
	case opts.Filter != nil && opts.Filter.Days() > 0:
		return opts.Filter.Days()
	case rep.DateRange != nil && rep.DateRange.Days() > 0:
		return rep.DateRange.Days()
	default:
		return DefaultDaysInPeriod
	}
}

func monthsInactive(rec *CanonicalPropertyRecord, led *ledger.Result, opts Options) *int {
	if n, ok := opts.MonthsInactive[rec.Name]; ok {
		return &n
	}
	if opts.Filter == nil || rec.LedgerName == "" {
		return nil
	}
	m, ok := led.Property(rec.LedgerName)
	if !ok {
		return nil
	}
	n := ledger.InactiveMonths(m, *opts.Filter)
	return &n
}

func summarize(records []CanonicalPropertyRecord, rep *report.Result, led *ledger.Result, days int) Summary {
	s := Summary{
		Period:             rep.Period,
		DateRange:          rep.DateRange,
		DaysInPeriod:       days,
		Properties:         len(records),
		ReportNightsBooked: rep.Totals.NightsBooked,
		ReportGross:        rep.Totals.Gross,
		LedgerRevenue:      led.TotalRevenue,
		LedgerNights:       led.TotalNights,
	}
	if led.Filter != nil {
		s.DateRange = led.Filter
	}
	for _, r := range records {
		s.TotalRevenue = s.TotalRevenue.Add(r.Revenue)
		s.TotalNetRevenue = s.TotalNetRevenue.Add(r.NetRevenue)
		s.TotalNights += r.Nights
		s.TotalBookings += r.BookingCount
		if r.Status == StatusActive {
			s.ActiveCount++
		} else {
			s.InactiveCount++
		}
		if r.LedgerName != "" {
			s.MatchedCount++
		}
	}
	return s
}
