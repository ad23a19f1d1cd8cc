// Package reconcile merges report earnings with ledger metrics into canonical
// per-property records and scores their health.
package reconcile

import (
	"sort"

	"github.com/aqlanhadi/rentrecon/extractor/common"
	"github.com/aqlanhadi/rentrecon/extractor/ledger"
	"github.com/aqlanhadi/rentrecon/extractor/report"
	"github.com/aqlanhadi/rentrecon/matcher"
	"github.com/shopspring/decimal"
)

// Provenance tags where a metric came from.
type Provenance string

const (
	ProvenanceLedger         Provenance = "ledger-derived"
	ProvenanceReportEstimate Provenance = "report-estimate"
	ProvenanceReportExact    Provenance = "report-exact"
)

// Status is whether a property earned anything in the period.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// MetricProvenance carries one Provenance per metric of a record.
type MetricProvenance struct {
	Revenue        Provenance `json:"revenue"`
	NetRevenue     Provenance `json:"net_revenue"`
	Nights         Provenance `json:"nights"`
	BookingCount   Provenance `json:"booking_count"`
	AvgStay        Provenance `json:"avg_stay"`
	AvgNightlyRate Provenance `json:"avg_nightly_rate"`
	Status         Provenance `json:"status"`
}

// CanonicalPropertyRecord is the merged view of one property.
type CanonicalPropertyRecord struct {
	Name             string             `json:"name"`
	LedgerName       string             `json:"ledger_name,omitempty"`
	MatchScore       float64            `json:"match_score,omitempty"`
	MatchConfidence  matcher.Confidence `json:"match_confidence,omitempty"`
	Revenue          decimal.Decimal    `json:"revenue"`
	NetRevenue       decimal.Decimal    `json:"net_revenue"`
	Nights           int                `json:"nights"`
	BookingCount     int                `json:"booking_count"`
	AvgStay          decimal.Decimal    `json:"avg_stay"`
	AvgNightlyRate   decimal.Decimal    `json:"avg_nightly_rate"`
	Occupancy        decimal.Decimal    `json:"occupancy"`
	OccupancyAnomaly bool               `json:"occupancy_anomaly"`
	NightsConfidence common.Confidence  `json:"nights_confidence"`
	Provenance       MetricProvenance   `json:"provenance"`
	Status           Status             `json:"status"`
	MonthsInactive   *int               `json:"months_inactive,omitempty"`
	Health           *HealthScore       `json:"health,omitempty"`
}

// MergeOptions controls Merge.
type MergeOptions struct {
	PreferLedgerRevenue bool
	DaysInPeriod        int
}

// Merge builds one record per report property. Matched properties take their
// stay metrics from the ledger; revenue and status stay with the report unless
// PreferLedgerRevenue is set. Unmatched properties are report estimates.
// Records are sorted by name.
func Merge(earnings []report.PropertyEarnings, metrics []ledger.PropertyMetrics, matches matcher.Result, opts MergeOptions) []CanonicalPropertyRecord {
	byLedgerName := make(map[string]ledger.PropertyMetrics, len(metrics))
	for _, m := range metrics {
		byLedgerName[m.Name] = m
	}

	records := make([]CanonicalPropertyRecord, 0, len(earnings))
	for _, e := range earnings {
		rec := CanonicalPropertyRecord{
			Name:       e.Name,
			Revenue:    e.Gross,
			NetRevenue: e.Net,
			Status:     StatusInactive,
		}
		if e.Active {
			rec.Status = StatusActive
		}
		rec.Provenance.Revenue = ProvenanceReportExact
		rec.Provenance.NetRevenue = ProvenanceReportExact
		rec.Provenance.Status = ProvenanceReportExact

		match, matched := matches.Lookup(e.Name)
		m, found := byLedgerName[match.LedgerName]
		if matched && found {
			fromLedger(&rec, m, match, opts)
		} else {
			fromReport(&rec, e)
		}

		rec.Occupancy = Occupancy(rec.Nights, opts.DaysInPeriod)
		rec.OccupancyAnomaly = rec.Occupancy.GreaterThan(decimal.NewFromInt(1))
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records
}

func fromLedger(rec *CanonicalPropertyRecord, m ledger.PropertyMetrics, match matcher.IdentityMatch, opts MergeOptions) {
	rec.LedgerName = m.Name
	rec.MatchScore = match.Score
	rec.MatchConfidence = match.Confidence
	rec.Nights = m.Nights
	rec.BookingCount = m.BookingCount
	rec.AvgStay = m.AvgStay
	rec.AvgNightlyRate = m.AvgNightlyRate
	rec.NightsConfidence = common.ConfidenceExact
	rec.Provenance.Nights = ProvenanceLedger
	rec.Provenance.BookingCount = ProvenanceLedger
	rec.Provenance.AvgStay = ProvenanceLedger
	rec.Provenance.AvgNightlyRate = ProvenanceLedger
	if opts.PreferLedgerRevenue {
		rec.Revenue = m.Revenue
		rec.Provenance.Revenue = ProvenanceLedger
	}
}

func fromReport(rec *CanonicalPropertyRecord, e report.PropertyEarnings) {
	rec.Provenance.Nights = ProvenanceReportEstimate
	rec.Provenance.BookingCount = ProvenanceReportEstimate
	rec.Provenance.AvgStay = ProvenanceReportEstimate
	rec.Provenance.AvgNightlyRate = ProvenanceReportEstimate
	rec.NightsConfidence = common.ConfidenceLow
	if e.Stats == nil {
		return
	}
	rec.Nights = e.Stats.Nights
	rec.AvgStay = e.Stats.AvgStay
	rec.AvgNightlyRate = common.SafeDiv(e.Gross, decimal.NewFromInt(int64(e.Stats.Nights))).Round(2)
	rec.NightsConfidence = e.Stats.Confidence
}

// Occupancy is nights over days in the period, rounded to four places. It is
// never clamped; values above 1 point at bad input.
func Occupancy(nights, days int) decimal.Decimal {
	return common.SafeDiv(decimal.NewFromInt(int64(nights)), decimal.NewFromInt(int64(days))).Round(4)
}
