package reconcile

import (
	"testing"

	"github.com/aqlanhadi/rentrecon/extractor/common"
	"github.com/aqlanhadi/rentrecon/extractor/ledger"
	"github.com/aqlanhadi/rentrecon/extractor/report"
	"github.com/aqlanhadi/rentrecon/matcher"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func fixtures() ([]report.PropertyEarnings, []ledger.PropertyMetrics) {
	earnings := []report.PropertyEarnings{
		{
			Name: "Totally Unrelated Cabin", Gross: d("900"), Fees: d("27"), Net: d("873"),
			MoneyConfidence: common.ConfidenceExact, Active: true,
			Stats: &report.StayStats{Raw: "603.0", Nights: 6, AvgStay: d("3.0"), Confidence: common.ConfidenceHeuristic},
		},
		{
			Name: "Azusa E - Sunrise Getaway", Gross: d("2880.20"), Fees: d("86.40"), Net: d("2793.80"),
			MoneyConfidence: common.ConfidenceExact, Active: true,
		},
		{Name: "Glendora", MoneyConfidence: common.ConfidenceExact},
	}
	metrics := []ledger.PropertyMetrics{
		{Name: "Sunrise Getaway (Azusa)", Revenue: d("2700"), Nights: 18, BookingCount: 6, AvgStay: d("3"), AvgNightlyRate: d("150")},
	}
	return earnings, metrics
}

func TestMerge_MatchedAndUnmatched(t *testing.T) {
	earnings, metrics := fixtures()
	matches := matcher.Match([]string{earnings[0].Name, earnings[1].Name, earnings[2].Name}, []string{metrics[0].Name}, matcher.DefaultConfig())

	records := Merge(earnings, metrics, matches, MergeOptions{DaysInPeriod: 30})
	require.Len(t, records, 3)

	// sorted by name
	assert.Equal(t, "Azusa E - Sunrise Getaway", records[0].Name)
	assert.Equal(t, "Glendora", records[1].Name)
	assert.Equal(t, "Totally Unrelated Cabin", records[2].Name)

	azusa := records[0]
	assert.Equal(t, "Sunrise Getaway (Azusa)", azusa.LedgerName)
	assert.Equal(t, 18, azusa.Nights)
	assert.Equal(t, 6, azusa.BookingCount)
	assert.Equal(t, "150", azusa.AvgNightlyRate.String())
	assert.Equal(t, "2880.2", azusa.Revenue.String())
	assert.Equal(t, ProvenanceLedger, azusa.Provenance.Nights)
	assert.Equal(t, ProvenanceReportExact, azusa.Provenance.Revenue)
	assert.Equal(t, StatusActive, azusa.Status)
	assert.Equal(t, "0.6", azusa.Occupancy.String())
	assert.False(t, azusa.OccupancyAnomaly)

	cabin := records[2]
	assert.Empty(t, cabin.LedgerName)
	assert.Equal(t, ProvenanceReportEstimate, cabin.Provenance.Nights)
	assert.Equal(t, ProvenanceReportEstimate, cabin.Provenance.BookingCount)
	assert.Equal(t, 6, cabin.Nights)
	assert.Equal(t, 0, cabin.BookingCount)
	assert.Equal(t, "150", cabin.AvgNightlyRate.String())
	assert.Equal(t, common.ConfidenceHeuristic, cabin.NightsConfidence)

	glendora := records[1]
	assert.Equal(t, StatusInactive, glendora.Status)
	assert.Equal(t, 0, glendora.Nights)
	assert.Equal(t, common.ConfidenceLow, glendora.NightsConfidence)
}

func TestMerge_PreferLedgerRevenue(t *testing.T) {
	earnings, metrics := fixtures()
	matches := matcher.Match([]string{earnings[1].Name}, []string{metrics[0].Name}, matcher.DefaultConfig())

	records := Merge(earnings[1:2], metrics, matches, MergeOptions{PreferLedgerRevenue: true, DaysInPeriod: 30})
	require.Len(t, records, 1)
	assert.Equal(t, "2700", records[0].Revenue.String())
	assert.Equal(t, ProvenanceLedger, records[0].Provenance.Revenue)
	assert.Equal(t, "2793.8", records[0].NetRevenue.String())
	assert.Equal(t, ProvenanceReportExact, records[0].Provenance.NetRevenue)
}

func TestMerge_OccupancyIsNotClamped(t *testing.T) {
	earnings := []report.PropertyEarnings{{Name: "Loft", Gross: d("5000"), Net: d("4850"), Active: true}}
	metrics := []ledger.PropertyMetrics{{Name: "Loft", Revenue: d("5000"), Nights: 45, BookingCount: 5}}
	matches := matcher.Match([]string{"Loft"}, []string{"Loft"}, matcher.DefaultConfig())

	records := Merge(earnings, metrics, matches, MergeOptions{DaysInPeriod: 30})
	require.Len(t, records, 1)
	assert.Equal(t, "1.5", records[0].Occupancy.String())
	assert.True(t, records[0].OccupancyAnomaly)
}

func TestOccupancy(t *testing.T) {
	assert.Equal(t, "0.3333", Occupancy(10, 30).String())
	assert.True(t, Occupancy(10, 0).IsZero())
	assert.True(t, Occupancy(0, 31).IsZero())
}
