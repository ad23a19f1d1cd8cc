package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func record(revenue string, nights, days int) CanonicalPropertyRecord {
	occ := Occupancy(nights, days)
	return CanonicalPropertyRecord{
		Name:             "Loft",
		Revenue:          decimal.RequireFromString(revenue),
		Nights:           nights,
		Occupancy:        occ,
		OccupancyAnomaly: occ.GreaterThan(decimal.NewFromInt(1)),
	}
}

func intPtr(n int) *int { return &n }

func TestScore_Healthy(t *testing.T) {
	h := Score(record("3500", 27, 30), nil, DefaultHealthConfig())

	assert.Equal(t, 100, h.Score)
	assert.Equal(t, HealthHealthy, h.Status)
	assert.Equal(t, HealthComponents{Presence: 40, RevenueLevel: 20, Occupancy: 30, Consistency: 10}, h.Components)
	assert.Empty(t, h.Advisories)
	assert.NotNil(t, h.Advisories)
}

func TestScore_LowOccupancyWarning(t *testing.T) {
	// 9 of 30 nights is 30%
	h := Score(record("1500", 9, 30), intPtr(0), DefaultHealthConfig())

	assert.Equal(t, 40+10+8+10, h.Score)
	assert.Equal(t, HealthWarning, h.Status)
	assert.Contains(t, h.Advisories, "occupancy below 40% — review pricing")
}

func TestScore_InactiveMonths(t *testing.T) {
	cfg := DefaultHealthConfig()

	one := Score(record("2500", 20, 30), intPtr(1), cfg)
	assert.Equal(t, 5, one.Components.Consistency)
	assert.Contains(t, one.Advisories, "inactive for 1 month in the period")

	three := Score(record("2500", 20, 30), intPtr(3), cfg)
	assert.Equal(t, 0, three.Components.Consistency)
	assert.Contains(t, three.Advisories, "inactive for 3 months in the period")
}

func TestScore_NoRevenueIsCritical(t *testing.T) {
	h := Score(record("0", 0, 30), nil, DefaultHealthConfig())

	assert.Equal(t, 0, h.Score)
	assert.Equal(t, HealthCritical, h.Status)
	assert.Equal(t, "urgent: property is not generating any revenue", h.Advisories[0])
}

func TestScore_Tiers(t *testing.T) {
	cfg := DefaultHealthConfig()
	cases := []struct {
		revenue string
		level   int
	}{
		{"3000.01", 20}, {"3000", 15}, {"2000.5", 15}, {"1500", 10}, {"600", 5}, {"500", 2}, {"1", 2}, {"0", 0},
	}
	for _, tc := range cases {
		h := Score(record(tc.revenue, 0, 30), nil, cfg)
		assert.Equal(t, tc.level, h.Components.RevenueLevel, tc.revenue)
	}

	occ := []struct {
		nights int
		points int
	}{
		{25, 30}, {24, 22}, {19, 22}, {13, 15}, {7, 8}, {1, 3}, {0, 0},
	}
	for _, tc := range occ {
		h := Score(record("1000", tc.nights, 30), nil, cfg)
		assert.Equal(t, tc.points, h.Components.Occupancy, tc.nights)
	}
}

func TestScore_OccupancyAnomalyAdvisory(t *testing.T) {
	h := Score(record("4000", 40, 30), nil, DefaultHealthConfig())
	assert.Equal(t, 30, h.Components.Occupancy)
	assert.Contains(t, h.Advisories[0], "occupancy above 100%")
}

func TestScore_RevenueAdvisoryFollowsTiers(t *testing.T) {
	def := Score(record("450", 15, 30), nil, DefaultHealthConfig())
	assert.Contains(t, def.Advisories, "revenue below $500 — consider pricing optimization")

	cfg := DefaultHealthConfig()
	cfg.RevenueTiers = []Tier{{Above: 5000, Points: 20}, {Above: 1200, Points: 10}, {Above: 0, Points: 2}}

	low := Score(record("900", 15, 30), nil, cfg)
	assert.Equal(t, 2, low.Components.RevenueLevel)
	assert.Contains(t, low.Advisories, "revenue below $1200 — consider pricing optimization")

	above := Score(record("1500", 15, 30), nil, cfg)
	assert.NotContains(t, above.Advisories, "revenue below $1200 — consider pricing optimization")

	cfg.RevenueTiers = []Tier{{Above: 0, Points: 5}}
	none := Score(record("10", 15, 30), nil, cfg)
	for _, a := range none.Advisories {
		assert.NotContains(t, a, "revenue below")
	}
}
