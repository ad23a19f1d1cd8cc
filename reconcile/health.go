package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// HealthStatus buckets a health score.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
)

// Tier awards Points when a value is strictly above Above. Tiers are checked
// in order and the first hit wins.
type Tier struct {
	Above  float64 `mapstructure:"above"`
	Points int     `mapstructure:"points"`
}

// HealthConfig holds the scoring tiers.
type HealthConfig struct {
	PresencePoints    int    `mapstructure:"presence_points"`
	ConsistencyPoints int    `mapstructure:"consistency_points"`
	HealthyAt         int    `mapstructure:"healthy_at"`
	WarningAt         int    `mapstructure:"warning_at"`
	RevenueTiers      []Tier `mapstructure:"revenue_tiers"`
	OccupancyTiers    []Tier `mapstructure:"occupancy_tiers"`
}

// DefaultHealthConfig scores out of 100: presence 40, revenue level 20,
// occupancy 30, consistency 10.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		PresencePoints:    40,
		ConsistencyPoints: 10,
		HealthyAt:         70,
		WarningAt:         40,
		RevenueTiers: []Tier{
			{Above: 3000, Points: 20},
			{Above: 2000, Points: 15},
			{Above: 1000, Points: 10},
			{Above: 500, Points: 5},
			{Above: 0, Points: 2},
		},
		OccupancyTiers: []Tier{
			{Above: 0.8, Points: 30},
			{Above: 0.6, Points: 22},
			{Above: 0.4, Points: 15},
			{Above: 0.2, Points: 8},
			{Above: 0, Points: 3},
		},
	}
}

// HealthComponents are the parts summed into a HealthScore.
type HealthComponents struct {
	Presence     int `json:"presence"`
	RevenueLevel int `json:"revenue_level"`
	Occupancy    int `json:"occupancy"`
	Consistency  int `json:"consistency"`
}

// HealthScore is a 0 to 100 rating of one property with advice for each weak
// component.
type HealthScore struct {
	Score      int              `json:"score"`
	Status     HealthStatus     `json:"status"`
	Components HealthComponents `json:"components"`
	Advisories []string         `json:"advisories"`
}

func tierPoints(tiers []Tier, v decimal.Decimal) int {
	for _, t := range tiers {
		if v.GreaterThan(decimal.NewFromFloat(t.Above)) {
			return t.Points
		}
	}
	return 0
}

// lowestPaidTier returns the smallest non-zero tier boundary. Revenue at or
// under it earns the fewest points.
func lowestPaidTier(tiers []Tier) (decimal.Decimal, bool) {
	var floor decimal.Decimal
	found := false
	for _, t := range tiers {
		if t.Above <= 0 {
			continue
		}
		above := decimal.NewFromFloat(t.Above)
		if !found || above.LessThan(floor) {
			floor, found = above, true
		}
	}
	return floor, found
}

// Score rates rec. monthsInactive is the number of months in the period with
// no revenue; nil means unknown and only revenue presence counts towards
// consistency.
func Score(rec CanonicalPropertyRecord, monthsInactive *int, cfg HealthConfig) HealthScore {
	var c HealthComponents
	advisories := []string{}
	hasRevenue := rec.Revenue.IsPositive()

	if hasRevenue {
		c.Presence = cfg.PresencePoints
	} else {
		advisories = append(advisories, "no revenue in the period — check listing status")
	}

	c.RevenueLevel = tierPoints(cfg.RevenueTiers, rec.Revenue)
	if floor, ok := lowestPaidTier(cfg.RevenueTiers); ok && hasRevenue && rec.Revenue.LessThanOrEqual(floor) {
		advisories = append(advisories, fmt.Sprintf("revenue below $%s — consider pricing optimization", floor))
	}

	c.Occupancy = tierPoints(cfg.OccupancyTiers, rec.Occupancy)
	switch {
	case rec.OccupancyAnomaly:
		advisories = append(advisories, "occupancy above 100% — booked nights exceed days in period, check source data")
	case rec.Nights == 0 && hasRevenue:
		advisories = append(advisories, "no booked nights recorded — review availability")
	case rec.Occupancy.LessThanOrEqual(decimal.NewFromFloat(0.2)) && rec.Nights > 0:
		advisories = append(advisories, "occupancy below 20% — urgent review needed")
	case rec.Occupancy.LessThanOrEqual(decimal.NewFromFloat(0.4)) && rec.Nights > 0:
		advisories = append(advisories, "occupancy below 40% — review pricing")
	}

	switch {
	case monthsInactive == nil || *monthsInactive == 0:
		if hasRevenue {
			c.Consistency = cfg.ConsistencyPoints
		}
	case *monthsInactive == 1:
		c.Consistency = cfg.ConsistencyPoints / 2
		advisories = append(advisories, "inactive for 1 month in the period")
	default:
		advisories = append(advisories, fmt.Sprintf("inactive for %d months in the period", *monthsInactive))
	}

	total := c.Presence + c.RevenueLevel + c.Occupancy + c.Consistency
	total = max(0, min(100, total))

	status := HealthCritical
	switch {
	case total >= cfg.HealthyAt:
		status = HealthHealthy
	case total >= cfg.WarningAt:
		status = HealthWarning
	}
	if status == HealthCritical && !hasRevenue {
		advisories = append([]string{"urgent: property is not generating any revenue"}, advisories...)
	}

	return HealthScore{Score: total, Status: status, Components: c, Advisories: advisories}
}
