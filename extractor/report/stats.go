package report

import (
	"strconv"
	"strings"

	"github.com/aqlanhadi/rentrecon/extractor/common"
	"github.com/shopspring/decimal"
)

// RateBand is the range of nightly rates considered plausible when checking a
// nights/average-stay split.
type RateBand struct {
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
}

// Contains reports whether rate falls inside the band, inclusive.
func (b RateBand) Contains(rate decimal.Decimal) bool {
	return !rate.LessThan(decimal.NewFromFloat(b.Min)) && !rate.GreaterThan(decimal.NewFromFloat(b.Max))
}

// StayStats is the nights and average stay recovered for one property from the
// performance stats block. Per-property values are advisory; only the
// portfolio totals in the summary are authoritative.
type StayStats struct {
	Raw         string            `json:"raw"`
	Nights      int               `json:"nights"`
	AvgStay     decimal.Decimal   `json:"avg_stay"`
	ImpliedRate decimal.Decimal   `json:"implied_rate"`
	Confidence  common.Confidence `json:"confidence"`
	Rule        string            `json:"rule"`
}

type split struct {
	rule    string
	nights  int
	avgStay decimal.Decimal
}

// Disambiguate splits a stats run into nights and average stay.
//
// A run separated by whitespace ("332 10.4") is delimited and exact. An
// undelimited run ("33210.4") has its integer part split by these rules, in
// order:
//
//	a: two digits or fewer: all of it is the average stay, nights are zero
//	b: the last two digits are the average stay when they lie in [1, maxAvgStay]
//	c: otherwise the last digit is the average stay
//
// Candidates b and c are checked against gross/nights and the first one whose
// implied rate falls inside band is returned as heuristic. When none does,
// the first applicable rule wins and the result is low-confidence.
func Disambiguate(raw string, gross decimal.Decimal, band RateBand, maxAvgStay int) (StayStats, bool) {
	raw = strings.TrimSpace(raw)
	if fields := strings.Fields(raw); len(fields) == 2 {
		nights, err := strconv.Atoi(fields[0])
		if err != nil {
			return StayStats{}, false
		}
		avg, err := decimal.NewFromString(fields[1])
		if err != nil {
			return StayStats{}, false
		}
		return StayStats{
			Raw:         raw,
			Nights:      nights,
			AvgStay:     avg,
			ImpliedRate: impliedRate(gross, nights),
			Confidence:  common.ConfidenceExact,
			Rule:        "delimited",
		}, true
	}

	intPart, frac, _ := strings.Cut(raw, ".")
	if intPart == "" || !isDigits(intPart) || (frac != "" && !isDigits(frac)) {
		return StayStats{}, false
	}

	stats := StayStats{Raw: raw}

	if len(intPart) <= 2 {
		stats.Rule = "a"
		stats.AvgStay = avgStay(intPart, frac)
		// zero nights only makes sense for a property that earned nothing
		if gross.IsZero() {
			stats.Confidence = common.ConfidenceHeuristic
		} else {
			stats.Confidence = common.ConfidenceLow
		}
		return stats, true
	}

	// a run too long to hold a night count is not a stats run
	n := len(intPart)
	nights, err := strconv.Atoi(intPart[:n-1])
	if err != nil {
		return StayStats{}, false
	}

	var candidates []split
	if last2, _ := strconv.Atoi(intPart[n-2:]); last2 >= 1 && last2 <= maxAvgStay {
		candidates = append(candidates, split{rule: "b", nights: nights / 10, avgStay: avgStay(intPart[n-2:], frac)})
	}
	candidates = append(candidates, split{rule: "c", nights: nights, avgStay: avgStay(intPart[n-1:], frac)})

	chosen := candidates[0]
	stats.Confidence = common.ConfidenceLow
	for _, c := range candidates {
		if c.nights > 0 && band.Contains(impliedRate(gross, c.nights)) {
			chosen = c
			stats.Confidence = common.ConfidenceHeuristic
			break
		}
	}

	stats.Rule = chosen.rule
	stats.Nights = chosen.nights
	stats.AvgStay = chosen.avgStay
	stats.ImpliedRate = impliedRate(gross, chosen.nights)
	return stats, true
}

func avgStay(intPart, frac string) decimal.Decimal {
	s := intPart
	if frac != "" {
		s += "." + frac
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func impliedRate(gross decimal.Decimal, nights int) decimal.Decimal {
	return common.SafeDiv(gross, decimal.NewFromInt(int64(nights))).Round(2)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
