package ledger

import (
	"sort"
	"time"

	"github.com/aqlanhadi/rentrecon/extractor/common"
	"github.com/shopspring/decimal"
)

// PropertyMetrics is the ledger view of one listing.
type PropertyMetrics struct {
	Name           string          `json:"name"`
	Revenue        decimal.Decimal `json:"revenue"`
	Nights         int             `json:"nights"`
	BookingCount   int             `json:"booking_count"`
	AvgStay        decimal.Decimal `json:"avg_stay"`
	AvgNightlyRate decimal.Decimal `json:"avg_nightly_rate"`
	FirstStay      *time.Time      `json:"first_stay,omitempty"`
	LastStay       *time.Time      `json:"last_stay,omitempty"`
	Monthly        []MonthMetrics  `json:"monthly,omitempty"`
}

// MonthMetrics buckets bookings by the month their stay starts.
type MonthMetrics struct {
	Month    string          `json:"month"`
	Revenue  decimal.Decimal `json:"revenue"`
	Nights   int             `json:"nights"`
	Bookings int             `json:"bookings"`
}

const monthLayout = "2006-01"

// FoldMetrics groups bookings by listing and derives averages. The result is
// sorted by listing name.
func FoldMetrics(bookings []Booking) []PropertyMetrics {
	byName := make(map[string]*PropertyMetrics)
	months := make(map[string]map[string]*MonthMetrics)

	for _, b := range bookings {
		m, ok := byName[b.Listing]
		if !ok {
			m = &PropertyMetrics{Name: b.Listing}
			byName[b.Listing] = m
			months[b.Listing] = make(map[string]*MonthMetrics)
		}
		m.Revenue = m.Revenue.Add(b.Revenue)
		m.Nights += b.Nights
		if b.HasReservation {
			m.BookingCount++
		}
		if b.StartDate == nil {
			continue
		}
		if m.FirstStay == nil || b.StartDate.Before(*m.FirstStay) {
			first := *b.StartDate
			m.FirstStay = &first
		}
		if m.LastStay == nil || b.StartDate.After(*m.LastStay) {
			last := *b.StartDate
			m.LastStay = &last
		}

		key := b.StartDate.Format(monthLayout)
		mm, ok := months[b.Listing][key]
		if !ok {
			mm = &MonthMetrics{Month: key}
			months[b.Listing][key] = mm
		}
		mm.Revenue = mm.Revenue.Add(b.Revenue)
		mm.Nights += b.Nights
		if b.HasReservation {
			mm.Bookings++
		}
	}

	out := make([]PropertyMetrics, 0, len(byName))
	for name, m := range byName {
		m.AvgStay = common.SafeDiv(decimal.NewFromInt(int64(m.Nights)), decimal.NewFromInt(int64(m.BookingCount))).Round(2)
		m.AvgNightlyRate = common.SafeDiv(m.Revenue, decimal.NewFromInt(int64(m.Nights))).Round(2)
		for _, mm := range months[name] {
			m.Monthly = append(m.Monthly, *mm)
		}
		sort.Slice(m.Monthly, func(i, j int) bool { return m.Monthly[i].Month < m.Monthly[j].Month })
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// InactiveMonths counts the calendar months of period in which the listing
// earned nothing from stays starting that month.
func InactiveMonths(m PropertyMetrics, period common.DateRange) int {
	earned := make(map[string]bool, len(m.Monthly))
	for _, mm := range m.Monthly {
		if mm.Revenue.IsPositive() {
			earned[mm.Month] = true
		}
	}
	inactive := 0
	for _, month := range period.Months() {
		if !earned[month.Format(monthLayout)] {
			inactive++
		}
	}
	return inactive
}
