package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Booking is one guest stay after collapsing every ledger row that shares a
// confirmation code. RawNights sums the nights column over all of its
// reservation rows, before deduplication.
type Booking struct {
	Code           string          `json:"code,omitempty"`
	Listing        string          `json:"listing"`
	Guest          string          `json:"guest,omitempty"`
	StartDate      *time.Time      `json:"start_date,omitempty"`
	EndDate        *time.Time      `json:"end_date,omitempty"`
	Nights         int             `json:"nights"`
	RawNights      int             `json:"raw_nights"`
	Revenue        decimal.Decimal `json:"revenue"`
	RowCount       int             `json:"row_count"`
	HasReservation bool            `json:"has_reservation"`
	Standalone     bool            `json:"standalone,omitempty"`
}

// GroupBookings collapses rows into bookings in first-appearance order.
//
// Rows sharing a confirmation code form one booking: the first reservation
// row fixes nights and stay dates, and every row adds its amount to revenue.
// A reservation row without a code stands alone. Codeless non-reservation
// rows cannot be attributed to a stay and are returned in the excluded count.
func GroupBookings(rows []TransactionRow) ([]Booking, int) {
	bookings := make([]Booking, 0, len(rows))
	byCode := make(map[string]int)
	excluded := 0

	for _, row := range rows {
		if row.ConfirmationCode == "" {
			if row.Type != RowReservation {
				excluded++
				continue
			}
			b := Booking{Listing: row.Listing, Standalone: true}
			b.seed(row)
			b.RawNights = row.Nights
			b.Revenue = row.Amount
			b.RowCount = 1
			bookings = append(bookings, b)
			continue
		}

		i, ok := byCode[row.ConfirmationCode]
		if !ok {
			i = len(bookings)
			byCode[row.ConfirmationCode] = i
			bookings = append(bookings, Booking{
				Code:    row.ConfirmationCode,
				Listing: row.Listing,
				Revenue: decimal.Zero,
			})
		}
		b := &bookings[i]
		if row.Type == RowReservation {
			if !b.HasReservation {
				b.seed(row)
			}
			b.RawNights += row.Nights
		}
		b.Revenue = b.Revenue.Add(row.Amount)
		b.RowCount++
	}

	return bookings, excluded
}

// seed copies the stay facts of a reservation row into b.
func (b *Booking) seed(row TransactionRow) {
	b.HasReservation = true
	b.Listing = row.Listing
	b.Guest = row.Guest
	b.Nights = row.Nights
	if row.StartDate != nil {
		start := *row.StartDate
		b.StartDate = &start
		switch {
		case row.EndDate != nil:
			end := *row.EndDate
			b.EndDate = &end
		case row.Nights > 0:
			end := start.AddDate(0, 0, row.Nights)
			b.EndDate = &end
		}
	}
}
