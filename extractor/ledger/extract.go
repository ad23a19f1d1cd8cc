// Package ledger turns a transaction-ledger CSV export into deduplicated
// bookings and per-property metrics.
package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aqlanhadi/rentrecon/extractor/common"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// RowType classifies a ledger line.
type RowType string

const (
	RowReservation RowType = "reservation"
	RowPayout      RowType = "payout"
	RowOther       RowType = "other"
)

// Config names the header cells the parser recognises for each field and the
// type labels that classify rows. Header matching ignores case and repeated
// whitespace.
type Config struct {
	Columns          Columns  `mapstructure:"columns"`
	ReservationTypes []string `mapstructure:"reservation_types"`
	PayoutTypes      []string `mapstructure:"payout_types"`
}

// Columns lists accepted header names per field, in priority order.
type Columns struct {
	Date             []string `mapstructure:"date"`
	Type             []string `mapstructure:"type"`
	ConfirmationCode []string `mapstructure:"confirmation_code"`
	StartDate        []string `mapstructure:"start_date"`
	EndDate          []string `mapstructure:"end_date"`
	Nights           []string `mapstructure:"nights"`
	Guest            []string `mapstructure:"guest"`
	Listing          []string `mapstructure:"listing"`
	GrossEarnings    []string `mapstructure:"gross_earnings"`
	Amount           []string `mapstructure:"amount"`
	Currency         []string `mapstructure:"currency"`
}

// DefaultConfig matches the host earnings CSV export.
func DefaultConfig() Config {
	return Config{
		Columns: Columns{
			Date:             []string{"Date"},
			Type:             []string{"Type"},
			ConfirmationCode: []string{"Confirmation Code"},
			StartDate:        []string{"Start Date"},
			EndDate:          []string{"End Date"},
			Nights:           []string{"Nights"},
			Guest:            []string{"Guest"},
			Listing:          []string{"Listing"},
			GrossEarnings:    []string{"Gross earnings"},
			Amount:           []string{"Amount"},
			Currency:         []string{"Currency"},
		},
		ReservationTypes: []string{"Reservation"},
		PayoutTypes:      []string{"Payout"},
	}
}

// TransactionRow is one parsed ledger line.
type TransactionRow struct {
	Line             int
	Date             time.Time
	Type             RowType
	RawType          string
	ConfirmationCode string
	StartDate        *time.Time
	EndDate          *time.Time
	Nights           int
	Guest            string
	Listing          string
	Amount           decimal.Decimal
	Currency         string
}

// Result is everything one parse pass produces.
type Result struct {
	Source        string             `json:"source"`
	Currency      string             `json:"currency,omitempty"`
	Bookings      []Booking          `json:"bookings"`
	Properties    []PropertyMetrics  `json:"properties"`
	RawNights     map[string]int     `json:"raw_nights"`
	TotalRevenue  decimal.Decimal    `json:"total_revenue"`
	TotalNights   int                `json:"total_nights"`
	TotalBookings int                `json:"total_bookings"`
	TotalPayouts  decimal.Decimal    `json:"total_payouts"`
	Filter        *common.DateRange  `json:"filter,omitempty"`
	StaySpan      *common.DateRange  `json:"stay_span,omitempty"`
	Diagnostics   common.Diagnostics `json:"diagnostics"`
}

// Property returns the metrics folded for name.
func (r *Result) Property(name string) (PropertyMetrics, bool) {
	i := sort.Search(len(r.Properties), func(i int) bool { return r.Properties[i].Name >= name })
	if i < len(r.Properties) && r.Properties[i].Name == name {
		return r.Properties[i], true
	}
	return PropertyMetrics{}, false
}

// Names returns the listing names in the result, sorted.
func (r *Result) Names() []string {
	names := make([]string, 0, len(r.Properties))
	for _, p := range r.Properties {
		names = append(names, p.Name)
	}
	return names
}

type columnIndex struct {
	date, typ, code, start, end, nights, guest, listing, gross, amount, currency int
}

var spaceRegex = regexp.MustCompile(`\s+`)

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(spaceRegex.ReplaceAllString(strings.TrimSpace(h), " "))
}

func resolveColumns(header []string, cols Columns) columnIndex {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, seen := positions[key]; !seen {
			positions[key] = i
		}
	}
	find := func(names []string) int {
		for _, n := range names {
			if i, ok := positions[normalizeHeader(n)]; ok {
				return i
			}
		}
		return -1
	}
	return columnIndex{
		date:     find(cols.Date),
		typ:      find(cols.Type),
		code:     find(cols.ConfirmationCode),
		start:    find(cols.StartDate),
		end:      find(cols.EndDate),
		nights:   find(cols.Nights),
		guest:    find(cols.Guest),
		listing:  find(cols.Listing),
		gross:    find(cols.GrossEarnings),
		amount:   find(cols.Amount),
		currency: find(cols.Currency),
	}
}

func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// Parse reads a ledger CSV and returns deduplicated bookings folded into
// per-property metrics. filter, when set, keeps only bookings whose stay
// starts inside it. Malformed rows never abort the parse; they are counted in
// the result diagnostics. The only error is a failure of the underlying
// reader.
func Parse(reader io.Reader, source string, cfg Config, filter *common.DateRange) (*Result, error) {
	result := &Result{
		Source:    source,
		RawNights: map[string]int{},
		Filter:    filter,
	}

	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1
	csvReader.LazyQuotes = true
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err == io.EOF {
		result.Diagnostics.Note("ledger is empty")
		result.Properties = []PropertyMetrics{}
		result.Bookings = []Booking{}
		return result, nil
	}
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			result.Diagnostics.Note(fmt.Sprintf("unreadable ledger header: %v", err))
			result.Properties = []PropertyMetrics{}
			result.Bookings = []Booking{}
			return result, nil
		}
		return nil, fmt.Errorf("failed to read ledger header: %w", err)
	}

	idx := resolveColumns(header, cfg.Columns)
	if idx.date < 0 || idx.listing < 0 {
		log.WithField("source", source).Warn("ledger header lacks a Date or Listing column")
		result.Diagnostics.Note("ledger header lacks a Date or Listing column")
	}

	var rows []TransactionRow
	line := 1
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, fmt.Errorf("failed to read ledger line %d: %w", line, err)
			}
			log.WithFields(log.Fields{"source": source, "line": line}).Warnf("skipping unreadable row: %v", err)
			result.Diagnostics.TotalRows++
			result.Diagnostics.SkippedRows++
			continue
		}
		if isBlank(record) {
			continue
		}
		result.Diagnostics.TotalRows++

		row, ok := parseRow(record, idx, cfg, line, &result.Diagnostics)
		if !ok {
			continue
		}
		if row.Type == RowPayout {
			result.TotalPayouts = result.TotalPayouts.Add(row.Amount)
			result.Diagnostics.ExcludedRows++
			continue
		}
		if row.Currency != "" && result.Currency == "" {
			result.Currency = row.Currency
		}
		rows = append(rows, row)
	}

	bookings, excluded := GroupBookings(rows)
	result.Diagnostics.ExcludedRows += excluded

	if filter != nil {
		kept := bookings[:0]
		for _, b := range bookings {
			if b.StartDate == nil || !filter.Contains(*b.StartDate) {
				result.Diagnostics.FilteredBookings++
				continue
			}
			kept = append(kept, b)
		}
		bookings = kept
	}

	for _, b := range bookings {
		if b.HasReservation {
			result.RawNights[b.Listing] += b.RawNights
		}
	}

	result.Bookings = bookings
	result.Properties = FoldMetrics(bookings)
	result.StaySpan = staySpan(bookings)
	for _, p := range result.Properties {
		result.TotalRevenue = result.TotalRevenue.Add(p.Revenue)
		result.TotalNights += p.Nights
		result.TotalBookings += p.BookingCount
	}

	log.WithFields(log.Fields{
		"source":     source,
		"rows":       result.Diagnostics.TotalRows,
		"bookings":   len(result.Bookings),
		"properties": len(result.Properties),
		"skipped":    result.Diagnostics.SkippedRows,
	}).Debug("ledger parsed")

	return result, nil
}

func isBlank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func classify(raw string, cfg Config) RowType {
	for _, t := range cfg.ReservationTypes {
		if strings.EqualFold(raw, t) {
			return RowReservation
		}
	}
	for _, t := range cfg.PayoutTypes {
		if strings.EqualFold(raw, t) {
			return RowPayout
		}
	}
	return RowOther
}

// parseRow converts a CSV record into a TransactionRow. It reports false when
// the row was skipped; the reason is already tallied in diag.
func parseRow(record []string, idx columnIndex, cfg Config, line int, diag *common.Diagnostics) (TransactionRow, bool) {
	row := TransactionRow{
		Line:             line,
		RawType:          cell(record, idx.typ),
		ConfirmationCode: cell(record, idx.code),
		Guest:            cell(record, idx.guest),
		Listing:          cell(record, idx.listing),
		Currency:         cell(record, idx.currency),
	}
	row.Type = classify(row.RawType, cfg)

	row.Amount = parseAmount(record, idx, line, diag)

	// payouts carry no listing, so they are set aside before validation
	if row.Type == RowPayout {
		return row, true
	}

	dateStr := cell(record, idx.date)
	if dateStr == "" || row.Listing == "" {
		log.WithField("line", line).Debug("skipping ledger row missing date or listing")
		diag.SkippedRows++
		return row, false
	}
	date, err := common.ParseDate(dateStr)
	if err != nil {
		log.WithField("line", line).Warnf("skipping ledger row: %v", err)
		diag.SkippedRows++
		return row, false
	}
	row.Date = date

	if s := cell(record, idx.start); s != "" {
		if start, err := common.ParseDate(s); err == nil {
			row.StartDate = &start
		} else {
			diag.ParseAnomalies++
		}
	}
	if s := cell(record, idx.end); s != "" {
		if end, err := common.ParseDate(s); err == nil {
			row.EndDate = &end
		} else {
			diag.ParseAnomalies++
		}
	}
	if s := cell(record, idx.nights); s != "" {
		nights, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
		if err != nil || nights < 0 {
			log.WithField("line", line).Warnf("malformed nights %q treated as 0", s)
			diag.ParseAnomalies++
			nights = 0
		}
		row.Nights = nights
	}

	return row, true
}

func parseAmount(record []string, idx columnIndex, line int, diag *common.Diagnostics) decimal.Decimal {
	raw := cell(record, idx.gross)
	if raw == "" {
		raw = cell(record, idx.amount)
	}
	if raw == "" {
		return decimal.Zero
	}
	amount, err := common.CleanDecimal(raw)
	if err != nil || !strings.ContainsAny(raw, "0123456789") {
		log.WithField("line", line).Warnf("malformed amount %q treated as 0", raw)
		diag.ParseAnomalies++
		return decimal.Zero
	}
	return amount
}

func staySpan(bookings []Booking) *common.DateRange {
	var span *common.DateRange
	for _, b := range bookings {
		if b.StartDate == nil {
			continue
		}
		if span == nil {
			span = &common.DateRange{Start: *b.StartDate, End: *b.StartDate}
			continue
		}
		if b.StartDate.Before(span.Start) {
			span.Start = *b.StartDate
		}
		if b.StartDate.After(span.End) {
			span.End = *b.StartDate
		}
	}
	return span
}
