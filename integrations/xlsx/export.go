// Package xlsx writes reconciliation results as an Excel workbook.
package xlsx

import (
	"fmt"
	"io"
	"strings"

	"github.com/aqlanhadi/rentrecon/reconcile"
	"github.com/xuri/excelize/v2"
)

const (
	RecordsSheet = "Records"
	SummarySheet = "Summary"
	MatchesSheet = "Matches"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var recordHeadings = []string{
	"Property", "Ledger Name", "Match Score", "Status", "Revenue", "Net Revenue",
	"Nights", "Bookings", "Avg Stay", "Avg Nightly Rate", "Occupancy",
	"Nights Source", "Nights Confidence", "Months Inactive", "Health Score", "Health Status", "Advisories",
}

var matchHeadings = []string{"Report Name", "Ledger Name", "Score", "Distance", "Confidence"}

// Build lays the result out over three sheets.
func Build(result *reconcile.Result) (*excelize.File, error) {
	f := excelize.NewFile()

	// rename the default sheet rather than leaving an empty one behind
	if err := f.SetSheetName("Sheet1", RecordsSheet); err != nil {
		return nil, err
	}
	for _, name := range []string{SummarySheet, MatchesSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	records := make([][]interface{}, 0, len(result.Records))
	for _, r := range result.Records {
		records = append(records, recordRow(r))
	}
	if err := writeTable(f, RecordsSheet, recordHeadings, records); err != nil {
		return nil, err
	}

	if err := writeTable(f, SummarySheet, []string{"Metric", "Value"}, summaryRows(result)); err != nil {
		return nil, err
	}

	matches := make([][]interface{}, 0, len(result.Matches))
	for _, m := range result.Matches {
		matches = append(matches, []interface{}{m.ReportName, m.LedgerName, m.Score, m.Distance, string(m.Confidence)})
	}
	if err := writeTable(f, MatchesSheet, matchHeadings, matches); err != nil {
		return nil, err
	}

	f.SetActiveSheet(0)
	return f, nil
}

// Write streams the workbook to w.
func Write(w io.Writer, result *reconcile.Result) error {
	f, err := Build(result)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// SaveAs writes the workbook to path.
func SaveAs(path string, result *reconcile.Result) error {
	f, err := Build(result)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(path)
}

func writeTable(f *excelize.File, sheet string, headings []string, rows [][]interface{}) error {
	for i, h := range headings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, r+2, err)
		}
	}
	return nil
}

func recordRow(r reconcile.CanonicalPropertyRecord) []interface{} {
	var monthsInactive interface{} = ""
	if r.MonthsInactive != nil {
		monthsInactive = *r.MonthsInactive
	}

	var score interface{} = ""
	var status, advisories string
	if r.Health != nil {
		score = r.Health.Score
		status = string(r.Health.Status)
		advisories = strings.Join(r.Health.Advisories, "; ")
	}

	return []interface{}{
		r.Name,
		r.LedgerName,
		r.MatchScore,
		string(r.Status),
		r.Revenue.InexactFloat64(),
		r.NetRevenue.InexactFloat64(),
		r.Nights,
		r.BookingCount,
		r.AvgStay.InexactFloat64(),
		r.AvgNightlyRate.InexactFloat64(),
		r.Occupancy.InexactFloat64(),
		string(r.Provenance.Nights),
		string(r.NightsConfidence),
		monthsInactive,
		score,
		status,
		advisories,
	}
}

func summaryRows(result *reconcile.Result) [][]interface{} {
	s := result.Summary
	rows := [][]interface{}{
		{"Period", s.Period},
		{"Days In Period", s.DaysInPeriod},
		{"Properties", s.Properties},
		{"Active", s.ActiveCount},
		{"Inactive", s.InactiveCount},
		{"Matched", s.MatchedCount},
		{"Total Revenue", s.TotalRevenue.InexactFloat64()},
		{"Total Net Revenue", s.TotalNetRevenue.InexactFloat64()},
		{"Total Nights", s.TotalNights},
		{"Total Bookings", s.TotalBookings},
		{"Report Gross", s.ReportGross.InexactFloat64()},
		{"Ledger Revenue", s.LedgerRevenue.InexactFloat64()},
		{"Ledger Nights", s.LedgerNights},
	}
	if s.DateRange != nil {
		rows = append(rows,
			[]interface{}{"Period Start", s.DateRange.Start.Format("2006-01-02")},
			[]interface{}{"Period End", s.DateRange.End.Format("2006-01-02")},
		)
	}
	if s.ReportNightsBooked != nil {
		rows = append(rows, []interface{}{"Report Nights Booked", *s.ReportNightsBooked})
	}
	if s.AverageHealth != nil {
		rows = append(rows, []interface{}{"Average Health", *s.AverageHealth})
	}
	if len(result.UnmatchedLedger) > 0 {
		rows = append(rows, []interface{}{"Unmatched Ledger Listings", strings.Join(result.UnmatchedLedger, "; ")})
	}
	return rows
}
