package ledger

import (
	"strings"
	"testing"
	"time"

	"github.com/aqlanhadi/rentrecon/extractor/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "Date,Type,Confirmation Code,Start Date,Nights,Guest,Listing,Details,Amount,Gross earnings\n"

func parse(t *testing.T, body string, filter *common.DateRange) *Result {
	t.Helper()
	result, err := Parse(strings.NewReader(header+body), "test.csv", DefaultConfig(), filter)
	require.NoError(t, err)
	return result
}

func TestParse_FeeAdjustmentSharesBooking(t *testing.T) {
	// Same stay, base charge plus a fee adjustment row.
	csvData := `01/10/2024,Reservation,HM1,01/15/2024,3,Ana,Beach House,,450.00,450.00
01/12/2024,Reservation,HM1,01/15/2024,3,Ana,Beach House,fee,-45.00,-45.00
`
	result := parse(t, csvData, nil)

	require.Len(t, result.Bookings, 1)
	b := result.Bookings[0]
	assert.Equal(t, "HM1", b.Code)
	assert.Equal(t, 3, b.Nights)
	assert.Equal(t, 2, b.RowCount)
	if !b.Revenue.Equal(decimal.NewFromInt(405)) {
		t.Errorf("Expected revenue 405, got %s", b.Revenue.String())
	}

	require.Len(t, result.Properties, 1)
	p := result.Properties[0]
	assert.Equal(t, "Beach House", p.Name)
	assert.Equal(t, 3, p.Nights)
	assert.Equal(t, 1, p.BookingCount)
	assert.Equal(t, "135", p.AvgNightlyRate.String())
	assert.Equal(t, "3", p.AvgStay.String())
	assert.Equal(t, 6, result.RawNights["Beach House"])
}

func TestParse_PayoutsExcluded(t *testing.T) {
	csvData := `01/10/2024,Reservation,HM1,01/15/2024,2,Ana,Beach House,,300.00,
01/16/2024,Payout,,,,,,Transfer to ****1234,300.00,
`
	result := parse(t, csvData, nil)

	assert.Equal(t, 2, result.Diagnostics.TotalRows)
	assert.Equal(t, 1, result.Diagnostics.ExcludedRows)
	assert.Equal(t, 0, result.Diagnostics.SkippedRows)
	assert.Equal(t, "300", result.TotalPayouts.String())
	assert.Equal(t, "300", result.TotalRevenue.String())
	assert.Equal(t, 2, result.TotalNights)
}

func TestParse_SkipsRowsMissingRequiredFields(t *testing.T) {
	csvData := `,Reservation,HM1,01/15/2024,2,Ana,Beach House,,300.00,
01/10/2024,Reservation,HM2,01/15/2024,2,Ana,,,300.00,
not a date,Reservation,HM3,01/15/2024,2,Ana,Beach House,,300.00,
01/10/2024,Reservation,HM4,01/15/2024,2,Ana,Beach House,,300.00,
`
	result := parse(t, csvData, nil)

	assert.Equal(t, 4, result.Diagnostics.TotalRows)
	assert.Equal(t, 3, result.Diagnostics.SkippedRows)
	require.Len(t, result.Bookings, 1)
	assert.Equal(t, "HM4", result.Bookings[0].Code)
}

func TestParse_CodelessRowsStandAlone(t *testing.T) {
	csvData := `01/10/2024,Reservation,,01/15/2024,2,Ana,Beach House,,200.00,
01/11/2024,Reservation,,01/15/2024,2,Ana,Beach House,,200.00,
01/12/2024,Resolution Adjustment,,,,,Beach House,,-20.00,
`
	result := parse(t, csvData, nil)

	require.Len(t, result.Bookings, 2)
	for _, b := range result.Bookings {
		assert.True(t, b.Standalone)
	}
	assert.Equal(t, 1, result.Diagnostics.ExcludedRows)
	assert.Equal(t, 4, result.Properties[0].Nights)
	assert.Equal(t, 2, result.Properties[0].BookingCount)
}

func TestParse_AdjustmentWithoutReservation(t *testing.T) {
	csvData := `02/01/2024,Adjustment,HM9,,,,Beach House,,25.00,
`
	result := parse(t, csvData, nil)

	require.Len(t, result.Bookings, 1)
	assert.False(t, result.Bookings[0].HasReservation)
	p := result.Properties[0]
	assert.Equal(t, 0, p.BookingCount)
	assert.Equal(t, "25", p.Revenue.String())
	assert.True(t, p.AvgNightlyRate.IsZero())
	assert.True(t, p.AvgStay.IsZero())
}

func TestParse_FilterUsesStayStartAfterGrouping(t *testing.T) {
	// Booked in December, stayed in January; the adjustment lands in February.
	csvData := `12/20/2023,Reservation,HM1,01/05/2024,4,Ana,Beach House,,400.00,
02/02/2024,Adjustment,HM1,,,,Beach House,,-40.00,
12/21/2023,Reservation,HM2,12/28/2023,2,Bo,Beach House,,250.00,
01/03/2024,Reservation,,,1,Cy,Beach House,,90.00,
`
	filter, err := common.ParseDateRange("2024-01-01", "2024-01-31")
	require.NoError(t, err)

	result := parse(t, csvData, filter)

	require.Len(t, result.Bookings, 1)
	assert.Equal(t, "HM1", result.Bookings[0].Code)
	assert.Equal(t, "360", result.Bookings[0].Revenue.String())
	assert.Equal(t, 2, result.Diagnostics.FilteredBookings)
	require.NotNil(t, result.StaySpan)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), result.StaySpan.Start)
}

func TestParse_GrossEarningsPreferredOverAmount(t *testing.T) {
	csvData := `01/10/2024,Reservation,HM1,01/15/2024,2,Ana,Beach House,,270.00,300.00
01/10/2024,Reservation,HM2,01/20/2024,1,Bo,Beach House,,120.00,
`
	result := parse(t, csvData, nil)
	assert.Equal(t, "300", result.Bookings[0].Revenue.String())
	assert.Equal(t, "120", result.Bookings[1].Revenue.String())
}

func TestParse_MalformedValuesCountedAsAnomalies(t *testing.T) {
	csvData := `01/10/2024,Reservation,HM1,01/15/2024,two,Ana,Beach House,,N/A,
`
	result := parse(t, csvData, nil)
	require.Len(t, result.Bookings, 1)
	assert.Equal(t, 0, result.Bookings[0].Nights)
	assert.True(t, result.Bookings[0].Revenue.IsZero())
	assert.Equal(t, 2, result.Diagnostics.ParseAnomalies)
}

func TestParse_HeaderAliasesAndExtraColumns(t *testing.T) {
	csvData := "\ufeffdate,TYPE,confirmation  code,Start date,Nights,Listing,Currency,Ignored,Amount\n" +
		"2024-01-10,reservation,HM1,2024-01-15,2,Beach House,USD,x,\"$1,200.00\"\n"
	result, err := Parse(strings.NewReader(csvData), "aliases.csv", DefaultConfig(), nil)
	require.NoError(t, err)

	require.Len(t, result.Bookings, 1)
	assert.Equal(t, "USD", result.Currency)
	assert.Equal(t, 2, result.Bookings[0].Nights)
}

func TestParse_EmptyInput(t *testing.T) {
	result, err := Parse(strings.NewReader(""), "empty.csv", DefaultConfig(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Bookings)
	assert.Empty(t, result.Properties)
	assert.NotEmpty(t, result.Diagnostics.Notes)

	result, err = Parse(strings.NewReader(header), "header.csv", DefaultConfig(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Properties)
}

func TestParse_DedupInvariant(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		equal bool
	}{
		{
			name: "unique codes",
			body: `01/01/2024,Reservation,A1,01/02/2024,2,,Loft,,200,
01/01/2024,Reservation,A2,01/05/2024,3,,Loft,,300,
01/01/2024,Reservation,,01/09/2024,1,,Loft,,90,
`,
			equal: true,
		},
		{
			name: "duplicated code",
			body: `01/01/2024,Reservation,A1,01/02/2024,2,,Loft,,200,
01/03/2024,Reservation,A1,01/02/2024,2,,Loft,,-20,
01/01/2024,Reservation,A2,01/05/2024,3,,Loft,,300,
`,
			equal: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := parse(t, tc.body, nil)
			p, ok := result.Property("Loft")
			require.True(t, ok)
			raw := result.RawNights["Loft"]
			assert.LessOrEqual(t, p.Nights, raw)
			assert.Equal(t, tc.equal, p.Nights == raw)
		})
	}
}

func TestParse_DedupInvariantWithFilter(t *testing.T) {
	body := `01/01/2024,Reservation,A1,01/02/2024,2,,Loft,,200,
01/01/2024,Reservation,A2,02/05/2024,3,,Loft,,300,
`
	filter, err := common.ParseDateRange("2024-01-01", "2024-01-31")
	require.NoError(t, err)

	result := parse(t, body, filter)
	p, ok := result.Property("Loft")
	require.True(t, ok)
	assert.Equal(t, 2, p.Nights)
	assert.Equal(t, 2, result.RawNights["Loft"])
	assert.Equal(t, 1, result.Diagnostics.FilteredBookings)

	dup := body + "01/03/2024,Reservation,A1,01/02/2024,2,,Loft,,-20,\n"
	result = parse(t, dup, filter)
	p, _ = result.Property("Loft")
	assert.Equal(t, 2, p.Nights)
	assert.Equal(t, 4, result.RawNights["Loft"])
}

func TestParse_RevenueConservation(t *testing.T) {
	csvData := `01/01/2024,Reservation,A1,01/02/2024,2,,Loft,,200.10,
01/03/2024,Adjustment,A1,,,,Loft,,-20.05,
01/04/2024,Resolution Payout,A1,,,,Loft,,15.00,
01/01/2024,Reservation,B7,01/05/2024,3,,Cabin,,300,
`
	result := parse(t, csvData, nil)

	sums := map[string]decimal.Decimal{
		"A1": decimal.RequireFromString("195.05"),
		"B7": decimal.NewFromInt(300),
	}
	for _, b := range result.Bookings {
		want, ok := sums[b.Code]
		require.True(t, ok, b.Code)
		assert.True(t, want.Equal(b.Revenue), "%s: want %s got %s", b.Code, want, b.Revenue)
	}
}

func TestResult_PropertyLookup(t *testing.T) {
	csvData := `01/01/2024,Reservation,A1,01/02/2024,2,,Loft,,200,
01/01/2024,Reservation,B1,01/02/2024,2,,Cabin,,200,
`
	result := parse(t, csvData, nil)
	assert.Equal(t, []string{"Cabin", "Loft"}, result.Names())
	_, ok := result.Property("Missing")
	assert.False(t, ok)
}
