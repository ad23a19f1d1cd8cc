package common

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanDecimal_SimpleNumber(t *testing.T) {
	result, err := CleanDecimal("123.45")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.String() != "123.45" {
		t.Errorf("Expected '123.45', got '%s'", result.String())
	}
}

func TestCleanDecimal_WithCommas(t *testing.T) {
	result, err := CleanDecimal("1,234.56")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.String() != "1234.56" {
		t.Errorf("Expected '1234.56', got '%s'", result.String())
	}
}

func TestCleanDecimal_WithCurrencySymbol(t *testing.T) {
	result, err := CleanDecimal("$2,880.20")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.String() != "2880.2" {
		t.Errorf("Expected '2880.2', got '%s'", result.String())
	}
}

func TestCleanDecimal_WithPrefix(t *testing.T) {
	result, err := CleanDecimal("Gross earnings 500.00")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.String() != "500" {
		t.Errorf("Expected '500', got '%s'", result.String())
	}
}

func TestCleanDecimal_EmptyString(t *testing.T) {
	result, err := CleanDecimal("")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !result.IsZero() {
		t.Errorf("Expected zero, got '%s'", result.String())
	}
}

func TestCleanDecimal_NoNumbers(t *testing.T) {
	result, err := CleanDecimal("ABC")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !result.IsZero() {
		t.Errorf("Expected zero, got '%s'", result.String())
	}
}

func TestCleanDecimal_NegativeForms(t *testing.T) {
	for _, in := range []string{"-45.00", "-$45.00", "$-45.00", "($45.00)"} {
		result, err := CleanDecimal(in)
		require.NoError(t, err, in)
		assert.Equal(t, "-45", result.String(), in)
	}
}

func TestCleanDecimal_Malformed(t *testing.T) {
	_, err := CleanDecimal("1.2.3")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedAmount))
}

func TestCleanDecimal_LargeNumber(t *testing.T) {
	result, err := CleanDecimal("1,234,567.89")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.String() != "1234567.89" {
		t.Errorf("Expected '1234567.89', got '%s'", result.String())
	}
}

func TestParseDate_Layouts(t *testing.T) {
	want := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"01/20/2024", "1/20/2024", "2024-01-20", "01/20/24", "Jan 20, 2024"} {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s parsed as %s", in, got)
	}
}

func TestParseDate_InvalidDate(t *testing.T) {
	_, err := ParseDate("invalid")
	if err == nil {
		t.Error("Expected error for invalid date, got nil")
	}
	_, err = ParseDate("  ")
	assert.Error(t, err)
}

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("2024-01-01", "2024-01-31")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 31, r.Days())
	assert.True(t, r.Contains(time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))

	r, err = ParseDateRange("", "")
	assert.NoError(t, err)
	assert.Nil(t, r)

	_, err = ParseDateRange("2024-02-01", "2024-01-01")
	assert.Error(t, err)

	_, err = ParseDateRange("2024-02-01", "")
	assert.Error(t, err)
}

func TestDateRange_Months(t *testing.T) {
	r := DateRange{
		Start: time.Date(2024, 11, 15, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC),
	}
	months := r.Months()
	require.Len(t, months, 4)
	assert.Equal(t, time.November, months[0].Month())
	assert.Equal(t, 2025, months[3].Year())
	assert.Equal(t, time.February, months[3].Month())
}

func TestSplitLines(t *testing.T) {
	lines := SplitLines("  a \r\n\r\nb\rc\n\n")
	assert.Equal(t, []string{"a", "b", "c"}, lines)
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF([]byte("%PDF-1.7\n...")))
	assert.False(t, IsPDF([]byte("Date,Type,Listing")))
}
