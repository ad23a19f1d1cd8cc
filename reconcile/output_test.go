package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"
)

func sampleResult() *Result {
	return &Result{
		Records: []CanonicalPropertyRecord{
			{Name: "Beach House", Revenue: decimal.NewFromInt(300), Status: StatusActive},
			{Name: "Glendora", Status: StatusInactive},
		},
		Summary: Summary{
			Period:        "Jan 2024",
			DaysInPeriod:  31,
			Properties:    2,
			ActiveCount:   1,
			InactiveCount: 1,
			TotalRevenue:  decimal.NewFromInt(300),
		},
		UnmatchedLedger: []string{"Old Listing"},
	}
}

func TestOutput_RecordsOnly(t *testing.T) {
	result := Output(sampleResult(), true, false)

	records, ok := result.([]CanonicalPropertyRecord)
	if !ok {
		t.Fatal("Expected result to be []CanonicalPropertyRecord")
	}

	if len(records) != 2 {
		t.Errorf("Expected 2 records, got %d", len(records))
	}
}

func TestOutput_SummaryOnly(t *testing.T) {
	result := Output(sampleResult(), false, true)

	outputMap, ok := result.(map[string]interface{})
	if !ok {
		t.Fatal("Expected result to be map[string]interface{}")
	}

	summary, ok := outputMap["summary"].(Summary)
	if !ok {
		t.Fatal("Expected summary to be Summary")
	}
	if summary.Period != "Jan 2024" {
		t.Errorf("Expected period 'Jan 2024', got '%s'", summary.Period)
	}

	// Should NOT have records
	if _, exists := outputMap["records"]; exists {
		t.Error("Expected no records in summary-only output")
	}
	if _, exists := outputMap["diagnostics"]; !exists {
		t.Error("Expected diagnostics in summary-only output")
	}
}

func TestOutput_Full(t *testing.T) {
	result := Output(sampleResult(), false, false)

	outputMap, ok := result.(map[string]interface{})
	if !ok {
		t.Fatal("Expected result to be map[string]interface{}")
	}

	requiredFields := []string{"summary", "diagnostics", "records", "matches", "unmatched_ledger"}
	for _, field := range requiredFields {
		if _, exists := outputMap[field]; !exists {
			t.Errorf("Expected field '%s' in output", field)
		}
	}

	records, ok := outputMap["records"].([]CanonicalPropertyRecord)
	if !ok {
		t.Fatal("Expected records to be []CanonicalPropertyRecord")
	}
	if len(records) != 2 {
		t.Errorf("Expected 2 records, got %d", len(records))
	}
}

func TestOutput_NoUnmatchedLedger(t *testing.T) {
	r := sampleResult()
	r.UnmatchedLedger = nil

	outputMap := Output(r, false, false).(map[string]interface{})

	if _, exists := outputMap["unmatched_ledger"]; exists {
		t.Error("Expected no unmatched_ledger when every listing matched")
	}
}
