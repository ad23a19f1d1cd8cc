package reconcile

// Output shapes a result for printing. recordsOnly returns just the records,
// summaryOnly drops them and the per-match detail.
func Output(result *Result, recordsOnly, summaryOnly bool) interface{} {
	if recordsOnly {
		return result.Records
	}

	output := map[string]interface{}{
		"summary":     result.Summary,
		"diagnostics": result.Diagnostics,
	}
	if summaryOnly {
		return output
	}

	output["records"] = result.Records
	output["matches"] = result.Matches
	if len(result.UnmatchedLedger) > 0 {
		output["unmatched_ledger"] = result.UnmatchedLedger
	}
	return output
}
