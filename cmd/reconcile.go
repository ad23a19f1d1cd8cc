package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aqlanhadi/rentrecon/extractor"
	"github.com/aqlanhadi/rentrecon/integrations/xlsx"
	"github.com/aqlanhadi/rentrecon/reconcile"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	reconcileReport string
	reconcileLedger string
	reconcileOutput string
	reconcileReq    reconcile.Request
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a report against a ledger",
	Long: `Reconciles an earnings summary report against a transaction ledger.

The report may be a PDF or its text. The ledger is optional; without it every
record is built from the report alone.

Examples:
  rentrecon reconcile -r earnings_01_01_2024-03_31_2024.pdf -l transactions.csv
  rentrecon reconcile -r report.pdf -l ledger.csv --start 2024-01-01 --end 2024-03-31 --health
  rentrecon reconcile -r report.pdf -l ledger.csv --format xlsx -o reconciliation.xlsx`,
	Run: runReconcile,
}

func runReconcile(cmd *cobra.Command, args []string) {
	if reconcileReport == "" {
		log.Fatal("error: --report/-r is required")
	}

	base, err := loadOptions(viper.GetViper())
	if err != nil {
		log.Fatalf("error: %v", err)
	}
	opts, err := reconcileReq.Apply(base)
	if err != nil {
		log.Fatalf("error: %v", err)
	}

	result, err := extractor.ProcessFiles(reconcileLedger, reconcileReport, opts)
	if err != nil {
		log.Fatalf("error: reconcile failed: %v", err)
	}

	if reconcileReq.Format == "xlsx" {
		path := reconcileOutput
		if path == "" {
			path = "reconciliation.xlsx"
		}
		if err := xlsx.SaveAs(path, result); err != nil {
			log.Fatalf("error: failed to write workbook: %v", err)
		}
		fmt.Printf("wrote %d records to %s\n", len(result.Records), path)
		return
	}

	asJSON, err := json.Marshal(reconcile.Output(result, reconcileReq.RecordsOnly, reconcileReq.SummaryOnly))
	if err != nil {
		log.Fatalf("error: %v", err)
	}
	if reconcileOutput != "" {
		if err := os.WriteFile(reconcileOutput, asJSON, 0o644); err != nil {
			log.Fatalf("error: %v", err)
		}
		return
	}
	fmt.Println(string(asJSON))
}

// addRunFlags registers the options shared by every command that runs the
// engine.
func addRunFlags(cmd *cobra.Command, req *reconcile.Request) {
	cmd.Flags().StringVar(&req.Start, "start", "", "keep bookings whose stay starts on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.End, "end", "", "keep bookings whose stay starts on or before this date (YYYY-MM-DD)")
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// root shares the same run options
	for _, c := range []*cobra.Command{reconcileCmd, rootCmd} {
		addRunFlags(c, &reconcileReq)
		c.Flags().IntVar(&reconcileReq.Days, "days", 0, "days in the period used for occupancy (derived when 0)")
		c.Flags().BoolVar(&reconcileReq.PreferLedgerRevenue, "prefer-ledger-revenue", false, "use ledger revenue for matched properties")
		c.Flags().BoolVar(&reconcileReq.Health, "health", false, "score each property's health")
		c.Flags().BoolVar(&reconcileReq.RecordsOnly, "records-only", false, "output only the records")
		c.Flags().BoolVar(&reconcileReq.SummaryOnly, "summary-only", false, "output only the summary and diagnostics")
		c.Flags().StringVar(&reconcileReq.Format, "format", "json", "output format: json or xlsx")
		c.Flags().StringVarP(&reconcileOutput, "output", "o", "", "write output to this file")
	}

	reconcileCmd.Flags().StringVarP(&reconcileReport, "report", "r", "", "earnings summary report, PDF or text (required)")
	reconcileCmd.Flags().StringVarP(&reconcileLedger, "ledger", "l", "", "transaction ledger CSV")
}
