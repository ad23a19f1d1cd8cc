package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aqlanhadi/rentrecon/extractor"
	"github.com/aqlanhadi/rentrecon/reconcile"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	extractReq      reconcile.Request
	extractTextOnly bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extracts a single source",
	Long: `Extracts one source without reconciling it, to check what the
parser sees before running a full reconciliation.`,
}

var extractLedgerCmd = &cobra.Command{
	Use:   "ledger [file]",
	Short: "Parse a transaction ledger CSV into bookings and property metrics",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts := extractOptions()
		file, err := os.Open(args[0])
		if err != nil {
			log.Fatalf("error: %v", err)
		}
		defer file.Close()

		result, err := extractor.ProcessLedger(file, args[0], opts.Ledger, opts.Filter)
		if err != nil {
			log.Fatalf("error: %v", err)
		}
		printJSON(result)
	},
}

var extractReportCmd = &cobra.Command{
	Use:   "report [file]",
	Short: "Extract per-property earnings from a summary report",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if extractTextOnly {
			rows, err := extractor.ReportText(args[0])
			if err != nil {
				log.Fatalf("error: %v", err)
			}
			fmt.Println(strings.Join(rows, "\n"))
			return
		}

		opts := extractOptions()
		file, err := os.Open(args[0])
		if err != nil {
			log.Fatalf("error: %v", err)
		}
		defer file.Close()

		result, err := extractor.ProcessReport(file, args[0], opts.Report)
		if err != nil {
			log.Fatalf("error: %v", err)
		}
		printJSON(result)
	},
}

func extractOptions() reconcile.Options {
	base, err := loadOptions(viper.GetViper())
	if err != nil {
		log.Fatalf("error: %v", err)
	}
	opts, err := extractReq.Apply(base)
	if err != nil {
		log.Fatalf("error: %v", err)
	}
	return opts
}

func printJSON(v interface{}) {
	asJSON, err := json.Marshal(v)
	if err != nil {
		log.Fatalf("error: %v", err)
	}
	fmt.Println(string(asJSON))
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.AddCommand(extractLedgerCmd, extractReportCmd)

	addRunFlags(extractLedgerCmd, &extractReq)
	extractReportCmd.Flags().BoolVarP(&extractTextOnly, "text-only", "t", false, "print the text rows the extractor reads")
}
