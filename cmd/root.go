package cmd

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Embedded default configuration (mirrors .rentrecon.yaml)
const defaultConfigYAML = `
log:
  level: warn
  format: text
serve:
  port: "8080"
ledger:
  columns:
    date: [Date]
    type: [Type]
    confirmation_code: [Confirmation Code]
    start_date: [Start Date]
    end_date: [End Date]
    nights: [Nights]
    guest: [Guest]
    listing: [Listing]
    gross_earnings: [Gross earnings]
    amount: [Amount]
    currency: [Currency]
  reservation_types: [Reservation]
  payout_types: [Payout]
report:
  patterns:
    money: '-?\$\(?[\d,]+(?:\.\d{2})?\)?'
    stats_run: '^\d+(?:\.\d+)?$|^\d+\s+\d+(?:\.\d+)?$'
    payment_method: '\([A-Z]{3}\)\$'
  labels:
    generated: "Report generated:"
    nights_booked: nights booked
    avg_stay: avg night stay
    adjustments: adjustments
    tax_withheld: tax withheld
    pass_through_tax: pass through tax
    host_remitted_tax: host remitted tax
    platform_remitted_tax: airbnb remitted tax
    resolutions: resolutions
    totals_keyword: total
  rate_band:
    min: 50
    max: 300
  max_avg_stay: 30
  max_name_length: 100
matcher:
  threshold: 0.5
  high_confidence: 0.8
  containment_score: 0.85
  designator_penalty: 0.5
  aliases: {}
health:
  presence_points: 40
  consistency_points: 10
  healthy_at: 70
  warning_at: 40`

var (
	cfgFile string
	verbose bool
	rootCmd = &cobra.Command{
		Use:   "rentrecon [report] [ledger]",
		Short: "Reconcile rental earnings reports against transaction ledgers",
		Long: `rentrecon reads a host earnings summary report (PDF or text) and a
transaction ledger CSV, matches their property names and produces one
reconciled record per property with optional health scores.`,
		Args: cobra.MaximumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) == 0 {
				cmd.Help()
				return
			}
			reconcileReport = args[0]
			if len(args) == 2 {
				reconcileLedger = args[1]
			}
			runReconcile(reconcileCmd, nil)
		},
	}
)

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default is ./.rentrecon.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func initLogging() {
	log.SetOutput(os.Stderr)
	if viper.GetString("log.format") == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		level = log.WarnLevel
	}
	if verbose {
		level = log.DebugLevel
	}
	log.SetLevel(level)
}

func initConfig() {
	// a missing .env is normal
	_ = godotenv.Load()

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in current directory and home directory
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Add config paths in order of priority
		viper.AddConfigPath(".")  // First check current directory
		viper.AddConfigPath(home) // Then check home directory
		viper.SetConfigName(".rentrecon")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("RENTRECON")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No config file found, use embedded default configuration
			if err := viper.ReadConfig(bytes.NewBufferString(defaultConfigYAML)); err != nil {
				fmt.Printf("Error loading embedded configuration: %v\n", err)
				os.Exit(1)
			}
		} else {
			fmt.Printf("Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}
}
