package cmd

import (
	"github.com/aqlanhadi/rentrecon/api"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP API server",
	Long:  `Starts the HTTP API server that accepts a report and a ledger upload and returns the reconciliation as JSON or a workbook.`,
	Run: func(cmd *cobra.Command, args []string) {
		// server logs are read by machines
		log.SetFormatter(&log.JSONFormatter{})
		if log.GetLevel() < log.InfoLevel {
			log.SetLevel(log.InfoLevel)
		}

		opts, err := loadOptions(viper.GetViper())
		if err != nil {
			log.Fatalf("error: %v", err)
		}

		cfg := api.DefaultConfig()
		cfg.Port = ":" + viper.GetString("serve.port")
		cfg.Options = opts

		server := api.New(cfg)
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("port", "p", "8080", "Port to run the API server on")
	viper.BindPFlag("serve.port", serveCmd.Flags().Lookup("port"))
}
