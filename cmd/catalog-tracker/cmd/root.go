// Package cmd implements the CLI commands for the catalog-tracker server.
package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "catalog-tracker",
	Short: "Track product catalog changes across scrape runs",
	Long: "An API-first service that ingests scraped product records, normalizes them,\n" +
		"detects price, stock, and description changes against per-client snapshots,\n" +
		"and tracks each scrape run with its change history.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.AddCommand(versionCommand())
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
