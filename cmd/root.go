package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fecdash",
	Short: "FEC campaign finance collection pipeline",
	Long: `fecdash collects, reconciles, and serves FEC campaign finance data.

It crawls the OpenFEC API for a given election cycle, resolves each
candidate's principal campaign committee from cycle-scoped designation
history, deduplicates amended filings, validates period totals against
cycle totals, and stores the normalized dataset in PostgreSQL.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
