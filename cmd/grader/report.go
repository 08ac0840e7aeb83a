package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xtal-search/grader/internal/evidence"
	"github.com/xtal-search/grader/internal/observability"
)

var reportCommand = &cobra.Command{
	Use:   "report <report-id>",
	Short: "Print a stored report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportCmd,
}

var (
	reportJSON        bool
	reportEvidence    bool
	reportDatabaseURL string
)

func init() {
	reportCommand.Flags().BoolVar(&reportJSON, "json", false, "Print the raw report JSON")
	reportCommand.Flags().BoolVar(&reportEvidence, "evidence", false, "Print the per-query evidence table")
	reportCommand.Flags().StringVar(&reportDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	rootCmd.AddCommand(reportCommand)
}

func runReportCmd(_ *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := connectLedger(ctx, reportDatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	report, err := store.GetReport(ctx, args[0])
	if err != nil {
		return err
	}
	if report == nil {
		return fmt.Errorf("report not found: %s", args[0])
	}

	if reportJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}

	observability.NewPrinter(os.Stdout).PrintReport(report)

	if reportEvidence {
		_, _ = fmt.Fprintln(os.Stdout, "\nEvidence:")
		for _, row := range evidence.BuildRows(report) {
			_, _ = fmt.Fprintf(os.Stdout, "  [%-14s] %-30q %s (%d results)\n",
				row.CategoryLabel, row.Query, row.Verdict, row.ResultCount)
		}
	}
	return nil
}
