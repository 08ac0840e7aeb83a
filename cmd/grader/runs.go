package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xtal-search/grader/internal/ledger"
)

var runsCommand = &cobra.Command{
	Use:   "runs",
	Short: "List stored grading runs, newest first",
	RunE:  runRunsCmd,
}

var (
	runsPage        int
	runsLimit       int
	runsDatabaseURL string
)

func init() {
	runsCommand.Flags().IntVar(&runsPage, "page", 1, "Page number")
	runsCommand.Flags().IntVar(&runsLimit, "limit", 20, "Runs per page")
	runsCommand.Flags().StringVar(&runsDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	rootCmd.AddCommand(runsCommand)
}

// connectLedger opens the run ledger for read-side CLI commands.
func connectLedger(ctx context.Context, databaseURL string) (*ledger.Store, error) {
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		return nil, fmt.Errorf("a database URL is required (--db-url or DATABASE_URL)")
	}
	store, err := ledger.Connect(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return store, nil
}

func runRunsCmd(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	if runsPage < 1 || runsLimit < 1 {
		return fmt.Errorf("--page and --limit must be at least 1")
	}

	store, err := connectLedger(ctx, runsDatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	page, err := store.ListRuns(ctx, (runsPage-1)*runsLimit, runsLimit)
	if err != nil {
		return err
	}

	if len(page.Runs) == 0 {
		_, _ = fmt.Fprintln(os.Stdout, "No runs found")
		return nil
	}

	for _, run := range page.Runs {
		score := "-"
		if run.Report != nil {
			score = fmt.Sprintf("%d (%s)", run.Report.OverallScore, run.Report.OverallGrade)
		}
		_, _ = fmt.Fprintf(os.Stdout, "%s  %-8s  %-10s  %s  %s\n",
			run.ID, run.Status, score, run.StartedAt, run.StoreURL)
	}
	_, _ = fmt.Fprintf(os.Stdout, "\nPage %d, showing %d of %d runs\n", runsPage, len(page.Runs), page.Total)
	return nil
}
