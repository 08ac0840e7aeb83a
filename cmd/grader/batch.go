package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/xtal-search/grader/internal/config"
	"github.com/xtal-search/grader/internal/pipeline"
	"github.com/xtal-search/grader/internal/types"
)

var batchCommand = &cobra.Command{
	Use:   "batch <url>...",
	Short: "Grade several storefronts in one invocation",
	Long: `Grades each URL independently and prints a one-line summary per store. Stores are graded concurrently, but each store's own queries still run sequentially against its search endpoint.

URLs can be passed as arguments or read from a file with --file (one URL per line, # comments allowed).`,
	RunE: runBatchCmd,
}

var (
	batchFile        string
	batchConcurrency int
	batchVisitors    int
	batchAPIKey      string
	batchDatabaseURL string
	batchSkipCache   bool
)

func init() {
	batchCommand.Flags().StringVarP(&batchFile, "file", "f", "", "Path to a file with one store URL per line")
	batchCommand.Flags().IntVar(&batchConcurrency, "concurrency", 3, "Number of stores graded in parallel")
	batchCommand.Flags().IntVar(&batchVisitors, "monthly-visitors", 0, "Traffic assumption for the revenue model")
	batchCommand.Flags().BoolVar(&batchSkipCache, "skip-cache", false, "Force fresh grades even when cached reports exist")
	batchCommand.Flags().StringVar(&batchAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	batchCommand.Flags().StringVar(&batchDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(batchCommand)
}

// batchOutcome is one store's result line, collected for ordered printing.
type batchOutcome struct {
	url    string
	report *types.GraderReport
	err    error
}

func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open URL file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read URL file: %w", err)
	}
	return urls, nil
}

func runBatchCmd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	urls := append([]string{}, args...)
	if batchFile != "" {
		fromFile, err := readURLFile(batchFile)
		if err != nil {
			return err
		}
		urls = append(urls, fromFile...)
	}
	if len(urls) == 0 {
		return fmt.Errorf("no store URLs given (pass arguments or --file)")
	}
	if batchConcurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1")
	}

	cfg := config.Config{
		APIKey:          batchAPIKey,
		DatabaseURL:     batchDatabaseURL,
		MonthlyVisitors: batchVisitors,
	}
	cfg = cfg.MergeWithDefaults(config.FromEnv())
	if cfg.APIKey == "" {
		return fmt.Errorf("an API key is required (--api-key or GEMINI_API_KEY)")
	}

	runner, cleanup, err := newRunner(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	outcomes := make([]batchOutcome, len(urls))
	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)

	for i, url := range urls {
		g.Go(func() error {
			result, err := runner.Run(gctx, pipeline.RunOptions{
				StoreURL:        url,
				Source:          types.SourceBatch,
				MonthlyVisitors: cfg.MonthlyVisitors,
				SkipCache:       batchSkipCache,
			})

			mu.Lock()
			done++
			outcomes[i] = batchOutcome{url: url}
			if err != nil {
				outcomes[i].err = err
			} else {
				outcomes[i].report = result.Report
			}
			_, _ = fmt.Fprintf(os.Stdout, "graded %d of %d: %s\n", done, len(urls), url)
			mu.Unlock()

			// One bad store must not stop the rest of the batch
			return nil
		})
	}
	_ = g.Wait()

	failures := 0
	_, _ = fmt.Fprintln(os.Stdout, "\nResults:")
	for _, o := range outcomes {
		if o.err != nil {
			failures++
			_, _ = fmt.Fprintf(os.Stdout, "  ✗ %s: %v\n", o.url, o.err)
			continue
		}
		_, _ = fmt.Fprintf(os.Stdout, "  • %-40s %3d (%s) est. monthly loss $%d\n",
			o.url, o.report.OverallScore, o.report.OverallGrade, o.report.RevenueImpact.MonthlyLostRevenue)
	}

	if failures == len(urls) {
		return fmt.Errorf("all %d stores failed to grade", failures)
	}
	return nil
}
