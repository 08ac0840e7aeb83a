package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xtal-search/grader/internal/config"
	"github.com/xtal-search/grader/internal/ledger"
	"github.com/xtal-search/grader/internal/llm"
	"github.com/xtal-search/grader/internal/observability"
	"github.com/xtal-search/grader/internal/pipeline"
	"github.com/xtal-search/grader/internal/types"
)

var gradeCommand = &cobra.Command{
	Use:   "grade <store-url>",
	Short: "Grade one storefront's search end-to-end",
	Long: `Runs the full grading pipeline against a live store: detect the platform, generate test queries, execute them against the store's search, evaluate the outcomes and print the scored report.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGradeCmd,
}

var (
	gradeConfigPath  string
	gradeStoreURL    string
	gradeVisitors    int
	gradeUseBrowser  bool
	gradeVerbose     bool
	gradeSkipCache   bool
	gradeAPIKey      string
	gradeDatabaseURL string
)

func init() {
	// Config file flag (processed first)
	gradeCommand.Flags().StringVar(&gradeConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	gradeCommand.Flags().StringVarP(&gradeStoreURL, "url", "u", "", "Store URL to grade (or pass as positional argument)")
	gradeCommand.Flags().IntVar(&gradeVisitors, "monthly-visitors", 0, "Traffic assumption for the revenue model")
	gradeCommand.Flags().BoolVar(&gradeUseBrowser, "use-browser", false, "Use headless browser for JS-only storefronts (requires Chrome)")
	gradeCommand.Flags().BoolVarP(&gradeVerbose, "verbose", "v", false, "Print detailed debug information")
	gradeCommand.Flags().BoolVar(&gradeSkipCache, "skip-cache", false, "Force a fresh grade even when a cached report exists")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	gradeCommand.Flags().StringVar(&gradeAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	// Database URL for run persistence
	gradeCommand.Flags().StringVar(&gradeDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(gradeCommand)
}

// loadGradeConfig merges config file, CLI flags and environment into one
// Config. Flags win over the file; the file wins over the environment.
func loadGradeConfig(cmd *cobra.Command, args []string) (config.Config, error) {
	var cfg config.Config
	if gradeConfigPath != "" {
		loadedCfg, err := config.LoadConfig(gradeConfigPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		if err := loadedCfg.Validate(); err != nil {
			return cfg, err
		}
		cfg = *loadedCfg
		if gradeVerbose {
			_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", gradeConfigPath)
		}
	}

	// CLI overrides: only apply flags that were explicitly set
	if len(args) > 0 {
		cfg.StoreURL = args[0]
	}
	if cmd.Flags().Changed("url") {
		cfg.StoreURL = gradeStoreURL
	}
	if cmd.Flags().Changed("monthly-visitors") {
		cfg.MonthlyVisitors = gradeVisitors
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = gradeUseBrowser
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = gradeVerbose
	}
	if cmd.Flags().Changed("skip-cache") {
		cfg.SkipCache = gradeSkipCache
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = gradeAPIKey
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = gradeDatabaseURL
	}

	cfg = cfg.MergeWithDefaults(config.FromEnv())

	if cfg.StoreURL == "" {
		return cfg, fmt.Errorf("a store URL is required (positional argument, --url or config)")
	}
	if cfg.APIKey == "" {
		return cfg, fmt.Errorf("an API key is required (--api-key or GEMINI_API_KEY)")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newRunner builds the pipeline runner for a CLI invocation. The ledger is
// optional; without a database URL runs are not persisted.
func newRunner(ctx context.Context, cfg config.Config) (*pipeline.Runner, func(), error) {
	client, err := llm.NewClient(ctx, nil, cfg.APIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	var store *ledger.Store
	if cfg.DatabaseURL != "" {
		store, err = ledger.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	cleanup := func() {
		if store != nil {
			store.Close()
		}
		_ = client.Close()
	}
	return pipeline.NewRunner(client, store), cleanup, nil
}

func runGradeCmd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadGradeConfig(cmd, args)
	if err != nil {
		return err
	}

	runner, cleanup, err := newRunner(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := runner.Run(ctx, pipeline.RunOptions{
		StoreURL:        cfg.StoreURL,
		Source:          types.SourceAdmin,
		MonthlyVisitors: cfg.MonthlyVisitors,
		UseBrowser:      cfg.UseBrowser,
		Verbose:         cfg.Verbose,
		SkipCache:       cfg.SkipCache,
		OnProgress: func(event pipeline.ProgressEvent) {
			_, _ = fmt.Fprintf(os.Stdout, "[%s] %s\n", event.Stage, event.Message)
		},
	})
	if err != nil {
		return err
	}

	if result.Cached {
		_, _ = fmt.Fprintln(os.Stdout, "Served cached report (use --skip-cache to force a fresh run)")
	}

	// The pipeline prints the report itself in verbose mode
	if !cfg.Verbose {
		observability.NewPrinter(os.Stdout).PrintReport(result.Report)
	}
	if result.RunID != "" {
		_, _ = fmt.Fprintf(os.Stdout, "Run ID: %s\n", result.RunID)
	}
	return nil
}
