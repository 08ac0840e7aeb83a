// Package pipeline provides the high-level orchestration for one grading
// run: detect the platform, generate queries, execute them against the live
// store, evaluate the outcomes and assemble the scored report.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/xtal-search/grader/internal/analysis"
	"github.com/xtal-search/grader/internal/detect"
	"github.com/xtal-search/grader/internal/ledger"
	"github.com/xtal-search/grader/internal/llm"
	"github.com/xtal-search/grader/internal/observability"
	"github.com/xtal-search/grader/internal/prompts"
	"github.com/xtal-search/grader/internal/scoring"
	"github.com/xtal-search/grader/internal/search"
	"github.com/xtal-search/grader/internal/types"
)

// Stage names used in progress events.
const (
	StageDetect   = "detect"
	StageAnalyze  = "analyze"
	StageSearch   = "search"
	StageEvaluate = "evaluate"
	StageScore    = "score"
	StageComplete = "complete"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	RunID   string `json:"runId,omitempty"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// RunOptions holds configuration for one grading run
type RunOptions struct {
	StoreURL        string
	Source          types.RunSource
	MonthlyVisitors int
	UseBrowser      bool
	Verbose         bool
	// SkipCache forces a fresh grade even when a recent report for the
	// same URL exists.
	SkipCache  bool
	OnProgress ProgressCallback
}

// Runner carries the collaborators a grading run needs. Ledger may be nil;
// the run then executes without persistence or caching.
type Runner struct {
	LLM      llm.Client
	Ledger   *ledger.Store
	Executor *search.Executor
	Printer  *observability.Printer
}

// NewRunner wires a Runner with production defaults.
func NewRunner(client llm.Client, store *ledger.Store) *Runner {
	return &Runner{
		LLM:      client,
		Ledger:   store,
		Executor: search.NewExecutor(),
		Printer:  observability.NewPrinter(os.Stdout),
	}
}

// Result pairs a finished report with its run id.
type Result struct {
	Report *types.GraderReport `json:"report"`
	RunID  string              `json:"runId"`
	// Cached is true when the report was served from the URL cache and no
	// new run was executed.
	Cached bool `json:"cached"`
}

func (r *Runner) emit(opts *RunOptions, runID, stage, message string, content any) {
	if opts.OnProgress != nil {
		opts.OnProgress(ProgressEvent{
			Stage:   stage,
			Message: message,
			RunID:   runID,
			Content: content,
		})
	}
}

// resolvePrompt consults the ledger for admin prompt overrides.
func (r *Runner) resolvePrompt(ctx context.Context, key string) (string, error) {
	if r.Ledger == nil {
		return prompts.Default(key)
	}
	content, err := r.Ledger.ResolvePrompt(ctx, key)
	if err != nil || content == "" {
		return prompts.Default(key)
	}
	return content, nil
}

// Run executes the full grading pipeline for one store. The caller always
// gets back either a complete report or an error tied to the stage that
// failed; on failure the persisted run carries the same error on its step
// log.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	if opts.StoreURL == "" {
		return nil, fmt.Errorf("store URL is required")
	}

	// Serve a recent report for the same URL when one exists.
	if r.Ledger != nil && !opts.SkipCache {
		if reportID, err := r.Ledger.CachedReportID(ctx, opts.StoreURL); err == nil && reportID != "" {
			if report, err := r.Ledger.GetReport(ctx, reportID); err == nil && report != nil {
				r.emit(&opts, "", StageComplete, "served cached report", report)
				return &Result{Report: report, Cached: true}, nil
			}
		}
	}

	run, err := r.startRun(ctx, &opts)
	if err != nil {
		return nil, err
	}

	report, err := r.grade(ctx, &opts, run)
	if err != nil {
		r.failRun(ctx, run, err)
		return nil, err
	}

	if r.Ledger != nil {
		if err := r.Ledger.CompleteRun(ctx, run, report); err != nil {
			return nil, fmt.Errorf("failed to persist report: %w", err)
		}
	}

	r.emit(&opts, run.ID, StageComplete, fmt.Sprintf("graded %s: %d (%s)", report.StoreName, report.OverallScore, report.OverallGrade), report)
	return &Result{Report: report, RunID: run.ID}, nil
}

func (r *Runner) startRun(ctx context.Context, opts *RunOptions) (*types.GraderRunLog, error) {
	if r.Ledger != nil {
		return r.Ledger.CreateRun(ctx, opts.StoreURL, opts.Source)
	}
	return &types.GraderRunLog{
		ID:        uuid.NewString(),
		StoreURL:  opts.StoreURL,
		Platform:  types.PlatformCustom,
		Status:    types.RunStatusRunning,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
		Source:    opts.Source,
	}, nil
}

func (r *Runner) updateRun(ctx context.Context, run *types.GraderRunLog) {
	if r.Ledger != nil {
		_ = r.Ledger.UpdateRun(ctx, run)
	}
}

func (r *Runner) failRun(ctx context.Context, run *types.GraderRunLog, cause error) {
	if r.Ledger != nil {
		_ = r.Ledger.FailRun(ctx, run, cause.Error())
		return
	}
	ledger.ApplyFailure(run, cause.Error())
	run.Status = types.RunStatusFailed
	run.CompletedAt = time.Now().UTC().Format(time.RFC3339)
}

// grade runs the four stages. Step logs are written in stage completion
// order; the terminal transition happens in Run after grade returns.
func (r *Runner) grade(ctx context.Context, opts *RunOptions, run *types.GraderRunLog) (*types.GraderReport, error) {
	// Stage 1: platform detection. A failed homepage fetch is fatal.
	r.emit(opts, run.ID, StageDetect, fmt.Sprintf("detecting platform for %s", opts.StoreURL), nil)

	run.Steps.Analyze = &types.AnalyzeStepLog{InputURL: opts.StoreURL}
	r.updateRun(ctx, run)

	detection, err := detect.Store(ctx, opts.StoreURL, &detect.Options{
		UseBrowser: opts.UseBrowser,
		Verbose:    opts.Verbose,
	})
	if err != nil {
		return nil, fmt.Errorf("store detection failed: %w", err)
	}

	run.StoreName = detection.Name
	run.Platform = detection.Platform
	run.Steps.Analyze.HomepageHTMLPreview = previewOf(detection.HomepageHTML)
	run.Steps.Analyze.ProductSamples = detection.ProductSamples
	r.updateRun(ctx, run)

	// Stage 2: store analysis and query generation.
	r.emit(opts, run.ID, StageAnalyze, fmt.Sprintf("analyzing %s (%s)", detection.Name, detection.Platform), nil)

	analyzeStart := time.Now()
	analyzed, err := analysis.AnalyzeStore(ctx, r.LLM, r.resolvePrompt, analysis.AnalyzeInput{
		StoreURL:       detection.NormalizedURL,
		Platform:       detection.Platform,
		StoreName:      detection.Name,
		ProductSamples: detection.ProductSamples,
	})
	run.Steps.Analyze.DurationMs = time.Since(analyzeStart).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("store analysis failed: %w", err)
	}

	run.Steps.Analyze.PromptUsed = analyzed.PromptUsed
	run.Steps.Analyze.RawResponse = analyzed.RawResponse
	run.Steps.Analyze.Parsed = &types.AnalyzeParsed{
		StoreType: analyzed.StoreType,
		Vertical:  analyzed.Vertical,
		Queries:   analyzed.Queries,
	}
	r.updateRun(ctx, run)

	info := &types.StoreInfo{
		URL:            detection.NormalizedURL,
		Name:           detection.Name,
		Platform:       detection.Platform,
		StoreType:      analyzed.StoreType,
		Vertical:       analyzed.Vertical,
		SearchURL:      detection.SearchURL,
		ProductSamples: detection.ProductSamples,
		SearchProvider: detection.SearchProvider,
	}
	if opts.Verbose && r.Printer != nil {
		r.Printer.PrintStoreInfo(info)
		r.Printer.PrintQueries(analyzed.Queries)
	}

	// Stage 3: execute queries against the live store.
	searchStart := time.Now()
	results := r.executor().RunAll(ctx, detection.NormalizedURL, detection.Platform, detection.SearchURL, analyzed.Queries, func(p search.Progress) {
		if p.Status == search.StatusRunning {
			r.emit(opts, run.ID, StageSearch, fmt.Sprintf("query %d of %d: %q", p.QueryIndex+1, p.TotalQueries, p.Query), nil)
		} else {
			r.emit(opts, run.ID, StageSearch, fmt.Sprintf("query %d of %d done", p.QueryIndex+1, p.TotalQueries), p.Result)
		}
	})
	run.Steps.Search = &types.SearchStepLog{
		Queries:         results,
		TotalDurationMs: time.Since(searchStart).Milliseconds(),
	}
	r.updateRun(ctx, run)

	if opts.Verbose && r.Printer != nil {
		r.Printer.PrintQueryResults(results)
	}

	// Stage 4: evaluation.
	r.emit(opts, run.ID, StageEvaluate, fmt.Sprintf("evaluating %d query results", len(results)), nil)

	evaluateStart := time.Now()
	run.Steps.Evaluate = &types.EvaluateStepLog{
		QueryResultsSummary: analysis.SummarizeQueryResults(results),
	}
	evaluated, err := analysis.EvaluateResults(ctx, r.LLM, r.resolvePrompt, analysis.EvaluateInput{
		StoreURL:     detection.NormalizedURL,
		StoreName:    detection.Name,
		StoreType:    analyzed.StoreType,
		Vertical:     analyzed.Vertical,
		Platform:     detection.Platform,
		QueryResults: results,
	})
	run.Steps.Evaluate.DurationMs = time.Since(evaluateStart).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}

	// Stage 5: deterministic scoring. Response speed comes from measured
	// latency, and the overall score is always the weighted sum.
	r.emit(opts, run.ID, StageScore, "computing final score", nil)

	dimensions := overrideResponseSpeed(evaluated.Dimensions, results)
	overallScore := scoring.ComputeOverallScore(dimensions)
	overallGrade := scoring.ScoreToGrade(overallScore)

	visitors := opts.MonthlyVisitors
	if visitors <= 0 {
		visitors = scoring.DefaultMonthlyVisitors
	}

	report := &types.GraderReport{
		ID:              uuid.NewString(),
		StoreURL:        detection.NormalizedURL,
		StoreName:       detection.Name,
		Platform:        detection.Platform,
		StoreType:       analyzed.StoreType,
		Vertical:        analyzed.Vertical,
		OverallScore:    overallScore,
		OverallGrade:    overallGrade,
		Dimensions:      dimensions,
		RevenueImpact:   scoring.EstimateRevenueImpact(overallScore, visitors),
		Recommendations: evaluated.Recommendations,
		QueriesTested:   analyzed.Queries,
		Summary:         evaluated.Summary,
		CreatedAt:       time.Now().UTC().Format(time.RFC3339),
	}

	run.Steps.Evaluate.PromptUsed = evaluated.PromptUsed
	run.Steps.Evaluate.RawResponse = evaluated.RawResponse
	run.Steps.Evaluate.Parsed = &types.EvaluateParsed{
		Dimensions:      dimensions,
		OverallScore:    overallScore,
		Summary:         evaluated.Summary,
		Recommendations: evaluated.Recommendations,
	}
	r.updateRun(ctx, run)

	if opts.Verbose && r.Printer != nil {
		r.Printer.PrintReport(report)
	}

	return report, nil
}

func (r *Runner) executor() *search.Executor {
	if r.Executor != nil {
		return r.Executor
	}
	return search.NewExecutor()
}

// overrideResponseSpeed replaces the model's response_speed score with the
// bucketed measured latency, regrading that dimension.
func overrideResponseSpeed(dimensions []types.DimensionScore, results []types.QueryResult) []types.DimensionScore {
	out := make([]types.DimensionScore, len(dimensions))
	copy(out, dimensions)
	for i := range out {
		if out[i].Key != types.DimResponseSpeed {
			continue
		}
		out[i].Score = scoring.ScoreResponseSpeed(scoring.AverageResponseTime(results))
		out[i].Grade = scoring.ScoreToGrade(out[i].Score)
	}
	return out
}

// previewOf truncates homepage HTML for the run log.
func previewOf(html string) string {
	const previewLen = 500
	if len(html) <= previewLen {
		return html
	}
	return html[:previewLen]
}
