package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xtal-search/grader/internal/llm"
	"github.com/xtal-search/grader/internal/prompts"
	"github.com/xtal-search/grader/internal/schemas"
	"github.com/xtal-search/grader/internal/scoring"
	"github.com/xtal-search/grader/internal/types"
)

// EvaluateInput is the store context plus the executed query results.
type EvaluateInput struct {
	StoreURL     string
	StoreName    string
	StoreType    string
	Vertical     string
	Platform     types.Platform
	QueryResults []types.QueryResult
}

// EvaluateOutput is the enriched evaluation plus the exact prompt and raw
// response, kept for the run log.
type EvaluateOutput struct {
	Dimensions      []types.DimensionScore
	OverallScore    int
	Summary         string
	Recommendations []types.Recommendation
	PromptUsed      string
	RawResponse     string
}

// EvaluateResults asks the model to score the executed queries across the
// eight quality dimensions. Labels, grades and weights on the returned
// dimensions come from the static scoring tables, never from the model.
func EvaluateResults(ctx context.Context, client llm.Client, resolve PromptResolver, in EvaluateInput) (*EvaluateOutput, error) {
	if len(in.QueryResults) == 0 {
		return nil, &ValidationError{Field: "queryResults", Message: "at least one query result is required"}
	}

	template, err := resolveTemplate(ctx, resolve, prompts.KeyEvaluate)
	if err != nil {
		return nil, &APICallError{Message: "failed to load evaluate prompt", Cause: err}
	}

	prompt := prompts.Format(template, map[string]string{
		"StoreURL":     in.StoreURL,
		"StoreName":    in.StoreName,
		"StoreType":    in.StoreType,
		"Vertical":     in.Vertical,
		"Platform":     string(in.Platform),
		"QueryResults": FormatQueryResults(in.QueryResults),
	})

	raw, err := client.GenerateJSON(ctx, prompt, llm.TierAdvanced)
	if err != nil {
		return nil, &APICallError{Message: "evaluation call failed", Cause: err}
	}

	var parsed struct {
		Dimensions      []types.DimensionScore `json:"dimensions"`
		OverallScore    int                    `json:"overallScore"`
		Summary         string                 `json:"summary"`
		Recommendations []types.Recommendation `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, &ParseError{
			Message:        "evaluation response is not valid JSON",
			ResponseLength: len(raw),
			Cause:          err,
		}
	}

	if err := schemas.ValidateEvaluate(raw); err != nil {
		return nil, &ValidationError{Field: "evaluate payload", Message: err.Error()}
	}

	dimensions := make([]types.DimensionScore, len(parsed.Dimensions))
	for i, d := range parsed.Dimensions {
		d.Label = scoring.DimensionLabel(d.Key)
		d.Grade = scoring.ScoreToGrade(d.Score)
		d.Weight = scoring.DimensionWeights[d.Key]
		if d.Failures == nil {
			d.Failures = []string{}
		}
		if d.TestQueries == nil {
			d.TestQueries = []types.DimensionQuery{}
		}
		dimensions[i] = d
	}

	return &EvaluateOutput{
		Dimensions:      dimensions,
		OverallScore:    parsed.OverallScore,
		Summary:         parsed.Summary,
		Recommendations: parsed.Recommendations,
		PromptUsed:      prompt,
		RawResponse:     raw,
	}, nil
}

// FormatQueryResults renders executed queries into the block the evaluation
// prompt embeds.
func FormatQueryResults(results []types.QueryResult) string {
	blocks := make([]string, 0, len(results))
	for i, qr := range results {
		var b strings.Builder
		fmt.Fprintf(&b, "Query %d [%s]: %q\n", i+1, qr.Category, qr.Query)
		fmt.Fprintf(&b, "  Expected: %s\n", qr.ExpectedBehavior)
		fmt.Fprintf(&b, "  Results: %d found (%dms)\n", qr.ResultCount, qr.ResponseTimeMs)

		titles := make([]string, 0, len(qr.TopResults))
		for _, r := range qr.TopResults {
			titles = append(titles, r.Title)
		}
		top := "(none)"
		if len(titles) > 0 {
			top = strings.Join(titles, ", ")
		}
		fmt.Fprintf(&b, "  Top results: %s", top)

		if qr.Error != "" {
			fmt.Fprintf(&b, "\n  Error: %s", qr.Error)
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

// SummarizeQueryResults renders a compact one-line-per-query summary for
// the run log.
func SummarizeQueryResults(results []types.QueryResult) string {
	lines := make([]string, 0, len(results))
	for _, qr := range results {
		lines = append(lines, fmt.Sprintf("[%s] %q -> %d results (%dms)",
			qr.Category, qr.Query, qr.ResultCount, qr.ResponseTimeMs))
	}
	return strings.Join(lines, "\n")
}
