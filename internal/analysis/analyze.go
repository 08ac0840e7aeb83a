// Package analysis drives the two LLM steps of a grading run: profiling a
// store to generate catalog-specific test queries, and evaluating executed
// query results into per-dimension scores. Payloads are schema-checked
// before anything downstream trusts their shape.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xtal-search/grader/internal/llm"
	"github.com/xtal-search/grader/internal/prompts"
	"github.com/xtal-search/grader/internal/schemas"
	"github.com/xtal-search/grader/internal/types"
)

// PromptResolver returns the active template for a grading prompt key.
// The ledger-backed resolver consults admin overrides first; a nil resolver
// always yields the embedded default.
type PromptResolver func(ctx context.Context, key string) (string, error)

// resolveTemplate applies the resolver with a fallback to the embedded
// default when the resolver is nil or errors out.
func resolveTemplate(ctx context.Context, resolve PromptResolver, key string) (string, error) {
	if resolve != nil {
		if template, err := resolve(ctx, key); err == nil && template != "" {
			return template, nil
		}
	}
	return prompts.Default(key)
}

// AnalyzeInput is the store profile the analysis step works from.
type AnalyzeInput struct {
	StoreURL       string
	Platform       types.Platform
	StoreName      string
	ProductSamples []string
}

// AnalyzeOutput is the parsed analysis plus the exact prompt and raw
// response, kept for the run log.
type AnalyzeOutput struct {
	StoreType   string
	Vertical    string
	Queries     []types.TestQuery
	PromptUsed  string
	RawResponse string
}

// AnalyzeStore asks the model to classify the store and generate its test
// queries.
func AnalyzeStore(ctx context.Context, client llm.Client, resolve PromptResolver, in AnalyzeInput) (*AnalyzeOutput, error) {
	template, err := resolveTemplate(ctx, resolve, prompts.KeyAnalyze)
	if err != nil {
		return nil, &APICallError{Message: "failed to load analyze prompt", Cause: err}
	}

	samples := make([]string, 0, len(in.ProductSamples))
	for i, p := range in.ProductSamples {
		samples = append(samples, fmt.Sprintf("%d. %s", i+1, p))
	}

	prompt := prompts.Format(template, map[string]string{
		"StoreURL":       in.StoreURL,
		"Platform":       string(in.Platform),
		"StoreName":      in.StoreName,
		"ProductSamples": strings.Join(samples, "\n"),
	})

	raw, err := client.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return nil, &APICallError{Message: "store analysis call failed", Cause: err}
	}

	var parsed types.AnalyzeParsed
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, &ParseError{
			Message:        "analysis response is not valid JSON",
			ResponseLength: len(raw),
			Cause:          err,
		}
	}

	if err := schemas.ValidateAnalyze(raw); err != nil {
		return nil, &ValidationError{Field: "analyze payload", Message: err.Error()}
	}

	return &AnalyzeOutput{
		StoreType:   parsed.StoreType,
		Vertical:    parsed.Vertical,
		Queries:     parsed.Queries,
		PromptUsed:  prompt,
		RawResponse: raw,
	}, nil
}
