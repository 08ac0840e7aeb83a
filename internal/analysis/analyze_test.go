package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtal-search/grader/internal/llm"
	"github.com/xtal-search/grader/internal/types"
)

// fakeClient returns a canned response and records what it was asked.
type fakeClient struct {
	response   string
	err        error
	lastPrompt string
	lastTier   llm.ModelTier
}

func (f *fakeClient) GenerateContent(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
	f.lastPrompt = prompt
	f.lastTier = tier
	return f.response, f.err
}

func (f *fakeClient) GenerateJSON(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
	f.lastPrompt = prompt
	f.lastTier = tier
	return f.response, f.err
}

func (f *fakeClient) GetModel(llm.ModelTier) string { return "fake-model" }

func (f *fakeClient) Close() error { return nil }

func analyzeInput() AnalyzeInput {
	return AnalyzeInput{
		StoreURL:       "https://glowskin.example.com",
		Platform:       types.PlatformShopify,
		StoreName:      "GlowSkin",
		ProductSamples: []string{"Vitamin C Serum", "Hyaluronic Moisturizer"},
	}
}

func TestAnalyzeStore_ParsesResponse(t *testing.T) {
	client := &fakeClient{response: `{
		"storeType": "beauty",
		"vertical": "clean skincare",
		"queries": [
			{"text": "vitmin c serum", "category": "typo", "expectedBehavior": "returns the vitamin C serum"},
			{"text": "face cream", "category": "synonym", "expectedBehavior": "returns moisturizers"}
		]
	}`}

	out, err := AnalyzeStore(context.Background(), client, nil, analyzeInput())
	require.NoError(t, err)

	assert.Equal(t, "beauty", out.StoreType)
	assert.Equal(t, "clean skincare", out.Vertical)
	require.Len(t, out.Queries, 2)
	assert.Equal(t, types.CategoryTypo, out.Queries[0].Category)
	assert.Equal(t, client.response, out.RawResponse)
	assert.Equal(t, llm.TierStandard, client.lastTier)
}

func TestAnalyzeStore_PromptFilled(t *testing.T) {
	client := &fakeClient{response: `{
		"storeType": "beauty", "vertical": "skincare",
		"queries": [{"text": "serum", "category": "category"}]
	}`}

	out, err := AnalyzeStore(context.Background(), client, nil, analyzeInput())
	require.NoError(t, err)

	assert.Contains(t, client.lastPrompt, "https://glowskin.example.com")
	assert.Contains(t, client.lastPrompt, "1. Vitamin C Serum")
	assert.Contains(t, client.lastPrompt, "2. Hyaluronic Moisturizer")
	assert.NotContains(t, client.lastPrompt, "{{.")
	assert.Equal(t, client.lastPrompt, out.PromptUsed)
}

func TestAnalyzeStore_PromptResolverOverride(t *testing.T) {
	client := &fakeClient{response: `{
		"storeType": "beauty", "vertical": "skincare",
		"queries": [{"text": "serum", "category": "category"}]
	}`}

	resolver := func(context.Context, string) (string, error) {
		return "custom template for {{.StoreName}}", nil
	}

	_, err := AnalyzeStore(context.Background(), client, resolver, analyzeInput())
	require.NoError(t, err)
	assert.Equal(t, "custom template for GlowSkin", client.lastPrompt)
}

func TestAnalyzeStore_ResolverErrorFallsBackToDefault(t *testing.T) {
	client := &fakeClient{response: `{
		"storeType": "beauty", "vertical": "skincare",
		"queries": [{"text": "serum", "category": "category"}]
	}`}

	resolver := func(context.Context, string) (string, error) {
		return "", errors.New("ledger unavailable")
	}

	_, err := AnalyzeStore(context.Background(), client, resolver, analyzeInput())
	require.NoError(t, err)
	assert.Contains(t, client.lastPrompt, "exactly 10 test search queries")
}

func TestAnalyzeStore_APIError(t *testing.T) {
	client := &fakeClient{err: errors.New("quota exhausted")}

	_, err := AnalyzeStore(context.Background(), client, nil, analyzeInput())
	require.Error(t, err)

	var apiErr *APICallError
	require.True(t, errors.As(err, &apiErr))
}

func TestAnalyzeStore_ParseErrorMentionsResponseLength(t *testing.T) {
	client := &fakeClient{response: `{"storeType": "beauty", "vertical`}

	_, err := AnalyzeStore(context.Background(), client, nil, analyzeInput())
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, len(client.response), parseErr.ResponseLength)
	assert.Contains(t, err.Error(), "Response length")
}

func TestAnalyzeStore_SchemaRejectsBadCategory(t *testing.T) {
	client := &fakeClient{response: `{
		"storeType": "beauty", "vertical": "skincare",
		"queries": [{"text": "serum", "category": "fuzzy"}]
	}`}

	_, err := AnalyzeStore(context.Background(), client, nil, analyzeInput())
	require.Error(t, err)

	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))
}
