package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtal-search/grader/internal/types"
)

func testExecutor() *Executor {
	e := NewExecutor()
	e.Delay = 0
	return e
}

func TestRunAll_ShopifySuggestAPI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search/suggest.json", r.URL.Path)
		assert.Equal(t, "running shoes", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"resources":{"results":{"products":[
			{"title":"Trail Runner 5","price":"129.00","url":"/products/trail-runner-5"},
			{"title":"Road Glide","price":"99.00"}
		]}}}`))
	}))
	defer server.Close()

	queries := []types.TestQuery{
		{Text: "running shoes", Category: types.CategoryBrowse, ExpectedBehavior: "shows running shoes"},
	}

	results := testExecutor().RunAll(context.Background(), server.URL, types.PlatformShopify, "", queries, nil)
	require.Len(t, results, 1)

	r := results[0]
	assert.Empty(t, r.Error)
	assert.Equal(t, 2, r.ResultCount)
	require.Len(t, r.TopResults, 2)
	assert.Equal(t, "Trail Runner 5", r.TopResults[0].Title)
	assert.Equal(t, 129.0, r.TopResults[0].Price)
	assert.Equal(t, "running shoes", r.Query)
	assert.Equal(t, types.CategoryBrowse, r.Category)
}

func TestRunAll_SearchURLTemplate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "wireless earbuds", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`<html><body>
			<p>3 results found</p>
			<div class="search-results">
				<h3 class="product-title">Buds Pro</h3>
				<h3 class="product-title">Buds Lite</h3>
			</div>
		</body></html>`))
	}))
	defer server.Close()

	queries := []types.TestQuery{{Text: "wireless earbuds", Category: types.CategoryLongTail}}

	results := testExecutor().RunAll(context.Background(), server.URL, types.PlatformMagento, server.URL+"/catalogsearch/result/?q=", queries, nil)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Error)
	assert.Equal(t, 3, results[0].ResultCount)
	assert.Len(t, results[0].TopResults, 2)
}

func TestRunAll_FallbackPathsStopAtFirstHit(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/" && r.URL.Query().Get("s") != "" {
			_, _ = w.Write([]byte(`<html><body><div class="search-results">
				<h3 class="product-title">Garden Trowel</h3>
			</div></body></html>`))
			return
		}
		_, _ = w.Write([]byte(`<html><body><p>nothing here</p></body></html>`))
	}))
	defer server.Close()

	queries := []types.TestQuery{{Text: "trowel", Category: types.CategoryBrowse}}

	results := testExecutor().RunAll(context.Background(), server.URL, types.PlatformCustom, "", queries, nil)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Error)
	require.Len(t, results[0].TopResults, 1)
	assert.Equal(t, "Garden Trowel", results[0].TopResults[0].Title)

	// /search?q= missed, /?s= hit, /search/?q= never tried.
	assert.Equal(t, []string{"/search", "/"}, paths)
}

func TestRunAll_FallbackKeepsCleanZeroResultOverLaterFailure(t *testing.T) {
	// The first generic endpoint answers cleanly with no results; the
	// remaining endpoints fail outright. The query must report an empty
	// result set, not the later endpoints' errors.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/search" {
			_, _ = w.Write([]byte(`<html><body><p>No results for your search</p></body></html>`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	queries := []types.TestQuery{{Text: "left-handed smoke shifter", Category: types.CategoryNullTest}}

	results := testExecutor().RunAll(context.Background(), server.URL, types.PlatformCustom, "", queries, nil)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Error)
	assert.Equal(t, 0, results[0].ResultCount)
	assert.Empty(t, results[0].TopResults)
}

func TestRunAll_FallbackAllPathsFailing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	queries := []types.TestQuery{{Text: "anything", Category: types.CategoryBrowse}}

	results := testExecutor().RunAll(context.Background(), server.URL, types.PlatformCustom, "", queries, nil)
	require.Len(t, results, 1)
	assert.NotEmpty(t, results[0].Error)
	assert.Equal(t, 0, results[0].ResultCount)
}

func TestRunAll_SingleQueryFailureDoesNotAbortBatch(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"resources":{"results":{"products":[{"title":"Hat","price":"20.00"}]}}}`))
	}))
	defer server.Close()

	queries := []types.TestQuery{
		{Text: "failing query", Category: types.CategoryTypo},
		{Text: "working query", Category: types.CategorySynonym},
	}

	results := testExecutor().RunAll(context.Background(), server.URL, types.PlatformShopify, "", queries, nil)
	require.Len(t, results, 2)

	assert.NotEmpty(t, results[0].Error)
	assert.Equal(t, 0, results[0].ResultCount)
	assert.NotNil(t, results[0].TopResults)

	assert.Empty(t, results[1].Error)
	assert.Equal(t, 1, results[1].ResultCount)
}

func TestRunAll_ZeroResultSuccessIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"resources":{"results":{"products":[]}}}`))
	}))
	defer server.Close()

	queries := []types.TestQuery{{Text: "submarine", Category: types.CategoryNullTest}}

	results := testExecutor().RunAll(context.Background(), server.URL, types.PlatformShopify, "", queries, nil)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Error)
	assert.Equal(t, 0, results[0].ResultCount)
}

func TestRunAll_ProgressEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"resources":{"results":{"products":[]}}}`))
	}))
	defer server.Close()

	queries := []types.TestQuery{
		{Text: "first", Category: types.CategoryTypo},
		{Text: "second", Category: types.CategorySynonym},
	}

	var events []Progress
	testExecutor().RunAll(context.Background(), server.URL, types.PlatformShopify, "", queries, func(p Progress) {
		events = append(events, p)
	})

	require.Len(t, events, 4)
	assert.Equal(t, StatusRunning, events[0].Status)
	assert.Equal(t, 0, events[0].QueryIndex)
	assert.Equal(t, StatusComplete, events[1].Status)
	require.NotNil(t, events[1].Result)
	assert.Equal(t, StatusRunning, events[2].Status)
	assert.Equal(t, 1, events[2].QueryIndex)
	assert.Equal(t, 2, events[2].TotalQueries)
}

func TestRunAll_InvalidStoreURL(t *testing.T) {
	queries := []types.TestQuery{{Text: "anything", Category: types.CategoryBrowse}}

	results := testExecutor().RunAll(context.Background(), "", types.PlatformCustom, "", queries, nil)
	require.Len(t, results, 1)
	assert.NotEmpty(t, results[0].Error)
}
