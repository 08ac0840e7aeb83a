package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtal-search/grader/internal/pipeline"
	"github.com/xtal-search/grader/internal/types"
)

func postJSON(t *testing.T, s *Server, handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestHandleGrade_Success(t *testing.T) {
	grader := &fakeGrader{result: &pipeline.Result{Report: sampleReport(), RunID: "run-1"}}
	s := newTestServer(grader)

	w := postJSON(t, s, s.handleGrade, "/grade", `{"url":"https://example-store.com","monthlyVisitors":5000}`)

	require.Equal(t, http.StatusOK, w.Code)

	var resp GradeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.RunID)
	assert.False(t, resp.Cached)
	require.NotNil(t, resp.Report)
	assert.Equal(t, 72, resp.Report.OverallScore)

	assert.Equal(t, "https://example-store.com", grader.lastOpts.StoreURL)
	assert.Equal(t, types.SourceWeb, grader.lastOpts.Source)
	assert.Equal(t, 5000, grader.lastOpts.MonthlyVisitors)
}

func TestHandleGrade_CachedResult(t *testing.T) {
	grader := &fakeGrader{result: &pipeline.Result{Report: sampleReport(), RunID: "run-1", Cached: true}}
	s := newTestServer(grader)

	w := postJSON(t, s, s.handleGrade, "/grade", `{"url":"https://example-store.com"}`)

	require.Equal(t, http.StatusOK, w.Code)

	var resp GradeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Cached)
}

func TestHandleGrade_InvalidJSON(t *testing.T) {
	s := newTestServer(&fakeGrader{})

	w := postJSON(t, s, s.handleGrade, "/grade", `{invalid json}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGrade_MissingURL(t *testing.T) {
	s := newTestServer(&fakeGrader{})

	w := postJSON(t, s, s.handleGrade, "/grade", `{"monthlyVisitors":5000}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "URL")
}

func TestHandleGrade_MalformedURL(t *testing.T) {
	s := newTestServer(&fakeGrader{})

	w := postJSON(t, s, s.handleGrade, "/grade", `{"url":"not a url"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGrade_NegativeVisitors(t *testing.T) {
	s := newTestServer(&fakeGrader{})

	w := postJSON(t, s, s.handleGrade, "/grade", `{"url":"https://example-store.com","monthlyVisitors":-5}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGrade_PipelineFailure(t *testing.T) {
	s := newTestServer(&fakeGrader{err: fmt.Errorf("store detection failed: unreachable")})

	w := postJSON(t, s, s.handleGrade, "/grade", `{"url":"https://example-store.com"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "store detection failed")
}

func TestHandleGradeStream_EmitsEvents(t *testing.T) {
	grader := &fakeGrader{result: &pipeline.Result{Report: sampleReport(), RunID: "run-1"}}
	s := newTestServer(grader)

	w := postJSON(t, s, s.handleGradeStream, "/grade/stream", `{"url":"https://example-store.com"}`)

	body := w.Body.String()
	assert.Contains(t, body, "event: progress")
	assert.Contains(t, body, "detecting platform")
	assert.Contains(t, body, "event: report")
	assert.Contains(t, body, `"overallScore":72`)
	assert.Contains(t, body, "event: complete")
	assert.Contains(t, body, `"runId":"run-1"`)
}

func TestHandleGradeStream_PipelineFailure(t *testing.T) {
	s := newTestServer(&fakeGrader{err: fmt.Errorf("evaluation failed")})

	w := postJSON(t, s, s.handleGradeStream, "/grade/stream", `{"url":"https://example-store.com"}`)

	assert.Contains(t, w.Body.String(), "event: error")
	assert.Contains(t, w.Body.String(), "evaluation failed")
}

func TestHandleGetReport_NoLedger(t *testing.T) {
	s := newTestServer(&fakeGrader{})

	req := httptest.NewRequest(http.MethodGet, "/reports/rep-1", nil)
	req.SetPathValue("id", "rep-1")
	w := httptest.NewRecorder()

	s.handleGetReport(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleListRuns_NoLedger(t *testing.T) {
	s := newTestServer(&fakeGrader{})

	req := httptest.NewRequest(http.MethodGet, "/admin/runs", nil)
	w := httptest.NewRecorder()

	s.handleListRuns(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleListRuns_BadPage(t *testing.T) {
	s := newTestServer(&fakeGrader{})
	s.ledger = nil

	req := httptest.NewRequest(http.MethodGet, "/admin/runs?page=zero", nil)
	w := httptest.NewRecorder()

	s.handleListRuns(w, req)

	// Ledger check runs first; without persistence the page parameter is moot.
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleGetPrompt_UnknownKey(t *testing.T) {
	s := newTestServer(&fakeGrader{})

	req := httptest.NewRequest(http.MethodGet, "/admin/prompts/bogus", nil)
	req.SetPathValue("key", "bogus")
	w := httptest.NewRecorder()

	s.handleGetPrompt(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleUpdatePrompt_NoLedger(t *testing.T) {
	s := newTestServer(&fakeGrader{})

	req := httptest.NewRequest(http.MethodPut, "/admin/prompts/analyze", bytes.NewBufferString(`{"content":"new template"}`))
	req.SetPathValue("key", "analyze")
	w := httptest.NewRecorder()

	s.handleUpdatePrompt(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleGetPrompt_DefaultEvaluate(t *testing.T) {
	s := newTestServer(&fakeGrader{})

	req := httptest.NewRequest(http.MethodGet, "/admin/prompts/evaluate", nil)
	req.SetPathValue("key", "evaluate")
	w := httptest.NewRecorder()

	s.handleGetPrompt(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp PromptResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "default", resp.Source)
	assert.Contains(t, resp.Content, "{{.QueryResults}}")
}
