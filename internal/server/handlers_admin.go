package server

import (
	"net/http"
	"strconv"

	"github.com/xtal-search/grader/internal/prompts"
	"github.com/xtal-search/grader/internal/types"
)

// PromptResponse represents the response for /admin/prompts/{key}
type PromptResponse struct {
	Key     string `json:"key"`
	Content string `json:"content"`
	// Source is "override" when a stored version shadows the built-in
	// template, "default" otherwise.
	Source    string `json:"source"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// PromptUpdateRequest represents the request body for PUT /admin/prompts/{key}
type PromptUpdateRequest struct {
	Content string `json:"content" validate:"required"`
}

// PromptHistoryResponse represents the response for /admin/prompts/{key}/history
type PromptHistoryResponse struct {
	Key      string                     `json:"key"`
	Versions []types.PromptHistoryEntry `json:"versions"`
}

// RunListResponse represents the response for /admin/runs
type RunListResponse struct {
	Runs  []types.GraderRunLog `json:"runs"`
	Total int                  `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

// promptKey validates the prompt key path parameter. Only the two pipeline
// prompts can be read or overridden.
func (s *Server) promptKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := r.PathValue("key")
	if key != prompts.KeyAnalyze && key != prompts.KeyEvaluate {
		s.errorResponse(w, http.StatusNotFound, "Unknown prompt key: "+key)
		return "", false
	}
	return key, true
}

// handleListRuns returns a page of stored runs, newest first
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "Persistence is not configured")
		return
	}

	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			s.errorResponse(w, http.StatusBadRequest, "Invalid page parameter")
			return
		}
		page = parsed
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			s.errorResponse(w, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	result, err := s.ledger.ListRuns(r.Context(), (page-1)*limit, limit)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, RunListResponse{
		Runs:  result.Runs,
		Total: result.Total,
		Page:  page,
		Limit: limit,
	})
}

// handleGetRun returns one run with its full step logs
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "Persistence is not configured")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		s.errorResponse(w, http.StatusBadRequest, "Run ID is required")
		return
	}

	run, err := s.ledger.GetRun(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}
	if run == nil {
		notFound := &ErrRunNotFound{RunID: id}
		s.errorResponse(w, HTTPStatus(notFound), notFound.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, run)
}

// handleGetPrompt returns the active prompt template for a key
func (s *Server) handleGetPrompt(w http.ResponseWriter, r *http.Request) {
	key, ok := s.promptKey(w, r)
	if !ok {
		return
	}

	if s.ledger != nil {
		entry, err := s.ledger.GetPrompt(r.Context(), key)
		if err != nil {
			s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
			return
		}
		if entry != nil {
			s.jsonResponse(w, http.StatusOK, PromptResponse{
				Key:       key,
				Content:   entry.Content,
				Source:    "override",
				UpdatedAt: entry.UpdatedAt,
			})
			return
		}
	}

	content, err := prompts.Default(key)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to load default prompt: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, PromptResponse{
		Key:     key,
		Content: content,
		Source:  "default",
	})
}

// handleUpdatePrompt stores a prompt override, archiving the previous version
func (s *Server) handleUpdatePrompt(w http.ResponseWriter, r *http.Request) {
	key, ok := s.promptKey(w, r)
	if !ok {
		return
	}
	if s.ledger == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "Persistence is not configured")
		return
	}

	var req PromptUpdateRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	if err := s.ledger.SavePrompt(r.Context(), key, req.Content); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to save prompt: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, PromptResponse{
		Key:     key,
		Content: req.Content,
		Source:  "override",
	})
}

// handlePromptHistory returns archived versions of a prompt, newest first
func (s *Server) handlePromptHistory(w http.ResponseWriter, r *http.Request) {
	key, ok := s.promptKey(w, r)
	if !ok {
		return
	}
	if s.ledger == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "Persistence is not configured")
		return
	}

	versions, err := s.ledger.PromptHistory(r.Context(), key)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, PromptHistoryResponse{
		Key:      key,
		Versions: versions,
	})
}
