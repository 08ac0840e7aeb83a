package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/xtal-search/grader/internal/pipeline"
	"github.com/xtal-search/grader/internal/types"
)

// GradeRequest represents the request body for /grade
type GradeRequest struct {
	URL             string `json:"url" validate:"required,url"`
	MonthlyVisitors int    `json:"monthlyVisitors,omitempty" validate:"gte=0"`
	SkipCache       bool   `json:"skipCache,omitempty"`
}

// GradeResponse represents the response for /grade
type GradeResponse struct {
	RunID  string              `json:"runId"`
	Cached bool                `json:"cached"`
	Report *types.GraderReport `json:"report"`
}

// decodeAndValidate decodes a JSON request body into dst and runs struct
// validation on it.
func (s *Server) decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	if err := s.validate.Struct(dst); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &ErrValidation{Field: fe.Field(), Message: "failed on '" + fe.Tag() + "' validation"}
		}
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	return nil
}

// handleGrade runs a full grading pipeline and returns the scored report.
func (s *Server) handleGrade(w http.ResponseWriter, r *http.Request) {
	var req GradeRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	if !s.checkRateLimit(w, r) {
		return
	}

	log.Printf("Starting grading run for %s", req.URL)

	result, err := s.grader.Run(r.Context(), pipeline.RunOptions{
		StoreURL:        req.URL,
		Source:          types.SourceWeb,
		MonthlyVisitors: req.MonthlyVisitors,
		SkipCache:       req.SkipCache,
	})
	if err != nil {
		log.Printf("Grading run failed: %v", err)
		s.errorResponse(w, http.StatusInternalServerError, "Grading failed: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, GradeResponse{
		RunID:  result.RunID,
		Cached: result.Cached,
		Report: result.Report,
	})
}

// handleGradeStream runs a grading pipeline and streams progress via SSE
func (s *Server) handleGradeStream(w http.ResponseWriter, r *http.Request) {
	var req GradeRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	if !s.checkRateLimit(w, r) {
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("Starting streaming grading run for %s", req.URL)

	result, err := s.grader.Run(r.Context(), pipeline.RunOptions{
		StoreURL:        req.URL,
		Source:          types.SourceWeb,
		MonthlyVisitors: req.MonthlyVisitors,
		SkipCache:       req.SkipCache,
		OnProgress: func(event pipeline.ProgressEvent) {
			if err := sse.WriteEvent("progress", event); err != nil {
				log.Printf("Error writing SSE event: %v", err)
			}
		},
	})
	if err != nil {
		log.Printf("Grading run failed: %v", err)
		sse.WriteError(err.Error())
		return
	}

	if err := sse.WriteEvent("report", result.Report); err != nil {
		log.Printf("Error writing SSE report: %v", err)
	}
	sse.WriteComplete(result.RunID, string(types.RunStatusComplete))
}
