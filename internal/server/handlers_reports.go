package server

import (
	"log"
	"net/http"

	"github.com/xtal-search/grader/internal/evidence"
	"github.com/xtal-search/grader/internal/types"
)

// EmailCaptureRequest represents the request body for /reports/{id}/email
type EmailCaptureRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// EvidenceResponse represents the response for /reports/{id}/evidence
type EvidenceResponse struct {
	ReportID string              `json:"reportId"`
	Rows     []types.EvidenceRow `json:"rows"`
}

// lookupReport fetches a report by path id, writing the error response
// itself when the report cannot be served.
func (s *Server) lookupReport(w http.ResponseWriter, r *http.Request) *types.GraderReport {
	if s.ledger == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "Persistence is not configured")
		return nil
	}

	id := r.PathValue("id")
	if id == "" {
		s.errorResponse(w, http.StatusBadRequest, "Report ID is required")
		return nil
	}

	report, err := s.ledger.GetReport(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Database error: "+err.Error())
		return nil
	}
	if report == nil {
		err := &ErrReportNotFound{ReportID: id}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return nil
	}
	return report
}

// handleGetReport returns a stored report by ID
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	report := s.lookupReport(w, r)
	if report == nil {
		return
	}
	s.jsonResponse(w, http.StatusOK, report)
}

// handleReportEvidence returns the deduplicated evidence table for a report
func (s *Server) handleReportEvidence(w http.ResponseWriter, r *http.Request) {
	report := s.lookupReport(w, r)
	if report == nil {
		return
	}
	s.jsonResponse(w, http.StatusOK, EvidenceResponse{
		ReportID: report.ID,
		Rows:     evidence.BuildRows(report),
	})
}

// handleCaptureEmail records a lead email against a report
func (s *Server) handleCaptureEmail(w http.ResponseWriter, r *http.Request) {
	report := s.lookupReport(w, r)
	if report == nil {
		return
	}

	var req EmailCaptureRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	if err := s.ledger.MarkEmailCaptured(r.Context(), report.ID, req.Email); err != nil {
		log.Printf("Email capture failed for report %s: %v", report.ID, err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to record email: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"reportId":      report.ID,
		"emailCaptured": true,
	})
}
