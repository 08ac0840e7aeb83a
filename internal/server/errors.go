// Package server provides the HTTP REST API for the search grader.
package server

import (
	"fmt"
	"net/http"
)

// ErrReportNotFound indicates a report does not exist or has expired
type ErrReportNotFound struct {
	ReportID string
}

func (e *ErrReportNotFound) Error() string {
	return fmt.Sprintf("report not found: %s", e.ReportID)
}

// ErrRunNotFound indicates a run does not exist or has expired
type ErrRunNotFound struct {
	RunID string
}

func (e *ErrRunNotFound) Error() string {
	return fmt.Sprintf("run not found: %s", e.RunID)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	switch err.(type) {
	case *ErrReportNotFound, *ErrRunNotFound:
		return http.StatusNotFound
	case *ErrValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
