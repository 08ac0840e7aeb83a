package analysis

import "fmt"

// APICallError represents an error from the LLM provider
type APICallError struct {
	Message string
	Cause   error
}

func (e *APICallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("API call failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("API call failed: %s", e.Message)
}

func (e *APICallError) Unwrap() error {
	return e.Cause
}

// ParseError represents an error parsing the model response. ResponseLength
// carries the size of the raw response so truncated output is diagnosable
// from the error message alone.
type ParseError struct {
	Message        string
	ResponseLength int
	Cause          error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse error: %s. The model may have returned truncated output. Response length: %d chars",
		e.Message, e.ResponseLength)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ValidationError represents a payload that parsed but failed schema checks
type ValidationError struct {
	Message string
	Field   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}
