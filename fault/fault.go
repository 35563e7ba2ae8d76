// Package fault defines the structured error codes surfaced across the
// analysis and display boundaries.
package fault

import (
	"fmt"
	"time"
)

// Code identifies a boundary error category.
type Code string

const (
	CaptureUnavailable Code = "CAPTURE_UNAVAILABLE"
	BackendUnavailable Code = "BACKEND_UNAVAILABLE"
	IncompleteRoster   Code = "INCOMPLETE_ROSTER"
	AnalysisFailed     Code = "ANALYSIS_FAILED"
)

// BoundaryError carries a code, a human-readable message and the underlying
// cause. It crosses the display boundary as diagnostic state.
type BoundaryError struct {
	Code    Code      `json:"code"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
	Cause   error     `json:"-"`
}

func (e *BoundaryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BoundaryError) Unwrap() error { return e.Cause }

// New constructs a BoundaryError stamped with the current time.
func New(code Code, message string, cause error) *BoundaryError {
	return &BoundaryError{Code: code, Message: message, At: time.Now(), Cause: cause}
}
