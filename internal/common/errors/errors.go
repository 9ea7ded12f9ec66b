// Package errors provides the structured error taxonomy shared by the
// analysis pipeline and its stages.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Stage-level failure classes.
	ErrCodeInsufficientInput      ErrorCode = "INSUFFICIENT_INPUT"
	ErrCodeUpstreamFailed         ErrorCode = "UPSTREAM_FAILED"
	ErrCodeStageTimeout           ErrorCode = "STAGE_TIMEOUT"
	ErrCodeUnrecoverableExecution ErrorCode = "UNRECOVERABLE_EXECUTION"

	// Infrastructure failure classes.
	ErrCodeSessionStoreFailed ErrorCode = "SESSION_STORE_FAILED"
	ErrCodeCatalogQueryFailed ErrorCode = "CATALOG_QUERY_FAILED"
	ErrCodeReasoningFailed    ErrorCode = "REASONING_FAILED"
	ErrCodeReasoningTimeout   ErrorCode = "REASONING_TIMEOUT"
	ErrCodePayloadInvalid     ErrorCode = "PAYLOAD_INVALID"
	ErrCodeRunCancelled       ErrorCode = "RUN_CANCELLED"
)

// StageError is a structured application error. Stage failures are carried
// inside StageResult values rather than propagated as Go errors; only
// UNRECOVERABLE_EXECUTION escapes the orchestrator boundary.
type StageError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *StageError) Error() string {
	return fmt.Sprintf("StageError[%s]: %s", e.Code, e.Message)
}

// NewInsufficientInput marks a stage that had nothing usable to reason about.
// Recoverable by the user supplying more profile detail, so Retryable is true.
func NewInsufficientInput(details string) *StageError {
	return &StageError{
		Code:      ErrCodeInsufficientInput,
		Message:   "profile has no usable fields for this analysis",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamFailed marks a stage skipped because a dependency failed.
func NewUpstreamFailed(details string) *StageError {
	return &StageError{
		Code:      ErrCodeUpstreamFailed,
		Message:   "a required upstream stage failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStageTimeout marks a stage whose reasoning call exceeded its budget.
func NewStageTimeout(stage string, budget time.Duration) *StageError {
	return &StageError{
		Code:      ErrCodeStageTimeout,
		Message:   "stage exceeded its time budget",
		Details:   fmt.Sprintf("stage: %s, budget: %s", stage, budget),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnrecoverableExecution wraps an unexpected internal fault. The
// orchestrator fails the whole run when it sees this class.
func NewUnrecoverableExecution(err error) *StageError {
	return &StageError{
		Code:      ErrCodeUnrecoverableExecution,
		Message:   "unexpected internal fault",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionStoreFailed creates a retryable persistence error.
func NewSessionStoreFailed(err error) *StageError {
	return &StageError{
		Code:      ErrCodeSessionStoreFailed,
		Message:   "session store operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCatalogQueryFailed creates a retryable scholarship catalog error.
func NewCatalogQueryFailed(err error) *StageError {
	return &StageError{
		Code:      ErrCodeCatalogQueryFailed,
		Message:   "scholarship catalog query failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPayloadInvalid marks a succeeded stage whose payload violated its schema.
func NewPayloadInvalid(stage, details string) *StageError {
	return &StageError{
		Code:      ErrCodePayloadInvalid,
		Message:   fmt.Sprintf("stage %q produced a payload that violates its schema", stage),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// IsTerminal reports whether the error class fails the whole run rather than
// a single stage.
func IsTerminal(code ErrorCode) bool {
	return code == ErrCodeUnrecoverableExecution || code == ErrCodePayloadInvalid
}

// UserMessage maps an error code to the text the transport layer should show.
// Stage failures degrade the report; they are never surfaced as raw errors.
func UserMessage(code ErrorCode) string {
	switch code {
	case ErrCodeInsufficientInput:
		return "I could not find enough detail in your message to analyze. Please share your GPA, test scores, target school or field of study."
	case ErrCodeUpstreamFailed, ErrCodeStageTimeout:
		return "Part of the analysis could not be completed this time; the affected report section is marked unavailable."
	case ErrCodeUnrecoverableExecution:
		return "Something went wrong while preparing your report. Please try sending your message again."
	default:
		return "The request could not be completed. Please try again."
	}
}
