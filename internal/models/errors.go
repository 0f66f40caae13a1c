package models

import (
	"errors"
	"fmt"
)

// ValidationError indicates the request was rejected before any upstream
// call was attempted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NewValidationError creates a validation error for a named field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// RateLimitError indicates an upstream provider rejected the call due to
// rate limiting or quota exhaustion. Clients should back off and retry.
type RateLimitError struct {
	Provider string
	Message  string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited: %s", e.Provider, e.Message)
}

// UpstreamError indicates a data, search or LLM provider failed with a
// network error, timeout or unexpected status.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s upstream error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s upstream error: %s", e.Provider, e.Message)
}

// SynthesisError indicates the LLM call succeeded at the transport level
// but produced no usable memo.
type SynthesisError struct {
	Model   string
	Message string
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed for model %s: %s", e.Model, e.Message)
}

// NotFoundError indicates a referenced report does not exist or has been
// evicted.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("report not found: %s", e.ID)
}

// RenderError indicates PDF generation failed for a valid stored report.
type RenderError struct {
	ReportID string
	Message  string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render failed for report %s: %s", e.ReportID, e.Message)
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsRateLimitError reports whether err is a RateLimitError.
func IsRateLimitError(err error) bool {
	var re *RateLimitError
	return errors.As(err, &re)
}

// IsUpstreamError reports whether err is an UpstreamError.
func IsUpstreamError(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

// IsSynthesisError reports whether err is a SynthesisError.
func IsSynthesisError(err error) bool {
	var se *SynthesisError
	return errors.As(err, &se)
}

// IsNotFoundError reports whether err is a NotFoundError.
func IsNotFoundError(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// IsRenderError reports whether err is a RenderError.
func IsRenderError(err error) bool {
	var re *RenderError
	return errors.As(err, &re)
}
