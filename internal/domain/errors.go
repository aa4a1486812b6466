package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error categories shared by every layer. The HTTP server maps them to
// status codes in one place.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotConfigured     = errors.New("not configured")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstreamAI        = errors.New("ai service unavailable")
	ErrUnsupportedSource = errors.New("unsupported source")
)

// maxAPIErrorMessage caps how much of a provider error body is kept.
const maxAPIErrorMessage = 256

// ValidationError is a client input problem tied to one field. Message is
// safe to show to the caller.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError returns a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap makes every ValidationError match ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// ExternalAPIError is a non-success answer from a paper provider.
type ExternalAPIError struct {
	Source     string
	StatusCode int
	Message    string
	Cause      error
}

// NewExternalAPIError builds an ExternalAPIError. The message is trimmed
// and truncated since it usually carries a raw response body.
func NewExternalAPIError(source string, statusCode int, message string, cause error) *ExternalAPIError {
	message = strings.TrimSpace(message)
	if len(message) > maxAPIErrorMessage {
		message = message[:maxAPIErrorMessage] + "..."
	}
	return &ExternalAPIError{
		Source:     source,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}

func (e *ExternalAPIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s API error (status %d)", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Source, e.StatusCode, e.Message)
}

func (e *ExternalAPIError) Unwrap() error {
	return e.Cause
}

// Is reports a 429 answer as ErrRateLimited.
func (e *ExternalAPIError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}
