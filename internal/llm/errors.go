package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

var (
	// ErrNotConfigured is returned when no API key is set for the provider.
	ErrNotConfigured = errors.New("llm provider not configured")

	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("llm returned an empty response")
)

// APIError represents an error returned by an LLM provider API.
type APIError struct {
	// Provider is the name of the LLM provider (e.g., "gemini").
	Provider string
	// StatusCode is the HTTP status code returned by the API.
	StatusCode int
	// Message is the error message from the API.
	Message string
	// Type is the provider status string (e.g., "RESOURCE_EXHAUSTED").
	Type string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s: API error (status %d, type %s): %s", e.Provider, e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsTransient returns true if the error is a transient error that may succeed
// on retry. This includes rate limiting (429), server errors (5xx), and network
// errors (StatusCode 0 indicates no HTTP response was received).
func (e *APIError) IsTransient() bool {
	return e.StatusCode == 0 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= 500
}

// fromGenAIError converts a genai.APIError into an *APIError. Other errors
// are returned unchanged.
func fromGenAIError(provider string, err error) error {
	var gerr genai.APIError
	if errors.As(err, &gerr) {
		return &APIError{
			Provider:   provider,
			StatusCode: gerr.Code,
			Message:    gerr.Message,
			Type:       gerr.Status,
		}
	}
	return err
}

// isTransientError reports whether err is worth retrying.
func isTransientError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsTransient()
	}
	return false
}

// errorType returns a metrics label for err.
func errorType(err error) string {
	var apiErr *APIError
	switch {
	case errors.Is(err, ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, ErrEmptyResponse):
		return "empty_response"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &apiErr):
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return "rate_limited"
		}
		if apiErr.StatusCode >= 500 {
			return "server_error"
		}
		return "client_error"
	default:
		return "unknown"
	}
}
