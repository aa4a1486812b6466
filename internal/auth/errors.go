package auth

import "github.com/MakazhanAlpamys/ResearchHubV2/internal/domain"

// Error is a verification failure. Error() returns the message that is safe
// to show to the caller; the underlying detail is logged by the verifier.
type Error struct {
	reason  string
	message string
	kind    error
}

func (e *Error) Error() string { return e.message }

// Unwrap returns domain.ErrUnauthorized or domain.ErrNotConfigured.
func (e *Error) Unwrap() error { return e.kind }

// Reason is a short label used for metrics.
func (e *Error) Reason() string { return e.reason }

var (
	// ErrMissingToken means the Authorization header is absent or not a bearer credential.
	ErrMissingToken = &Error{reason: "missing", message: "Missing authorization token", kind: domain.ErrUnauthorized}

	// ErrTokenExpired means the token's exp claim is in the past.
	ErrTokenExpired = &Error{reason: "expired", message: "Token has expired", kind: domain.ErrUnauthorized}

	// ErrInvalidToken covers signature, algorithm, audience and shape failures.
	ErrInvalidToken = &Error{reason: "invalid", message: "Invalid token", kind: domain.ErrUnauthorized}

	// ErrInvalidPayload means the token verified but carries no subject.
	ErrInvalidPayload = &Error{reason: "payload", message: "Invalid token payload", kind: domain.ErrUnauthorized}

	// ErrNotConfigured means the server lacks the secret or key set URL needed for the token's algorithm.
	ErrNotConfigured = &Error{reason: "not_configured", message: "Authentication is not configured on the server", kind: domain.ErrNotConfigured}
)
