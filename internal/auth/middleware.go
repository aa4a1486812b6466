package auth

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/MakazhanAlpamys/ResearchHubV2/internal/observability"
)

type contextKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFromContext returns the identity set by Middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// ErrorWriter renders a verification failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware rejects requests without a valid bearer token and stores the
// caller identity in the request context.
func Middleware(v *Verifier, logger zerolog.Logger, writeErr ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := v.Verify(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				v.reject(err)
				logger.Info().
					Err(err).
					Str("path", r.URL.Path).
					Str("request_id", observability.RequestIDFromContext(r.Context())).
					Msg("request rejected by auth")
				writeErr(w, r, err)
				return
			}

			ctx := WithIdentity(r.Context(), id)
			ctx = observability.WithUserID(ctx, id.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
