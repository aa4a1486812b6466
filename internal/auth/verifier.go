// Package auth verifies bearer tokens issued by the external identity provider.
//
// HMAC-signed tokens are checked against a shared secret. Asymmetrically
// signed tokens are checked against the provider's public key set, which is
// downloaded on first use and kept for the life of the process.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/MakazhanAlpamys/ResearchHubV2/internal/observability"
)

const (
	bearerPrefix = "Bearer "

	// DefaultAudience is the audience claim the provider puts on user sessions.
	DefaultAudience = "authenticated"
)

// Identity is the authenticated caller, taken from the token's sub claim.
type Identity struct {
	UserID string
}

// Config holds verifier settings.
type Config struct {
	// Secret is the shared HMAC secret. Empty disables HS* tokens.
	Secret string

	// BaseURL is the identity provider base URL the key set URL is derived from.
	// Empty disables asymmetric tokens.
	BaseURL string

	// Audience is the required aud claim. Defaults to DefaultAudience.
	Audience string

	// KeySetTimeout bounds the key set download. Defaults to DefaultKeySetTimeout.
	KeySetTimeout time.Duration

	// HTTPClient overrides the client used for the key set download.
	HTTPClient *http.Client

	// Metrics receives rejection and key set counters. May be nil.
	Metrics *observability.Metrics
}

// Verifier validates Authorization header values.
type Verifier struct {
	secret   []byte
	audience string
	keys     *keySetCache
	metrics  *observability.Metrics
	logger   zerolog.Logger
}

// NewVerifier creates a verifier. It never fails; missing settings surface
// as ErrNotConfigured when a token needs them.
func NewVerifier(cfg Config, logger zerolog.Logger) *Verifier {
	if cfg.Audience == "" {
		cfg.Audience = DefaultAudience
	}
	if cfg.KeySetTimeout == 0 {
		cfg.KeySetTimeout = DefaultKeySetTimeout
	}

	v := &Verifier{
		audience: cfg.Audience,
		metrics:  cfg.Metrics,
		logger:   logger.With().Str("component", "auth").Logger(),
	}
	if cfg.Secret != "" {
		v.secret = []byte(cfg.Secret)
	}
	if cfg.BaseURL != "" {
		v.keys = newKeySetCache(cfg.BaseURL, cfg.KeySetTimeout, cfg.HTTPClient, cfg.Metrics)
	}
	return v
}

// Verify checks the bearer token in header and returns the caller identity.
// Every failure is an *Error.
func (v *Verifier) Verify(ctx context.Context, header string) (Identity, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return Identity{}, ErrMissingToken
	}
	raw := header[len(bearerPrefix):]

	unverified, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		v.logger.Debug().Err(err).Msg("unparseable token header")
		return Identity{}, ErrInvalidToken
	}
	alg := unverified.Method.Alg()

	keyFunc, err := v.keyFuncFor(ctx, alg)
	if err != nil {
		return Identity{}, err
	}

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(raw, claims, keyFunc,
		jwt.WithValidMethods([]string{alg}),
		jwt.WithAudience(v.audience),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrTokenExpired
		}
		v.logger.Debug().Err(err).Str("alg", alg).Msg("token validation failed")
		return Identity{}, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Identity{}, ErrInvalidPayload
	}

	return Identity{UserID: sub}, nil
}

// keyFuncFor selects the verification key source by the declared algorithm.
func (v *Verifier) keyFuncFor(ctx context.Context, alg string) (jwt.Keyfunc, error) {
	switch {
	case isHMAC(alg):
		if v.secret == nil {
			v.logger.Error().Msg("HMAC token received but no secret is configured")
			return nil, ErrNotConfigured
		}
		return func(*jwt.Token) (any, error) { return v.secret, nil }, nil

	case isAsymmetric(alg):
		if v.keys == nil {
			v.logger.Error().Msg("asymmetric token received but no identity provider URL is configured")
			return nil, ErrNotConfigured
		}
		kf, err := v.keys.get(ctx)
		if err != nil {
			v.logger.Error().Err(err).Str("url", v.keys.url).Msg("key set unavailable")
			return nil, ErrInvalidToken
		}
		return kf.KeyfuncCtx(ctx), nil

	default:
		v.logger.Debug().Str("alg", alg).Msg("unsupported token algorithm")
		return nil, ErrInvalidToken
	}
}

func isHMAC(alg string) bool {
	switch alg {
	case "HS256", "HS384", "HS512":
		return true
	}
	return false
}

func isAsymmetric(alg string) bool {
	switch alg {
	case "RS256", "RS384", "RS512",
		"PS256", "PS384", "PS512",
		"ES256", "ES384", "ES512",
		"EdDSA":
		return true
	}
	return false
}

// reject records a rejection metric for err.
func (v *Verifier) reject(err error) {
	if v.metrics == nil {
		return
	}
	var authErr *Error
	if errors.As(err, &authErr) {
		v.metrics.RecordAuthRejected(authErr.Reason())
	}
}
