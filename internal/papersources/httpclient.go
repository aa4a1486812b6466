package papersources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MakazhanAlpamys/ResearchHubV2/internal/observability"
)

const (
	// DefaultTimeout bounds a single provider round trip.
	DefaultTimeout = 20 * time.Second

	// DefaultUserAgent is sent when neither the request nor the config sets one.
	DefaultUserAgent = "ResearchHubV2/1.0"

	// MaxResponseBytes caps how much of a provider response body is decoded.
	MaxResponseBytes = 10 << 20
)

// HTTPClientConfig configures the HTTP client.
type HTTPClientConfig struct {
	// Source labels metrics emitted by this client.
	Source string

	// Timeout is the request timeout for HTTP operations.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// APIKey is an optional API key for authentication.
	APIKey string

	// APIKeyHeader is the header name for the API key (e.g., "x-api-key").
	APIKeyHeader string

	// Metrics receives per-request metrics. May be nil.
	Metrics *observability.Metrics

	// Transport overrides the underlying round tripper. Nil uses the default.
	Transport http.RoundTripper
}

// HTTPClient wraps http.Client with rate limiting and request metrics.
// Requests are sent exactly once; a failed call is reported to the caller
// as-is. It is safe for concurrent use.
type HTTPClient struct {
	client      *http.Client
	rateLimiter *RateLimiter
	config      HTTPClientConfig
}

// NewHTTPClient creates a new rate-limited HTTP client.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 10
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 10
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.BurstSize),
		config:      cfg,
	}
}

// Do waits for the rate limiter, sets the User-Agent and optional API key
// headers, and executes the request once. The pacing wait and the round trip
// share one deadline of config.Timeout; a wait that cannot finish in time
// fails with context.DeadlineExceeded. The deadline is released when the
// response body is closed.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(req.Context(), c.config.Timeout)
	req = req.WithContext(ctx)

	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if c.config.APIKey != "" && c.config.APIKeyHeader != "" {
		req.Header.Set(c.config.APIKeyHeader, c.config.APIKey)
	}

	waited, err := c.rateLimiter.Wait(ctx)
	if c.config.Metrics != nil {
		c.config.Metrics.RecordSourcePacingWait(c.config.Source, waited.Seconds())
	}
	if err != nil {
		cancel()
		// rate.Limiter reports a deadline it cannot meet with its own error.
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
		}
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	c.record(resp, time.Since(start))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("request failed: %w", err)
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}

	if resp.StatusCode == http.StatusTooManyRequests && c.config.Metrics != nil {
		c.config.Metrics.RecordSourceRateLimited(c.config.Source)
	}

	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func (c *HTTPClient) record(resp *http.Response, elapsed time.Duration) {
	if c.config.Metrics == nil {
		return
	}
	status := "error"
	if resp != nil {
		status = statusClass(resp.StatusCode)
	}
	c.config.Metrics.RecordSourceRequest(c.config.Source, status, elapsed.Seconds())
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
