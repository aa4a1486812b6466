package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc/v3"

	"github.com/MakazhanAlpamys/ResearchHubV2/internal/observability"
)

const (
	jwksPath = "/auth/v1/.well-known/jwks.json"

	// DefaultKeySetTimeout bounds the key set download.
	DefaultKeySetTimeout = 10 * time.Second

	maxKeySetBytes = 1 << 20
)

// keySetCache lazily downloads the public key set once per process.
// A failed download is not cached, so the next asymmetric token retries it.
type keySetCache struct {
	url     string
	client  *http.Client
	metrics *observability.Metrics

	mu sync.Mutex
	kf keyfunc.Keyfunc
}

func newKeySetCache(baseURL string, timeout time.Duration, client *http.Client, metrics *observability.Metrics) *keySetCache {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &keySetCache{
		url:     keySetURL(baseURL),
		client:  client,
		metrics: metrics,
	}
}

// keySetURL derives the discovery URL from the identity provider base URL.
func keySetURL(baseURL string) string {
	if baseURL == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + jwksPath
}

func (c *keySetCache) get(ctx context.Context) (keyfunc.Keyfunc, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.kf != nil {
		return c.kf, nil
	}

	kf, err := c.fetch(ctx)
	if c.metrics != nil {
		c.metrics.RecordKeySetFetch(err == nil)
	}
	if err != nil {
		return nil, err
	}

	c.kf = kf
	return kf, nil
}

func (c *keySetCache) fetch(ctx context.Context) (keyfunc.Keyfunc, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating key set request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching key set: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching key set: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxKeySetBytes))
	if err != nil {
		return nil, fmt.Errorf("reading key set: %w", err)
	}

	kf, err := keyfunc.NewJWKSetJSON(json.RawMessage(body))
	if err != nil {
		return nil, fmt.Errorf("parsing key set: %w", err)
	}
	return kf, nil
}
