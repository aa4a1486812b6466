package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/MakazhanAlpamys/ResearchHubV2/internal/domain"
	"github.com/MakazhanAlpamys/ResearchHubV2/internal/observability"
	"github.com/MakazhanAlpamys/ResearchHubV2/internal/papersources"
)

const (
	// DefaultBaseURL is the default base URL for the Semantic Scholar Graph API.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultRateLimit is the default rate limit for unauthenticated requests.
	// With an API key, this can be increased.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 10

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = papersources.DefaultTimeout

	// apiKeyHeader is the header name for the Semantic Scholar API key.
	apiKeyHeader = "x-api-key"

	// paperFields is the list of fields to request from the API.
	paperFields = "paperId,title,authors,abstract,year,externalIds,url,openAccessPdf"

	// sourceName is the human-readable name for this source.
	sourceName = "Semantic Scholar"

	paperPageURL = "https://www.semanticscholar.org/paper/"
)

// Config contains configuration options for the Semantic Scholar client.
type Config struct {
	// BaseURL is the base URL for the API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the optional API key for authenticated requests.
	APIKey string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// Metrics receives request metrics. May be nil.
	Metrics *observability.Metrics
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
}

// Client implements the papersources.PaperSource interface for Semantic Scholar.
type Client struct {
	httpClient *papersources.HTTPClient
	config     Config
}

// Compile-time check that Client implements papersources.PaperSource.
var _ papersources.PaperSource = (*Client)(nil)

// NewClient creates a new Semantic Scholar client with the given configuration.
// If httpClient is nil, a new one will be created with the configuration settings.
func NewClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	if httpClient == nil {
		httpClient = papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Source:       string(domain.SourceTypeSemanticScholar),
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
			BurstSize:    cfg.BurstSize,
			APIKey:       cfg.APIKey,
			APIKeyHeader: apiKeyHeader,
			Metrics:      cfg.Metrics,
		})
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
	}
}

// Search queries Semantic Scholar for papers matching the given parameters.
// A 429 response yields an empty result with RateLimited set and no error.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	start := time.Now()

	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &papersources.SearchResult{
			Papers:         []*domain.Paper{},
			Source:         domain.SourceTypeSemanticScholar,
			RateLimited:    true,
			SearchDuration: time.Since(start),
		}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, papersources.MaxResponseBytes)).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("%w: %w", papersources.ErrDecode, err)
	}

	papers := make([]*domain.Paper, 0, len(searchResp.Data))
	for i := range searchResp.Data {
		papers = append(papers, convertToPaper(&searchResp.Data[i]))
	}

	return &papersources.SearchResult{
		Papers:         papers,
		Source:         domain.SourceTypeSemanticScholar,
		SearchDuration: time.Since(start),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeSemanticScholar
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// buildSearchURL constructs the search API URL with query parameters.
func (c *Client) buildSearchURL(params papersources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	searchURL := baseURL.JoinPath("paper", "search")

	q := searchURL.Query()
	q.Set("query", params.Query)
	q.Set("limit", strconv.Itoa(params.PageSize))
	q.Set("offset", strconv.Itoa(params.Offset))
	q.Set("fields", paperFields)

	if year := yearParam(params.YearFrom, params.YearTo); year != "" {
		q.Set("year", year)
	}

	searchURL.RawQuery = q.Encode()
	return searchURL.String(), nil
}

// yearParam renders the year range as "Y1-Y2", "Y1-" or "-Y2".
func yearParam(from, to *int) string {
	switch {
	case from != nil && to != nil:
		return fmt.Sprintf("%d-%d", *from, *to)
	case from != nil:
		return fmt.Sprintf("%d-", *from)
	case to != nil:
		return fmt.Sprintf("-%d", *to)
	default:
		return ""
	}
}

// convertToPaper converts a single API paper result to a domain paper.
func convertToPaper(result *PaperResult) *domain.Paper {
	paper := domain.NewPaper(domain.SourceTypeSemanticScholar, result.PaperID)

	if result.Title != nil {
		paper.Title = *result.Title
	}
	if result.Abstract != nil {
		paper.Abstract = *result.Abstract
	}
	if result.Year != nil && *result.Year != 0 {
		paper.SetPublishedDate(fmt.Sprintf("%d-01-01", *result.Year))
	}

	if result.URL != nil && *result.URL != "" {
		paper.URL = *result.URL
	} else {
		paper.URL = paperPageURL + result.PaperID
	}

	if result.OpenAccessPDF != nil {
		paper.PDFURL = result.OpenAccessPDF.URL
	}

	for _, a := range result.Authors {
		paper.Authors = append(paper.Authors, a.Name)
	}

	return paper
}
