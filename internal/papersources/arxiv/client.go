package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MakazhanAlpamys/ResearchHubV2/internal/domain"
	"github.com/MakazhanAlpamys/ResearchHubV2/internal/observability"
	"github.com/MakazhanAlpamys/ResearchHubV2/internal/papersources"
)

const (
	// DefaultBaseURL is the default arXiv API base URL.
	DefaultBaseURL = "https://export.arxiv.org/api"

	// DefaultRateLimit is the default rate limit (3 requests per second).
	DefaultRateLimit = 3.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 3

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = papersources.DefaultTimeout

	// yearFilterFactor widens the fetch window when a year filter is active,
	// since arXiv has no server-side date filter on this endpoint.
	yearFilterFactor = 3

	// sourceName is the human-readable name for this source.
	sourceName = "arXiv"

	absURLPrefix = "https://arxiv.org/abs/"
)

// Config holds configuration for the arXiv client.
type Config struct {
	// BaseURL is the arXiv API base URL.
	BaseURL string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// Metrics receives request metrics. May be nil.
	Metrics *observability.Metrics
}

// applyDefaults sets default values for unset configuration fields.
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

// Client implements the papersources.PaperSource interface for arXiv.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Ensure Client implements PaperSource interface.
var _ papersources.PaperSource = (*Client)(nil)

// New creates a new arXiv client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:    string(domain.SourceTypeArXiv),
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		Metrics:   cfg.Metrics,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new arXiv client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries arXiv for papers matching the given parameters.
//
// When a year bound is set, three times the page size is fetched starting at
// three times the offset, entries outside the year range are dropped, and the
// remainder is cut to the page size.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	startTime := time.Now()

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

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(
			sourceName,
			resp.StatusCode,
			string(body),
			nil,
		)
	}

	var feed Feed
	if err := xml.NewDecoder(io.LimitReader(resp.Body, papersources.MaxResponseBytes)).Decode(&feed); err != nil {
		return nil, fmt.Errorf("%w: %w", papersources.ErrDecode, err)
	}

	papers := make([]*domain.Paper, 0, len(feed.Entries))
	for i := range feed.Entries {
		entry := &feed.Entries[i]
		if params.HasYearFilter() && !inYearRange(entry.Published, params.YearFrom, params.YearTo) {
			continue
		}
		papers = append(papers, entryToPaper(entry))
	}

	if params.PageSize > 0 && len(papers) > params.PageSize {
		papers = papers[:params.PageSize]
	}

	return &papersources.SearchResult{
		Papers:         papers,
		Source:         domain.SourceTypeArXiv,
		SearchDuration: time.Since(startTime),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeArXiv
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// buildSearchURL constructs the arXiv search API URL.
func (c *Client) buildSearchURL(params papersources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/query"

	fetchCount := params.PageSize
	fetchStart := params.Offset
	if params.HasYearFilter() {
		fetchCount *= yearFilterFactor
		fetchStart *= yearFilterFactor
	}

	query := url.Values{}
	query.Set("search_query", "all:"+params.Query)
	query.Set("start", strconv.Itoa(fetchStart))
	query.Set("max_results", strconv.Itoa(fetchCount))
	query.Set("sortBy", "relevance")
	query.Set("sortOrder", "descending")

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// entryToPaper converts an arXiv Atom entry to a domain Paper.
func entryToPaper(entry *Entry) *domain.Paper {
	arxivID := extractArXivID(entry.ID)

	paper := domain.NewPaper(domain.SourceTypeArXiv, arxivID)
	paper.Title = cleanText(entry.Title)
	paper.Abstract = cleanText(entry.Summary)
	paper.URL = absURLPrefix + arxivID
	paper.SetPublishedDate(publishedDate(entry.Published))

	for _, a := range entry.Authors {
		paper.Authors = append(paper.Authors, a.Name)
	}

	for _, link := range entry.Links {
		if link.Title == "pdf" {
			paper.PDFURL = link.Href
			break
		}
	}

	return paper
}

// extractArXivID returns the text after "/abs/" in the entry id, version
// suffix included. An id without "/abs/" is returned unchanged.
// Input: "http://arxiv.org/abs/2301.12345v1" → "2301.12345v1"
func extractArXivID(entryURL string) string {
	entryURL = strings.TrimSpace(entryURL)
	if i := strings.LastIndex(entryURL, "/abs/"); i >= 0 {
		return entryURL[i+len("/abs/"):]
	}
	return entryURL
}

// cleanText trims s and replaces newlines with spaces.
func cleanText(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
}

// publishedDate returns the date part (first 10 characters) of an Atom timestamp.
func publishedDate(published string) string {
	if len(published) > 10 {
		return published[:10]
	}
	return published
}

// inYearRange reports whether the 4-digit year prefix of published lies in
// the inclusive range. A missing or unparseable year is never in range.
func inYearRange(published string, from, to *int) bool {
	if len(published) < 4 {
		return false
	}
	year, err := strconv.Atoi(published[:4])
	if err != nil {
		return false
	}
	if from != nil && year < *from {
		return false
	}
	if to != nil && year > *to {
		return false
	}
	return true
}
