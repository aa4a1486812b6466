package openalex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MakazhanAlpamys/ResearchHubV2/internal/domain"
	"github.com/MakazhanAlpamys/ResearchHubV2/internal/observability"
	"github.com/MakazhanAlpamys/ResearchHubV2/internal/papersources"
)

const (
	// DefaultBaseURL is the default OpenAlex API base URL.
	DefaultBaseURL = "https://api.openalex.org"

	// DefaultRateLimit is the default rate limit for requests per second.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 10

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = papersources.DefaultTimeout

	// DefaultEmail is the contact address advertised in the User-Agent.
	DefaultEmail = "dev@researchhub.local"

	// selectFields restricts the response to the fields mapped into a paper.
	selectFields = "id,title,authorships,publication_date,open_access,abstract_inverted_index"

	// maxAbstractWords bounds abstract reconstruction.
	maxAbstractWords = 100_000

	sourceName = "OpenAlex"
)

// Config holds configuration for the OpenAlex client.
type Config struct {
	// BaseURL is the OpenAlex API base URL.
	BaseURL string

	// Email is the contact email sent in the User-Agent. When SendMailto is
	// set it is also passed as the mailto parameter for the polite pool.
	Email string

	// SendMailto adds the mailto query parameter.
	SendMailto bool

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
	if c.Email == "" {
		c.Email = DefaultEmail
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

// userAgent returns the descriptive User-Agent OpenAlex asks clients to send.
func (c *Config) userAgent() string {
	return "ResearchHubV2/1.0 (mailto:" + c.Email + ")"
}

// Client implements the papersources.PaperSource interface for OpenAlex.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Ensure Client implements PaperSource interface.
var _ papersources.PaperSource = (*Client)(nil)

// New creates a new OpenAlex client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:    string(domain.SourceTypeOpenAlex),
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: cfg.userAgent(),
		Metrics:   cfg.Metrics,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new OpenAlex client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries OpenAlex for papers matching the given parameters.
// OpenAlex paginates by 1-based page number, so params.Page is used.
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
	req.Header.Set("User-Agent", c.config.userAgent())

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

	var searchResp SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, papersources.MaxResponseBytes)).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("%w: %w", papersources.ErrDecode, err)
	}

	papers := make([]*domain.Paper, 0, len(searchResp.Results))
	for i := range searchResp.Results {
		papers = append(papers, workToPaper(&searchResp.Results[i]))
	}

	return &papersources.SearchResult{
		Papers:         papers,
		Source:         domain.SourceTypeOpenAlex,
		SearchDuration: time.Since(startTime),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeOpenAlex
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

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/works"

	page := params.Page
	if page < 1 {
		page = 1
	}

	query := url.Values{}
	query.Set("search", params.Query)
	query.Set("per_page", strconv.Itoa(params.PageSize))
	query.Set("page", strconv.Itoa(page))
	query.Set("select", selectFields)

	if filters := buildFilters(params); len(filters) > 0 {
		query.Set("filter", strings.Join(filters, ","))
	}

	if c.config.SendMailto {
		query.Set("mailto", c.config.Email)
	}

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// buildFilters constructs the publication date filter components.
func buildFilters(params papersources.SearchParams) []string {
	var filters []string
	if params.YearFrom != nil {
		filters = append(filters, fmt.Sprintf("from_publication_date:%d-01-01", *params.YearFrom))
	}
	if params.YearTo != nil {
		filters = append(filters, fmt.Sprintf("to_publication_date:%d-12-31", *params.YearTo))
	}
	return filters
}

// workToPaper converts an OpenAlex work to a domain Paper.
func workToPaper(work *Work) *domain.Paper {
	paper := domain.NewPaper(domain.SourceTypeOpenAlex, shortID(work.ID))
	paper.URL = work.ID
	paper.Abstract = reconstructAbstract(work.AbstractInvertedIndex)

	if work.Title != nil {
		paper.Title = *work.Title
	}
	if work.PublicationDate != nil {
		paper.SetPublishedDate(*work.PublicationDate)
	}
	if work.OpenAccess != nil && work.OpenAccess.OAURL != nil {
		paper.PDFURL = *work.OpenAccess.OAURL
	}

	for _, a := range work.Authorships {
		paper.Authors = append(paper.Authors, a.Author.DisplayName)
	}

	return paper
}

// shortID returns the last path segment of an OpenAlex id URL.
// "https://openalex.org/W2741809807" → "W2741809807"
func shortID(id string) string {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}

// reconstructAbstract rebuilds abstract text from OpenAlex's inverted index.
// Words are ordered by position, ties broken by word, and joined with single
// spaces. An absent or empty index yields "".
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}

	totalPairs := 0
	for _, positions := range invertedIndex {
		totalPairs += len(positions)
	}
	if totalPairs > maxAbstractWords {
		return ""
	}

	pairs := make([]posWord, 0, totalPairs)
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].pos != pairs[j].pos {
			return pairs[i].pos < pairs[j].pos
		}
		return pairs[i].word < pairs[j].word
	})

	var builder strings.Builder
	builder.Grow(totalPairs * 7)
	for i, pair := range pairs {
		if i > 0 {
			builder.WriteByte(' ')
		}
		builder.WriteString(pair.word)
	}

	return builder.String()
}
