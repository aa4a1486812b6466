// Package papersources provides the contract, shared HTTP plumbing, and
// aggregation logic for academic paper search providers.
//
// Each provider (arXiv, OpenAlex, Semantic Scholar) implements PaperSource in
// its own subpackage. The Aggregator fans a query out to the registered
// sources concurrently and merges their results into one deduplicated page.
//
// Example usage:
//
//	registry := papersources.NewRegistry()
//	registry.Register(arxiv.New(arxiv.Config{}))
//	agg := papersources.NewAggregator(registry, logger, metrics)
//	result, err := agg.Aggregate(ctx, papersources.AggregateRequest{
//		Query:   "quantum error correction",
//		Page:    1,
//		PerPage: 10,
//	})
package papersources

import (
	"context"
	"time"

	"github.com/MakazhanAlpamys/ResearchHubV2/internal/domain"
)

// SearchParams defines the parameters for one provider search.
type SearchParams struct {
	// Query is the free-text search query (required).
	Query string

	// PageSize is the number of papers requested from the provider.
	PageSize int

	// Offset is the zero-based index of the first result, (Page-1)*PageSize.
	// Offset-style providers use this.
	Offset int

	// Page is the 1-based page number. Page-style providers use this.
	Page int

	// YearFrom filters papers published in or after this year. Nil means unbounded.
	YearFrom *int

	// YearTo filters papers published in or before this year. Nil means unbounded.
	YearTo *int
}

// HasYearFilter reports whether either year bound is set.
func (p SearchParams) HasYearFilter() bool {
	return p.YearFrom != nil || p.YearTo != nil
}

// SearchResult contains the results from a single provider search.
type SearchResult struct {
	// Papers contains the papers returned by the search, in provider order.
	Papers []*domain.Paper

	// Source identifies which paper source provided these results.
	Source domain.SourceType

	// RateLimited is set when the provider answered with a rate-limit
	// response that was treated as an empty result.
	RateLimited bool

	// SearchDuration is the time taken to execute the search,
	// including network latency and response parsing.
	SearchDuration time.Duration
}

// PaperSource defines the interface that all paper source clients must implement.
type PaperSource interface {
	// Search performs exactly one outbound request and maps the provider
	// response to domain papers. It returns an error on transport, status, or
	// decode failure and never a silently truncated list.
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)

	// SourceType returns the provider tag for this source.
	SourceType() domain.SourceType

	// Name returns a human-readable name used in logs.
	Name() string
}
