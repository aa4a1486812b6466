package papersources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/MakazhanAlpamys/ResearchHubV2/internal/domain"
	"github.com/MakazhanAlpamys/ResearchHubV2/internal/observability"
)

// Error kind labels reported in a failed SourceStatus.
const (
	KindExternalAPI = "ExternalAPIError"
	KindTimeout     = "Timeout"
	KindCanceled    = "Canceled"
	KindNetwork     = "NetworkError"
	KindDecode      = "DecodeError"
	KindPanic       = "Panic"
	KindUnknown     = "Error"
)

// ErrDecode wraps failures to parse a provider response body.
var ErrDecode = errors.New("decoding response")

// AggregateRequest describes one aggregated search.
type AggregateRequest struct {
	Query   string
	Page    int
	PerPage int

	// Source restricts the search to one provider. Empty means all registered.
	Source domain.SourceType

	YearFrom *int
	YearTo   *int
}

// Aggregator fans a query out to the registered paper sources, merges their
// results, removes duplicate titles, and cuts one page.
type Aggregator struct {
	registry *Registry
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// NewAggregator creates an aggregator over registry. metrics may be nil.
func NewAggregator(registry *Registry, logger zerolog.Logger, metrics *observability.Metrics) *Aggregator {
	return &Aggregator{
		registry: registry,
		logger:   logger.With().Str("component", "aggregator").Logger(),
		metrics:  metrics,
	}
}

// Aggregate runs the search on every selected source concurrently and
// builds one page. Provider failures are reported in the Sources list and
// never fail the call; an error is returned only for an invalid request.
//
// Provider calls are detached from ctx cancellation so that a client
// disconnect does not abort in-flight provider requests; each source is
// bounded by its own HTTP timeout.
func (a *Aggregator) Aggregate(ctx context.Context, req AggregateRequest) (*domain.SearchResult, error) {
	if req.Page < 1 || req.PerPage < 1 {
		return nil, fmt.Errorf("%w: page and per_page must be positive", domain.ErrInvalidInput)
	}

	sources, err := a.registry.Select(req.Source)
	if err != nil {
		return nil, err
	}

	params := SearchParams{
		Query:    req.Query,
		PageSize: req.PerPage,
		Offset:   (req.Page - 1) * req.PerPage,
		Page:     req.Page,
		YearFrom: req.YearFrom,
		YearTo:   req.YearTo,
	}

	if a.metrics != nil {
		for _, s := range sources {
			a.metrics.RecordSearchStarted(string(s.SourceType()))
		}
	}

	start := time.Now()
	results := a.registry.SearchSources(context.WithoutCancel(ctx), params, sources)

	logger := observability.FromContext(ctx, a.logger)
	statuses := make([]domain.SourceStatus, 0, len(results))
	var all []*domain.Paper
	rawFullPage := false

	for _, r := range results {
		source := string(r.Source)
		if r.Error != nil {
			kind := ErrorKind(r.Error)
			statuses = append(statuses, domain.NewSourceFailed(r.Source, kind))
			logger.Warn().
				Err(r.Error).
				Str("source", source).
				Str("kind", kind).
				Dur("duration", r.Duration).
				Msg("paper source failed")
			if a.metrics != nil {
				a.metrics.RecordSearchFailed(source, kind, r.Duration.Seconds())
			}
			continue
		}

		statuses = append(statuses, domain.NewSourceOK(r.Source))
		all = append(all, r.Result.Papers...)
		if len(r.Result.Papers) == req.PerPage {
			rawFullPage = true
		}
		if r.Result.RateLimited {
			logger.Warn().Str("source", source).Msg("paper source rate limited, returning no results")
		}
		if a.metrics != nil {
			a.metrics.RecordSearchCompleted(source, len(r.Result.Papers), r.Duration.Seconds())
		}
	}

	unique := Deduplicate(all)
	if a.metrics != nil {
		a.metrics.RecordPaperDuplicates(len(all) - len(unique))
		scope := "all"
		if req.Source != "" {
			scope = string(req.Source)
		}
		a.metrics.RecordAggregation(scope, time.Since(start).Seconds())
	}

	page := unique
	if len(page) > req.PerPage {
		page = page[:req.PerPage]
	}

	logger.Debug().
		Str("query", req.Query).
		Int("page", req.Page).
		Int("raw", len(all)).
		Int("unique", len(unique)).
		Dur("duration", time.Since(start)).
		Msg("aggregated search completed")

	return &domain.SearchResult{
		Total:   len(unique),
		Page:    req.Page,
		PerPage: req.PerPage,
		HasMore: HasMore(len(unique), len(page), req.PerPage, rawFullPage),
		Papers:  page,
		Sources: statuses,
	}, nil
}

// Deduplicate keeps the first paper for each trimmed, case-insensitive title,
// preserving input order.
func Deduplicate(papers []*domain.Paper) []*domain.Paper {
	seen := make(map[string]struct{}, len(papers))
	unique := make([]*domain.Paper, 0, len(papers))
	for _, p := range papers {
		key := p.DedupKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, p)
	}
	return unique
}

// HasMore estimates whether another page exists. It is true when the unique
// set overflows the page, or when the page is full and at least one provider
// returned exactly perPage raw results.
func HasMore(uniqueCount, pageCount, perPage int, anyRawFullPage bool) bool {
	return uniqueCount > perPage || (pageCount == perPage && anyRawFullPage)
}

// ErrorKind maps a source error to a short, stable label.
func ErrorKind(err error) string {
	var (
		panicErr  *PanicError
		apiErr    *domain.ExternalAPIError
		netErr    net.Error
		syntaxXML *xml.SyntaxError
		syntaxJS  *json.SyntaxError
		typeJS    *json.UnmarshalTypeError
	)

	switch {
	case errors.As(err, &panicErr):
		return KindPanic
	case errors.As(err, &apiErr):
		return KindExternalAPI
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindNetwork
	case errors.As(err, &syntaxXML), errors.As(err, &syntaxJS), errors.As(err, &typeJS):
		return KindDecode
	case errors.Is(err, ErrDecode):
		return KindDecode
	default:
		return KindUnknown
	}
}
