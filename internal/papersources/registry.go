package papersources

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MakazhanAlpamys/ResearchHubV2/internal/domain"
)

// SourceResult holds the outcome of a search against one source.
type SourceResult struct {
	// Source identifies which paper source provided the result.
	Source domain.SourceType

	// Result contains the search results if the search succeeded.
	// Will be nil if Error is non-nil.
	Result *SearchResult

	// Error contains the error if the search failed.
	// Will be nil if Result is non-nil.
	Error error

	// Duration is the wall time spent in the source's Search call.
	Duration time.Duration
}

// PanicError is reported for a source whose Search call panicked.
type PanicError struct {
	Source domain.SourceType
	Value  any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("%s search panicked: %v", e.Source, e.Value)
}

// Registry holds the configured paper sources in registration order.
// Registration order is the declaration order used when concatenating
// results. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	order   []domain.SourceType
	sources map[domain.SourceType]PaperSource
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[domain.SourceType]PaperSource),
	}
}

// Register adds a source to the registry. Re-registering a source type
// replaces the implementation but keeps its original position.
func (r *Registry) Register(source PaperSource) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := source.SourceType()
	if _, exists := r.sources[st]; !exists {
		r.order = append(r.order, st)
	}
	r.sources[st] = source
}

// Get returns a source by type, or nil if not found.
func (r *Registry) Get(sourceType domain.SourceType) PaperSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[sourceType]
}

// Sources returns all registered sources in registration order.
// The returned slice is a snapshot.
func (r *Registry) Sources() []PaperSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]PaperSource, 0, len(r.order))
	for _, st := range r.order {
		sources = append(sources, r.sources[st])
	}
	return sources
}

// Select returns the sources to query: all registered sources when only is
// empty, otherwise exactly the named one. Naming a source that is not
// registered returns domain.ErrUnsupportedSource.
func (r *Registry) Select(only domain.SourceType) ([]PaperSource, error) {
	if only == "" {
		return r.Sources(), nil
	}

	source := r.Get(only)
	if source == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedSource, only)
	}
	return []PaperSource{source}, nil
}

// SearchSources searches the given sources concurrently and waits for all of
// them. The returned slice has one entry per source, in the same order as
// sources. A panicking source yields a *PanicError instead of crashing
// the process.
func (r *Registry) SearchSources(ctx context.Context, params SearchParams, sources []PaperSource) []SourceResult {
	if len(sources) == 0 {
		return nil
	}

	results := make([]SourceResult, len(sources))
	var wg sync.WaitGroup

	for i, source := range sources {
		wg.Add(1)
		go func(i int, s PaperSource) {
			defer wg.Done()
			results[i] = searchOne(ctx, s, params)
		}(i, source)
	}

	wg.Wait()
	return results
}

func searchOne(ctx context.Context, s PaperSource, params SearchParams) (out SourceResult) {
	out.Source = s.SourceType()
	start := time.Now()

	defer func() {
		out.Duration = time.Since(start)
		if v := recover(); v != nil {
			out.Result = nil
			out.Error = &PanicError{Source: out.Source, Value: v}
		}
	}()

	result, err := s.Search(ctx, params)
	if err != nil {
		out.Error = err
		return out
	}
	if result == nil {
		result = &SearchResult{Source: out.Source}
	}
	out.Result = result
	return out
}
