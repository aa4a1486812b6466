package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the ResearchHub API.
// Metrics are organized by subsystem: aggregated searches, per-source searches,
// source HTTP requests, authentication, document fetches, and LLM operations.
// All counters and histograms are registered via promauto with the default registry.
type Metrics struct {
	// AggregationsTotal counts aggregated searches, labeled by requested source scope ("all" or a tag).
	AggregationsTotal *prometheus.CounterVec

	// AggregationDuration observes end-to-end aggregation duration in seconds.
	AggregationDuration prometheus.Histogram

	// SearchesStarted counts searches initiated, labeled by paper source.
	SearchesStarted *prometheus.CounterVec

	// SearchesCompleted counts successful searches, labeled by paper source.
	SearchesCompleted *prometheus.CounterVec

	// SearchesFailed counts failed searches, labeled by paper source and error kind.
	SearchesFailed *prometheus.CounterVec

	// SearchDuration observes search duration in seconds, labeled by paper source.
	SearchDuration *prometheus.HistogramVec

	// PapersPerSearch observes the distribution of papers returned per search, labeled by source.
	PapersPerSearch *prometheus.HistogramVec

	// PapersDuplicate counts papers dropped by title deduplication.
	PapersDuplicate prometheus.Counter

	// SourceRequestsTotal counts HTTP requests to paper source APIs, labeled by source and status class.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRequestDuration observes HTTP request duration to paper source APIs in seconds.
	SourceRequestDuration *prometheus.HistogramVec

	// SourceRateLimited counts rate-limited responses from paper source APIs, labeled by source.
	SourceRateLimited *prometheus.CounterVec

	// SourcePacingWait observes time spent waiting for the per-source limiter.
	SourcePacingWait *prometheus.HistogramVec

	// AuthRejections counts rejected credentials, labeled by reason.
	AuthRejections *prometheus.CounterVec

	// KeySetFetches counts JWK set fetch attempts, labeled by outcome.
	KeySetFetches *prometheus.CounterVec

	// DocumentFetches counts document downloads, labeled by outcome.
	DocumentFetches *prometheus.CounterVec

	// DocumentBytes observes the size of successfully fetched documents.
	DocumentBytes prometheus.Histogram

	// LLMRequestsTotal counts LLM API requests, labeled by operation and model.
	LLMRequestsTotal *prometheus.CounterVec

	// LLMRequestsFailed counts failed LLM API requests, labeled by operation, model, and error type.
	LLMRequestsFailed *prometheus.CounterVec

	// LLMRequestDuration observes LLM API request duration in seconds, labeled by operation and model.
	LLMRequestDuration *prometheus.HistogramVec

	// LLMTokensUsed counts tokens consumed by LLM operations, labeled by operation, model, and token type.
	LLMTokensUsed *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Aggregation
		AggregationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregations_total",
			Help:      "Total number of aggregated paper searches",
		}, []string{"scope"}),
		AggregationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_duration_seconds",
			Help:      "Duration of aggregated paper searches in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}),

		// Searches
		SearchesStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_started_total",
			Help:      "Total number of searches started",
		}, []string{"source"}),
		SearchesCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_completed_total",
			Help:      "Total number of searches completed successfully",
		}, []string{"source"}),
		SearchesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_failed_total",
			Help:      "Total number of searches that failed",
		}, []string{"source", "kind"}),
		SearchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of searches in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}, []string{"source"}),
		PapersPerSearch: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "papers_per_search",
			Help:      "Number of papers returned per search",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100, 150},
		}, []string{"source"}),
		PapersDuplicate: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_duplicate_total",
			Help:      "Total number of duplicate papers dropped during aggregation",
		}),

		// Sources
		SourceRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of HTTP requests to paper source APIs",
		}, []string{"source", "status"}),
		SourceRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Duration of HTTP requests to paper source APIs in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}, []string{"source"}),
		SourceRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rate_limited_total",
			Help:      "Total number of rate-limited responses from paper source APIs",
		}, []string{"source"}),
		SourcePacingWait: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_pacing_wait_seconds",
			Help:      "Time spent waiting for the per-source request pacer",
			Buckets:   []float64{0, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"source"}),

		// Auth
		AuthRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_rejections_total",
			Help:      "Total number of rejected credentials",
		}, []string{"reason"}),
		KeySetFetches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keyset_fetches_total",
			Help:      "Total number of JWK set fetch attempts",
		}, []string{"outcome"}),

		// Documents
		DocumentFetches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_fetches_total",
			Help:      "Total number of remote document fetches",
		}, []string{"outcome"}),
		DocumentBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "document_bytes",
			Help:      "Size of fetched documents in bytes",
			Buckets:   prometheus.ExponentialBuckets(64*1024, 2, 10),
		}),

		// LLM
		LLMRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM API requests",
		}, []string{"operation", "model"}),
		LLMRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_failed_total",
			Help:      "Total number of failed LLM API requests",
		}, []string{"operation", "model", "error_type"}),
		LLMRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Duration of LLM API requests in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"operation", "model"}),
		LLMTokensUsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used by LLM operations",
		}, []string{"operation", "model", "token_type"}),
	}
}

// RecordAggregation records one aggregated search and its duration.
func (m *Metrics) RecordAggregation(scope string, durationSeconds float64) {
	m.AggregationsTotal.WithLabelValues(scope).Inc()
	m.AggregationDuration.Observe(durationSeconds)
}

// RecordSearchStarted records the start of a search on a source.
func (m *Metrics) RecordSearchStarted(source string) {
	m.SearchesStarted.WithLabelValues(source).Inc()
}

// RecordSearchCompleted records a successful search with the number of papers returned.
func (m *Metrics) RecordSearchCompleted(source string, paperCount int, durationSeconds float64) {
	m.SearchesCompleted.WithLabelValues(source).Inc()
	m.SearchDuration.WithLabelValues(source).Observe(durationSeconds)
	m.PapersPerSearch.WithLabelValues(source).Observe(float64(paperCount))
}

// RecordSearchFailed records a failed search.
func (m *Metrics) RecordSearchFailed(source, kind string, durationSeconds float64) {
	m.SearchesFailed.WithLabelValues(source, kind).Inc()
	m.SearchDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordPaperDuplicates records count papers dropped as duplicates.
func (m *Metrics) RecordPaperDuplicates(count int) {
	if count > 0 {
		m.PapersDuplicate.Add(float64(count))
	}
}

// RecordSourceRequest records one HTTP round trip to a paper source.
// status is the response status class ("2xx", "4xx", ...) or "error".
func (m *Metrics) RecordSourceRequest(source, status string, durationSeconds float64) {
	m.SourceRequestsTotal.WithLabelValues(source, status).Inc()
	m.SourceRequestDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordSourceRateLimited records a rate-limited response from a source.
// RecordSourcePacingWait records how long a request waited for its pacer.
func (m *Metrics) RecordSourcePacingWait(source string, waitSeconds float64) {
	m.SourcePacingWait.WithLabelValues(source).Observe(waitSeconds)
}

func (m *Metrics) RecordSourceRateLimited(source string) {
	m.SourceRateLimited.WithLabelValues(source).Inc()
}

// RecordAuthRejected records a rejected credential.
func (m *Metrics) RecordAuthRejected(reason string) {
	m.AuthRejections.WithLabelValues(reason).Inc()
}

// RecordKeySetFetch records a JWK set fetch attempt.
func (m *Metrics) RecordKeySetFetch(success bool) {
	m.KeySetFetches.WithLabelValues(outcomeLabel(success)).Inc()
}

// RecordDocumentFetch records a document download. size is only observed on success.
func (m *Metrics) RecordDocumentFetch(outcome string, size int) {
	m.DocumentFetches.WithLabelValues(outcome).Inc()
	if outcome == "success" {
		m.DocumentBytes.Observe(float64(size))
	}
}

// RecordLLMRequest records a successful LLM request with token usage.
func (m *Metrics) RecordLLMRequest(operation, model string, durationSeconds float64, inputTokens, outputTokens int) {
	m.LLMRequestsTotal.WithLabelValues(operation, model).Inc()
	m.LLMRequestDuration.WithLabelValues(operation, model).Observe(durationSeconds)
	m.LLMTokensUsed.WithLabelValues(operation, model, "input").Add(float64(inputTokens))
	m.LLMTokensUsed.WithLabelValues(operation, model, "output").Add(float64(outputTokens))
}

// RecordLLMRequestFailed records a failed LLM request.
func (m *Metrics) RecordLLMRequestFailed(operation, model, errorType string) {
	m.LLMRequestsFailed.WithLabelValues(operation, model, errorType).Inc()
}

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
