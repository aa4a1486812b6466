// Package observability provides logging, metrics, and request context support
// for the ResearchHub API.
//
// # Logging
//
// Create a logger from configuration:
//
//	logger := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//
// Enrich it with whatever the request context carries:
//
//	logger = observability.FromContext(ctx, logger)
//
// # Metrics
//
//	metrics := observability.NewMetrics("researchhub")
//	metrics.RecordSearchStarted("arxiv")
//
// # Standard Fields
//
//   - service: process name
//   - request_id: inbound request identifier
//   - user_id: authenticated subject
//   - query: user's search query
//   - source: paper source (arxiv, openalex, semantic_scholar)
//   - operation: AI proxy operation (summarize, analyze_document)
//   - language: target language code for AI output
//
// All components are safe for concurrent use from multiple goroutines.
package observability
