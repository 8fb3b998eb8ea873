// Package observability provides logging, metrics, and request context
// support for the research assistant.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for searches, sources, drafts and the HTTP API
//   - Context helpers for propagating request identifiers
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    Output:    "stdout",
//	    AddSource: true,
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("domain", "Medicine").Msg("search started")
//
// Add search context to a logger:
//
//	logger = observability.WithSearchContext(logger, requestID, domainLabel)
//
// # Metrics
//
//	metrics := observability.NewMetrics("research_assistant")
//	metrics.RecordSourceSearchCompleted("arxiv", 10, 0.8, false)
//
// # Context Helpers
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	reqID := observability.RequestIDFromContext(ctx)
//	logger = observability.LoggerFromContext(ctx, logger)
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - request_id: HTTP request identifier
//   - correlation_id: caller-supplied correlation identifier
//   - domain: selected research domain label
//   - source: publication source slug (arxiv, google_scholar, pubmed)
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
