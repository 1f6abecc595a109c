// Package observability provides logging and metrics support for the
// research aggregation service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for jobs, provider searches, and exports
//   - Context helpers for propagating observability data
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
//	logger.Info().Str("job_id", jobID).Msg("aggregation started")
//
// Add job context to logger:
//
//	logger = observability.WithJobContext(logger, jobID, requestID)
//
// # Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics("research_aggregation")
//
// Record metrics:
//
//	metrics.RecordJobStarted()
//	metrics.RecordSearchCompleted("semantic_scholar", 1.2, 40)
//	metrics.RecordExport("csv")
//
// # Context Helpers
//
// Store and retrieve request context:
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	ctx = observability.WithJobID(ctx, jobID)
//
//	reqID := observability.RequestIDFromContext(ctx)
//	jobID := observability.JobIDFromContext(ctx)
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - request_id: HTTP request identifier
//   - job_id: Research job identifier
//   - query: User's research query
//   - provider: Paper source (semantic_scholar, pubmed, arxiv, crossref)
//   - paper_id: Paper identifier
//   - doi: Digital object identifier
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
