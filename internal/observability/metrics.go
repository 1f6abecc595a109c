package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the research aggregation
// service, organized by subsystem: jobs, provider searches, papers, exports,
// and events. All counters and histograms are registered via promauto for
// automatic registration with the default Prometheus registry.
type Metrics struct {
	// JobsStarted counts the total number of research jobs initiated.
	JobsStarted prometheus.Counter

	// JobsCompleted counts the total number of jobs that finished successfully.
	JobsCompleted prometheus.Counter

	// JobsFailed counts the total number of jobs that ended in failure.
	JobsFailed prometheus.Counter

	// JobDuration observes the end-to-end duration of jobs in seconds.
	JobDuration prometheus.Histogram

	// SearchesStarted counts provider searches initiated, labeled by source.
	SearchesStarted *prometheus.CounterVec

	// SearchesCompleted counts successful provider searches, labeled by source.
	SearchesCompleted *prometheus.CounterVec

	// SearchesFailed counts failed provider searches, labeled by source and outcome.
	SearchesFailed *prometheus.CounterVec

	// SearchDuration observes provider search duration in seconds, labeled by source.
	SearchDuration *prometheus.HistogramVec

	// RecordsPerSearch observes the distribution of records returned per search, labeled by source.
	RecordsPerSearch *prometheus.HistogramVec

	// SourceRateLimited counts rate-limited responses from provider APIs, labeled by source.
	SourceRateLimited *prometheus.CounterVec

	// PapersDiscovered counts the total number of unique papers in final result sets.
	PapersDiscovered prometheus.Counter

	// PapersDuplicate counts the total number of duplicates collapsed during deduplication.
	PapersDuplicate prometheus.Counter

	// ExportsTotal counts result exports, labeled by format.
	ExportsTotal *prometheus.CounterVec

	// EventsPublished counts job lifecycle events published to the broker.
	EventsPublished prometheus.Counter

	// EventsFailed counts job lifecycle events that could not be published.
	EventsFailed prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Jobs
		JobsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_started_total",
			Help:      "Total number of research jobs started",
		}),
		JobsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_completed_total",
			Help:      "Total number of research jobs completed successfully",
		}),
		JobsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_failed_total",
			Help:      "Total number of research jobs that failed",
		}),
		JobDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "End-to-end research job duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		// Provider searches
		SearchesStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_started_total",
			Help:      "Total number of provider searches started",
		}, []string{"source"}),
		SearchesCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_completed_total",
			Help:      "Total number of provider searches completed successfully",
		}, []string{"source"}),
		SearchesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_failed_total",
			Help:      "Total number of provider searches that failed",
		}, []string{"source", "outcome"}),
		SearchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Provider search duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"source"}),
		RecordsPerSearch: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "records_per_search",
			Help:      "Distribution of records returned per provider search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}, []string{"source"}),
		SourceRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rate_limited_total",
			Help:      "Total number of rate-limited responses from provider APIs",
		}, []string{"source"}),

		// Papers
		PapersDiscovered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_discovered_total",
			Help:      "Total number of unique papers in final result sets",
		}),
		PapersDuplicate: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_duplicate_total",
			Help:      "Total number of duplicate papers collapsed during deduplication",
		}),

		// Exports
		ExportsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Total number of result exports",
		}, []string{"format"}),

		// Events
		EventsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of job lifecycle events published",
		}),
		EventsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_failed_total",
			Help:      "Total number of job lifecycle events that failed to publish",
		}),
	}
}

// RecordJobStarted increments the started-jobs counter.
func (m *Metrics) RecordJobStarted() {
	m.JobsStarted.Inc()
}

// RecordJobCompleted increments the completed-jobs counter and observes the
// job duration in seconds.
func (m *Metrics) RecordJobCompleted(durationSeconds float64) {
	m.JobsCompleted.Inc()
	m.JobDuration.Observe(durationSeconds)
}

// RecordJobFailed increments the failed-jobs counter and observes the job
// duration in seconds.
func (m *Metrics) RecordJobFailed(durationSeconds float64) {
	m.JobsFailed.Inc()
	m.JobDuration.Observe(durationSeconds)
}

// RecordSearchStarted increments the started-searches counter for a source.
func (m *Metrics) RecordSearchStarted(source string) {
	m.SearchesStarted.WithLabelValues(source).Inc()
}

// RecordSearchCompleted records a successful provider search.
func (m *Metrics) RecordSearchCompleted(source string, durationSeconds float64, records int) {
	m.SearchesCompleted.WithLabelValues(source).Inc()
	m.SearchDuration.WithLabelValues(source).Observe(durationSeconds)
	m.RecordsPerSearch.WithLabelValues(source).Observe(float64(records))
}

// RecordSearchFailed records a failed provider search with its outcome
// classification ("timeout", "rate_limited", or "error").
func (m *Metrics) RecordSearchFailed(source, outcome string, durationSeconds float64) {
	m.SearchesFailed.WithLabelValues(source, outcome).Inc()
	m.SearchDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordSourceRateLimited increments the rate-limited counter for a source.
func (m *Metrics) RecordSourceRateLimited(source string) {
	m.SourceRateLimited.WithLabelValues(source).Inc()
}

// RecordPapers records the dedup outcome for one job: the number of unique
// papers kept and the number of duplicates collapsed.
func (m *Metrics) RecordPapers(unique, duplicates int) {
	m.PapersDiscovered.Add(float64(unique))
	m.PapersDuplicate.Add(float64(duplicates))
}

// RecordExport increments the export counter for a format.
func (m *Metrics) RecordExport(format string) {
	m.ExportsTotal.WithLabelValues(format).Inc()
}

// RecordEventPublished increments the published-events counter.
func (m *Metrics) RecordEventPublished() {
	m.EventsPublished.Inc()
}

// RecordEventFailed increments the failed-events counter.
func (m *Metrics) RecordEventFailed() {
	m.EventsFailed.Inc()
}
