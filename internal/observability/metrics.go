package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the paper import service.
// Metrics are organized by subsystem: import jobs, items, enrichment,
// provider requests, and researcher resolution. All counters and histograms
// are registered via promauto for automatic registration with the default
// Prometheus registry.
type Metrics struct {
	// JobsStarted counts the total number of import jobs submitted.
	JobsStarted prometheus.Counter

	// JobsCompleted counts the total number of jobs that finished successfully.
	JobsCompleted prometheus.Counter

	// JobsFailed counts the total number of jobs that ended in failure.
	JobsFailed prometheus.Counter

	// JobDuration observes the end-to-end duration of import jobs in seconds.
	JobDuration prometheus.Histogram

	// ItemsPerJob observes the distribution of batch sizes.
	ItemsPerJob prometheus.Histogram

	// ItemsProcessed counts processed batch items, labeled by outcome
	// (successful, duplicate, failed).
	ItemsProcessed *prometheus.CounterVec

	// EnrichmentAttempts counts enrichment attempts per source, labeled by
	// source and outcome (matched, mismatch, miss, error).
	EnrichmentAttempts *prometheus.CounterVec

	// EnrichmentDuration observes per-paper enrichment duration in seconds.
	EnrichmentDuration prometheus.Histogram

	// SourceRequestsTotal counts HTTP requests to provider APIs, labeled by source and endpoint.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRequestsFailed counts failed HTTP requests to provider APIs, labeled by source, endpoint, and error type.
	SourceRequestsFailed *prometheus.CounterVec

	// SourceRequestDuration observes HTTP request duration to provider APIs in seconds.
	SourceRequestDuration *prometheus.HistogramVec

	// SourceRateLimited counts rate-limited responses from provider APIs, labeled by source.
	SourceRateLimited *prometheus.CounterVec

	// ResearchersCreated counts new researcher records created during resolution.
	ResearchersCreated prometheus.Counter

	// ResearchersReused counts author mentions resolved to an existing researcher.
	ResearchersReused prometheus.Counter

	// AuthorshipsCreated counts authorship links created.
	AuthorshipsCreated prometheus.Counter

	// AuthorListsRejected counts papers whose author list exceeded the fan-out cap.
	AuthorListsRejected prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Jobs
		JobsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_jobs_started_total",
			Help:      "Total number of import jobs submitted",
		}),
		JobsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_jobs_completed_total",
			Help:      "Total number of import jobs completed successfully",
		}),
		JobsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_jobs_failed_total",
			Help:      "Total number of import jobs that failed",
		}),
		JobDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_job_duration_seconds",
			Help:      "Duration of import jobs in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200, 1800, 3600},
		}),
		ItemsPerJob: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "items_per_job",
			Help:      "Number of papers per import job",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		}),
		ItemsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_processed_total",
			Help:      "Total number of batch items processed by outcome",
		}, []string{"outcome"}),

		// Enrichment
		EnrichmentAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_attempts_total",
			Help:      "Total number of enrichment attempts by source and outcome",
		}, []string{"source", "outcome"}),
		EnrichmentDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "enrichment_duration_seconds",
			Help:      "Duration of per-paper enrichment in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),

		// Sources
		SourceRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of requests to provider APIs",
		}, []string{"source", "endpoint"}),
		SourceRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_failed_total",
			Help:      "Total number of failed requests to provider APIs",
		}, []string{"source", "endpoint", "error_type"}),
		SourceRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Duration of requests to provider APIs in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source", "endpoint"}),
		SourceRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rate_limited_total",
			Help:      "Total number of rate limit responses from provider APIs",
		}, []string{"source"}),

		// Researchers
		ResearchersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "researchers_created_total",
			Help:      "Total number of researcher records created",
		}),
		ResearchersReused: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "researchers_reused_total",
			Help:      "Total number of author mentions resolved to existing researchers",
		}),
		AuthorshipsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authorships_created_total",
			Help:      "Total number of authorship links created",
		}),
		AuthorListsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "author_lists_rejected_total",
			Help:      "Total number of papers whose author list exceeded the fan-out cap",
		}),
	}
}

// RecordJobStarted records a submitted import job and its batch size.
func (m *Metrics) RecordJobStarted(itemCount int) {
	m.JobsStarted.Inc()
	m.ItemsPerJob.Observe(float64(itemCount))
}

// RecordJobCompleted records that a job has completed.
func (m *Metrics) RecordJobCompleted(durationSeconds float64) {
	m.JobsCompleted.Inc()
	m.JobDuration.Observe(durationSeconds)
}

// RecordJobFailed records that a job has failed.
func (m *Metrics) RecordJobFailed(durationSeconds float64) {
	m.JobsFailed.Inc()
	m.JobDuration.Observe(durationSeconds)
}

// RecordItemProcessed records one processed batch item by outcome.
func (m *Metrics) RecordItemProcessed(outcome string) {
	m.ItemsProcessed.WithLabelValues(outcome).Inc()
}

// RecordEnrichmentAttempt records an enrichment attempt against a source.
func (m *Metrics) RecordEnrichmentAttempt(source, outcome string) {
	m.EnrichmentAttempts.WithLabelValues(source, outcome).Inc()
}

// RecordEnrichmentDuration records how long a paper took to enrich.
func (m *Metrics) RecordEnrichmentDuration(durationSeconds float64) {
	m.EnrichmentDuration.Observe(durationSeconds)
}

// RecordSourceRequest records a request to a provider API.
func (m *Metrics) RecordSourceRequest(source, endpoint string, durationSeconds float64) {
	m.SourceRequestsTotal.WithLabelValues(source, endpoint).Inc()
	m.SourceRequestDuration.WithLabelValues(source, endpoint).Observe(durationSeconds)
}

// RecordSourceRequestFailed records a failed request to a provider API.
func (m *Metrics) RecordSourceRequestFailed(source, endpoint, errorType string) {
	m.SourceRequestsFailed.WithLabelValues(source, endpoint, errorType).Inc()
}

// RecordSourceRateLimited records a rate limit response from a provider.
func (m *Metrics) RecordSourceRateLimited(source string) {
	m.SourceRateLimited.WithLabelValues(source).Inc()
}

// RecordResearcherCreated records a new researcher record.
func (m *Metrics) RecordResearcherCreated() {
	m.ResearchersCreated.Inc()
}

// RecordResearcherReused records an author mention resolved to an existing researcher.
func (m *Metrics) RecordResearcherReused() {
	m.ResearchersReused.Inc()
}

// RecordAuthorshipCreated records a new authorship link.
func (m *Metrics) RecordAuthorshipCreated() {
	m.AuthorshipsCreated.Inc()
}

// RecordAuthorListRejected records a paper rejected by the fan-out cap.
func (m *Metrics) RecordAuthorListRejected() {
	m.AuthorListsRejected.Inc()
}
