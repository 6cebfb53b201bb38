package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Package-level LLM metrics used by the genai provider-fallback path.
// They are nil until New registers them, and all call sites nil-check,
// so library code stays usable in tests without a registry.
var (
	LLMTotal           *prometheus.CounterVec
	LLMDuration        *prometheus.HistogramVec
	LLMFallbackTotal   *prometheus.CounterVec
	LLMFallbackLatency *prometheus.HistogramVec
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Query understanding metrics
	QueryIntentsTotal   *prometheus.CounterVec
	PlanningTypesTotal  *prometheus.CounterVec
	DisambiguationTotal *prometheus.CounterVec

	// Retrieval metrics
	SearchRequestsTotal   *prometheus.CounterVec
	SearchDurationSeconds *prometheus.HistogramVec

	// Scraper metrics
	ScraperRequestsTotal   *prometheus.CounterVec
	ScraperDurationSeconds *prometheus.HistogramVec

	// HTTP metrics
	HTTPErrorsTotal *prometheus.CounterVec

	// Data integrity metrics
	CourseDataIntegrity *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterWaitDuration  *prometheus.HistogramVec
	RateLimiterDropped       *prometheus.CounterVec
	RateLimiterActiveClients *prometheus.GaugeVec

	// Singleflight metrics
	SingleflightDedupTotal *prometheus.CounterVec

	// Snapshot metrics
	SnapshotOpsTotal *prometheus.CounterVec

	// Warmup metrics
	WarmupTasksTotal *prometheus.CounterVec
	WarmupDuration   prometheus.Histogram

	// Background job metrics
	JobDuration *prometheus.HistogramVec

	// Catalog size gauges
	CatalogSize *prometheus.GaugeVec
	IndexSize   *prometheus.GaugeVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// Query understanding metrics
		QueryIntentsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursecraft_query_intents_total",
				Help: "Total number of classified query intents",
			},
			[]string{"intent"}, // intent: prereq, reverse_prereq, prereq_chain, planning, semantic
		),

		PlanningTypesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursecraft_planning_types_total",
				Help: "Total number of detected planning query types",
			},
			[]string{"type"}, // type: first_semester, available, by_level, recommendation, partial
		),

		DisambiguationTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursecraft_disambiguation_total",
				Help: "Total number of title resolutions requiring clarification",
			},
			[]string{"outcome"}, // outcome: ambiguous, resolved
		),

		// Retrieval metrics
		SearchRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursecraft_search_requests_total",
				Help: "Total number of hybrid search requests by path and status",
			},
			[]string{"path", "status"}, // path: planning, direct, reverse, multi, semantic
		),

		SearchDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coursecraft_search_duration_seconds",
				Help:    "Hybrid search duration in seconds by path",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"path"},
		),

		// Scraper metrics
		ScraperRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursecraft_scraper_requests_total",
				Help: "Total number of scraper requests by department and status",
			},
			[]string{"department", "status"}, // status: success, error, timeout, not_found
		),

		ScraperDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coursecraft_scraper_duration_seconds",
				Help:    "Scraper request duration in seconds by department",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60}, // Matches 60s timeout + backoff
			},
			[]string{"department"},
		),

		// HTTP metrics
		HTTPErrorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursecraft_http_errors_total",
				Help: "Total HTTP errors by type and module",
			},
			[]string{"error_type", "module"}, // error_type: timeout, rate_limit, bad_request, etc.
		),

		// Data integrity metrics
		CourseDataIntegrity: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursecraft_course_data_integrity_issues_total",
				Help: "Total number of course data integrity issues detected",
			},
			[]string{"issue_type"}, // issue_type: placeholder_title, invalid_code, empty_title
		),

		// Rate limiter metrics
		RateLimiterWaitDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coursecraft_rate_limiter_wait_duration_seconds",
				Help:    "Time spent waiting for rate limiter token by limiter type",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5}, // 1ms to 5s
			},
			[]string{"limiter_type"}, // limiter_type: scraper, user, global, llm
		),

		RateLimiterDropped: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursecraft_rate_limiter_dropped_total",
				Help: "Total number of requests dropped by rate limiter",
			},
			[]string{"limiter_type"},
		),

		RateLimiterActiveClients: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coursecraft_rate_limiter_active_clients",
				Help: "Current number of clients tracked by each keyed rate limiter",
			},
			[]string{"limiter_type"},
		),

		// Singleflight metrics
		SingleflightDedupTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursecraft_singleflight_dedup_total",
				Help: "Total number of deduplicated requests (requests that waited instead of executing)",
			},
			[]string{"module"},
		),

		// Snapshot metrics
		SnapshotOpsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursecraft_snapshot_ops_total",
				Help: "Total number of catalog snapshot operations by op and status",
			},
			[]string{"op", "status"}, // op: upload, restore
		),

		// Warmup metrics
		WarmupTasksTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursecraft_warmup_tasks_total",
				Help: "Total number of warmup tasks by module and status",
			},
			[]string{"module", "status"}, // status: success, error
		),

		WarmupDuration: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "coursecraft_warmup_duration_seconds",
				Help:    "Total duration of warmup process",
				Buckets: []float64{10, 30, 60, 120, 300, 600, 900, 1800}, // 10s to 30min
			},
		),

		// Background job metrics
		JobDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coursecraft_job_duration_seconds",
				Help:    "Background job duration in seconds",
				Buckets: []float64{0.1, 1, 10, 60, 300, 900, 1800, 3600},
			},
			[]string{"job"}, // job: catalog_refresh, snapshot_upload, delta_merge
		),

		// Catalog size gauges
		CatalogSize: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coursecraft_catalog_size",
				Help: "Current number of rows per catalog entity",
			},
			[]string{"entity"}, // entity: courses, prereq_edges
		),

		IndexSize: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coursecraft_index_size",
				Help: "Current number of documents per search index",
			},
			[]string{"index"}, // index: bm25, vector
		),
	}

	// LLM metrics live at package level so genai can record without a
	// Metrics handle.
	LLMTotal = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursecraft_llm_requests_total",
			Help: "Total number of LLM requests by provider, operation, and status",
		},
		[]string{"provider", "operation", "status"}, // operation: answer, reformulate, embed
	)
	LLMDuration = promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coursecraft_llm_duration_seconds",
			Help:    "LLM request duration in seconds by provider and operation",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "operation"},
	)
	LLMFallbackTotal = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursecraft_llm_fallback_total",
			Help: "Total number of provider fallbacks by from, to, and operation",
		},
		[]string{"from", "to", "operation"},
	)
	LLMFallbackLatency = promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coursecraft_llm_fallback_latency_seconds",
			Help:    "Extra latency introduced by provider fallback",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"from", "to", "operation"},
	)

	return m
}

// RecordIntent records a classified query intent
func (m *Metrics) RecordIntent(intent string) {
	if m == nil {
		return
	}
	m.QueryIntentsTotal.WithLabelValues(intent).Inc()
}

// RecordPlanningType records a detected planning query type
func (m *Metrics) RecordPlanningType(planningType string) {
	if m == nil {
		return
	}
	m.PlanningTypesTotal.WithLabelValues(planningType).Inc()
}

// RecordDisambiguation records a title resolution outcome
func (m *Metrics) RecordDisambiguation(outcome string) {
	if m == nil {
		return
	}
	m.DisambiguationTotal.WithLabelValues(outcome).Inc()
}

// RecordSearch records a hybrid search request with its dispatch path
func (m *Metrics) RecordSearch(path, status string, duration float64) {
	if m == nil {
		return
	}
	m.SearchRequestsTotal.WithLabelValues(path, status).Inc()
	m.SearchDurationSeconds.WithLabelValues(path).Observe(duration)
}

// RecordScraperRequest records a scraper request with status
func (m *Metrics) RecordScraperRequest(department, status string, duration float64) {
	if m == nil {
		return
	}
	m.ScraperRequestsTotal.WithLabelValues(department, status).Inc()
	m.ScraperDurationSeconds.WithLabelValues(department).Observe(duration)
}

// RecordHTTPError records HTTP error metrics
func (m *Metrics) RecordHTTPError(errorType, module string) {
	if m == nil {
		return
	}
	m.HTTPErrorsTotal.WithLabelValues(errorType, module).Inc()
}

// RecordCourseIntegrityIssue records a course data integrity issue
func (m *Metrics) RecordCourseIntegrityIssue(issueType string) {
	if m == nil {
		return
	}
	m.CourseDataIntegrity.WithLabelValues(issueType).Inc()
}

// RecordRateLimiterWait records time spent waiting for rate limiter
func (m *Metrics) RecordRateLimiterWait(limiterType string, duration float64) {
	if m == nil {
		return
	}
	m.RateLimiterWaitDuration.WithLabelValues(limiterType).Observe(duration)
}

// RecordRateLimiterDrop records a request dropped by rate limiter
func (m *Metrics) RecordRateLimiterDrop(limiterType string) {
	if m == nil {
		return
	}
	m.RateLimiterDropped.WithLabelValues(limiterType).Inc()
}

// SetRateLimiterClients sets the active client count for a keyed limiter
func (m *Metrics) SetRateLimiterClients(limiterType string, count int) {
	if m == nil {
		return
	}
	m.RateLimiterActiveClients.WithLabelValues(limiterType).Set(float64(count))
}

// RecordSingleflightDedup records a deduplicated request
func (m *Metrics) RecordSingleflightDedup(module string) {
	if m == nil {
		return
	}
	m.SingleflightDedupTotal.WithLabelValues(module).Inc()
}

// RecordSnapshotOp records a catalog snapshot operation
func (m *Metrics) RecordSnapshotOp(op, status string) {
	if m == nil {
		return
	}
	m.SnapshotOpsTotal.WithLabelValues(op, status).Inc()
}

// RecordWarmupTask records a warmup task completion
func (m *Metrics) RecordWarmupTask(module, status string) {
	if m == nil {
		return
	}
	m.WarmupTasksTotal.WithLabelValues(module, status).Inc()
}

// RecordWarmupDuration records total warmup duration
func (m *Metrics) RecordWarmupDuration(duration float64) {
	if m == nil {
		return
	}
	m.WarmupDuration.Observe(duration)
}

// RecordJob records a background job run
func (m *Metrics) RecordJob(job string, duration float64) {
	if m == nil {
		return
	}
	m.JobDuration.WithLabelValues(job).Observe(duration)
}

// SetCatalogSize sets the row count gauge for a catalog entity
func (m *Metrics) SetCatalogSize(entity string, count int64) {
	if m == nil {
		return
	}
	m.CatalogSize.WithLabelValues(entity).Set(float64(count))
}

// SetIndexSize sets the document count gauge for a search index
func (m *Metrics) SetIndexSize(index string, count int) {
	if m == nil {
		return
	}
	m.IndexSize.WithLabelValues(index).Set(float64(count))
}
