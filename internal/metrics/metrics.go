package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortforge_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shortforge_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Run Metrics
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortforge_runs_total",
			Help: "Total number of pipeline runs by outcome",
		},
		[]string{"status", "reason"},
	)

	RunsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shortforge_runs_in_progress",
			Help: "Number of pipeline runs currently executing",
		},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shortforge_run_duration_seconds",
			Help:    "End-to-end pipeline run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 11), // 1s to ~17 minutes
		},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shortforge_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
		},
		[]string{"stage", "outcome"},
	)

	// AI Metrics
	AIAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortforge_ai_attempts_total",
			Help: "AI provider attempts by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	// Background Metrics
	BackgroundLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortforge_background_lookups_total",
			Help: "Background cache lookups by result",
		},
		[]string{"result"},
	)

	BackgroundEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortforge_background_evictions_total",
			Help: "Background cache entries evicted by reason",
		},
		[]string{"reason"},
	)

	BackgroundCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shortforge_background_cache_entries",
			Help: "Number of entries in the background cache index",
		},
	)

	// Assembly Metrics
	AssembliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortforge_assemblies_total",
			Help: "Completed assemblies by background path",
		},
		[]string{"background"},
	)

	AssemblyFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortforge_assembly_fallbacks_total",
			Help: "Assembly strategies that failed and fell through",
		},
		[]string{"strategy"},
	)

	ExportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shortforge_export_duration_seconds",
			Help:    "Video export duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"background"},
	)

	// Storage Metrics
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortforge_storage_operations_total",
			Help: "Total number of storage operations",
		},
		[]string{"operation", "status"},
	)

	// Database Metrics
	DatabaseOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortforge_database_operations_total",
			Help: "Total number of database operations",
		},
		[]string{"operation", "status"},
	)

	DatabaseOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shortforge_database_operation_duration_seconds",
			Help:    "Database operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Queue Metrics
	QueueMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortforge_queue_messages_total",
			Help: "Queue messages by outcome",
		},
		[]string{"outcome"},
	)

	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shortforge_queue_depth",
			Help: "Messages waiting per queue",
		},
		[]string{"queue"},
	)
)

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordRunStarted marks a run as in flight
func RecordRunStarted() {
	RunsInProgress.Inc()
}

// RecordRunFinished records the outcome of a run
func RecordRunFinished(status, reason string, duration float64) {
	RunsInProgress.Dec()
	RunsTotal.WithLabelValues(status, reason).Inc()
	RunDuration.Observe(duration)
}

// RecordStage records a stage duration
func RecordStage(stage string, success bool, duration float64) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	StageDuration.WithLabelValues(stage, outcome).Observe(duration)
}

// RecordAIAttempt records one AI provider attempt
func RecordAIAttempt(provider, outcome string) {
	AIAttemptsTotal.WithLabelValues(provider, outcome).Inc()
}

// RecordBackgroundLookup records a background cache lookup result
func RecordBackgroundLookup(result string) {
	BackgroundLookupsTotal.WithLabelValues(result).Inc()
}

// RecordBackgroundEviction records an evicted cache entry
func RecordBackgroundEviction(reason string) {
	BackgroundEvictionsTotal.WithLabelValues(reason).Inc()
}

// SetBackgroundCacheEntries sets the cache size gauge
func SetBackgroundCacheEntries(n int) {
	BackgroundCacheEntries.Set(float64(n))
}

// RecordAssembly records a finished assembly
func RecordAssembly(background string, exportSeconds float64) {
	AssembliesTotal.WithLabelValues(background).Inc()
	ExportDuration.WithLabelValues(background).Observe(exportSeconds)
}

// RecordAssemblyFallback records a strategy that failed
func RecordAssemblyFallback(strategy string) {
	AssemblyFallbacksTotal.WithLabelValues(strategy).Inc()
}

// RecordStorageOperation records a storage operation
func RecordStorageOperation(operation, status string) {
	StorageOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDatabaseOperation records a database operation
func RecordDatabaseOperation(operation, status string, duration float64) {
	DatabaseOperationsTotal.WithLabelValues(operation, status).Inc()
	DatabaseOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordQueueMessage records a consumed queue message outcome
func RecordQueueMessage(outcome string) {
	QueueMessagesTotal.WithLabelValues(outcome).Inc()
}

// SetQueueDepth sets the waiting message count for queue
func SetQueueDepth(queue string, depth int) {
	QueueDepth.WithLabelValues(queue).Set(float64(depth))
}
