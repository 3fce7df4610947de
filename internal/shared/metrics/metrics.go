package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upload outcomes recorded by the intake pipeline.
const (
	UploadCreated     = "created"
	UploadDuplicate   = "duplicate"
	UploadUnsupported = "unsupported"
	UploadExtraction  = "extraction_failed"
	UploadPersistence = "persistence_failed"
	UploadRejected    = "rejected"
)

var (
	registry = prometheus.NewRegistry()

	uploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "traveldocs",
			Subsystem: "intake",
			Name:      "uploads_total",
			Help:      "Uploads by pipeline outcome.",
		},
		[]string{"outcome"},
	)
	extractionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "traveldocs",
			Subsystem: "intake",
			Name:      "extraction_duration_seconds",
			Help:      "Metadata extraction latency by modality and status.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"modality", "status"},
	)
	storageDeleteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "traveldocs",
			Subsystem: "storage",
			Name:      "delete_failures_total",
			Help:      "Object deletions that failed and were left for cleanup.",
		},
	)
	cleanupJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "traveldocs",
			Subsystem: "worker",
			Name:      "cleanup_jobs_total",
			Help:      "Storage cleanup jobs by status.",
		},
		[]string{"status"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "traveldocs",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		},
		[]string{"method", "route", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "traveldocs",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	registry.MustRegister(
		uploadsTotal,
		extractionDuration,
		storageDeleteFailures,
		cleanupJobsTotal,
		httpRequests,
		httpDuration,
	)
}

// IncUpload counts an upload by outcome.
func IncUpload(outcome string) {
	uploadsTotal.WithLabelValues(outcome).Inc()
}

// ObserveExtraction records an extraction call duration.
func ObserveExtraction(modality string, ok bool, d time.Duration) {
	status := "ok"
	if !ok {
		status = "error"
	}
	extractionDuration.WithLabelValues(modality, status).Observe(d.Seconds())
}

// IncStorageDeleteFailure counts an object that could not be removed.
func IncStorageDeleteFailure() {
	storageDeleteFailures.Inc()
}

// IncCleanupJob counts a processed cleanup job by status.
func IncCleanupJob(status string) {
	cleanupJobsTotal.WithLabelValues(status).Inc()
}

// ObserveHTTP records one finished request.
func ObserveHTTP(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Registry exposes the process registry, mainly for tests.
func Registry() *prometheus.Registry {
	return registry
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
