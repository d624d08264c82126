package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "podofo",
			Name:      "operations_total",
			Help:      "Document operations by operation and result",
		},
		[]string{"operation", "result"},
	)

	operationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "podofo",
			Name:      "operation_duration_seconds",
			Help:      "Duration of document operations, upload to last byte",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"operation"},
	)

	uploadBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "podofo",
			Name:      "upload_bytes_total",
			Help:      "Bytes received in uploaded files by operation",
		},
		[]string{"operation"},
	)

	archiveEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "podofo",
			Name:      "archive_entries_total",
			Help:      "Files written into streamed ZIP archives by operation",
		},
		[]string{"operation"},
	)

	cleanupFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "podofo",
			Name:      "cleanup_failures_total",
			Help:      "Workspace removals that failed",
		},
	)

	inflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "podofo",
			Name:      "inflight_requests",
			Help:      "Document requests currently being served",
		},
	)

	compressionRatio = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "podofo",
			Name:      "compression_ratio",
			Help:      "Compressed size divided by original size",
			Buckets:   []float64{.1, .2, .3, .4, .5, .6, .7, .8, .9, 1, 1.5},
		},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(operations, operationLatency, uploadBytes, archiveEntries, cleanupFailures, inflight, compressionRatio)
}

// Handler returns the http.Handler for /metrics.
func Handler() http.Handler { return promhttp.Handler() }

// ObserveOperation counts a finished operation and records its duration.
func ObserveOperation(operation, result string, dur time.Duration) {
	operations.WithLabelValues(operation, result).Inc()
	operationLatency.WithLabelValues(operation).Observe(dur.Seconds())
}

// AddUploadBytes adds n uploaded bytes for operation.
func AddUploadBytes(operation string, n int64) {
	uploadBytes.WithLabelValues(operation).Add(float64(n))
}

// AddArchiveEntries adds n files written into a ZIP for operation.
func AddArchiveEntries(operation string, n int) {
	archiveEntries.WithLabelValues(operation).Add(float64(n))
}

// IncCleanupFailure counts a workspace that could not be removed.
func IncCleanupFailure() { cleanupFailures.Inc() }

// RequestStarted marks a document request as in flight.
func RequestStarted() { inflight.Inc() }

// RequestFinished undoes RequestStarted.
func RequestFinished() { inflight.Dec() }

// ObserveCompression records compressed/original. Zero-byte originals are skipped.
func ObserveCompression(original, compressed int64) {
	if original <= 0 {
		return
	}
	compressionRatio.Observe(float64(compressed) / float64(original))
}
