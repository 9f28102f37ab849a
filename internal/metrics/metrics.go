// Package metrics provides Prometheus metrics for version generation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	versionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediagen_versions_total",
			Help: "Total number of versions attempted",
		},
		[]string{"category", "status"},
	)

	versionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediagen_version_duration_seconds",
			Help:    "Time spent materializing a single version",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"category", "mode"},
	)

	directoriesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediagen_directories_created_total",
			Help: "Total number of target directories created",
		},
	)

	clonesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediagen_clones_total",
			Help: "Total clone operations by strategy",
		},
		[]string{"strategy", "status"},
	)

	mirrorUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediagen_mirror_uploads_total",
			Help: "Total mirror uploads of generated versions",
		},
		[]string{"status"},
	)

	mirrorBytesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediagen_mirror_bytes_uploaded_total",
			Help: "Total bytes uploaded by the mirror",
		},
	)

	storageOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediagen_storage_operation_duration_seconds",
			Help:    "Mirror backend operation duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation", "status"},
	)

	queueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediagen_queue_depth",
			Help: "Files waiting in the worker queue",
		},
	)

	queueDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediagen_queue_dropped_total",
			Help: "Files dropped because the worker queue was full",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordVersion records the outcome of one version. Mode is "clone" or "process".
func RecordVersion(category, mode string, duration time.Duration, success bool) {
	versionsTotal.WithLabelValues(category, status(success)).Inc()
	versionDuration.WithLabelValues(category, mode).Observe(duration.Seconds())
}

// RecordDirectoryCreated counts a newly created target directory.
func RecordDirectoryCreated() {
	directoriesCreated.Inc()
}

// RecordClone records a clone operation.
func RecordClone(strategy string, success bool) {
	clonesTotal.WithLabelValues(strategy, status(success)).Inc()
}

// RecordMirrorUpload records a mirror upload.
func RecordMirrorUpload(bytes int64, success bool) {
	if success {
		mirrorBytesUploaded.Add(float64(bytes))
	}
	mirrorUploadsTotal.WithLabelValues(status(success)).Inc()
}

// RecordStorageOperation records one backend call.
func RecordStorageOperation(backend, operation string, duration time.Duration, success bool) {
	storageOpDuration.WithLabelValues(backend, operation, status(success)).Observe(duration.Seconds())
}

// SetQueueDepth sets the number of files waiting for a worker.
func SetQueueDepth(n int) {
	queueDepth.Set(float64(n))
}

// RecordQueueDrop counts a file dropped from a full queue.
func RecordQueueDrop() {
	queueDropped.Inc()
}
