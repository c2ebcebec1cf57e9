package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_library_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "video_library_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_library_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	HTTPRateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_library_http_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"path"},
	)
)

// Scanner metrics
var (
	ScanRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_library_scan_runs_total",
			Help: "Total number of library scan passes",
		},
		[]string{"scope", "mode"}, // scope: "all" or "category"; mode: "scan" or "list"
	)

	ScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "video_library_scan_duration_seconds",
			Help:    "Duration of library scan passes in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 300},
		},
		[]string{"scope", "mode"},
	)

	ScanFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_library_scan_files_total",
			Help: "Files seen by scan passes by outcome",
		},
		[]string{"outcome"}, // "scanned", "found", "processed", "error"
	)
)

// Synthesis and probe metrics
var (
	SynthesisTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_library_synthesis_total",
			Help: "Total number of metadata synthesis attempts",
		},
		[]string{"status"}, // "success", "error_probe", "error_thumbnail", "error_write"
	)

	SynthesisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "video_library_synthesis_duration_seconds",
			Help:    "Duration of metadata synthesis in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	ProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "video_library_probe_duration_seconds",
			Help:    "Duration of ffprobe/ffmpeg invocations in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"}, // "probe", "thumbnail"
	)

	ProbeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_library_probe_errors_total",
			Help: "Total number of failed ffprobe/ffmpeg invocations",
		},
		[]string{"operation"},
	)
)

// Acquisition job metrics
var (
	JobsEnqueuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "video_library_jobs_enqueued_total",
			Help: "Total number of acquisition jobs enqueued",
		},
	)

	JobsFinishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_library_jobs_finished_total",
			Help: "Total number of acquisition jobs that reached a terminal state",
		},
		[]string{"status", "reason"}, // status: "completed"/"failed"; reason: "ok", "cancelled", "fetch_error", "synthesis_error"
	)

	JobsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "video_library_jobs",
			Help: "Number of retained acquisition jobs by status",
		},
		[]string{"status"},
	)

	JobsFetching = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_library_jobs_fetching",
			Help: "Number of acquisition jobs currently fetching",
		},
	)

	JobFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "video_library_job_fetch_duration_seconds",
			Help:    "Duration of remote fetches in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
	)

	JobProgressUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_library_job_progress_updates_total",
			Help: "Progress updates applied to jobs by source",
		},
		[]string{"source"}, // "transfer" or "simulated"
	)
)

// Streaming metrics
var (
	StreamResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_library_stream_responses_total",
			Help: "Total number of stream responses by kind and status code",
		},
		[]string{"kind", "status"}, // kind: "video" or "image"
	)

	StreamBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_library_stream_bytes_total",
			Help: "Total bytes written to stream response bodies",
		},
		[]string{"kind"},
	)

	StreamInterruptedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_library_stream_interrupted_total",
			Help: "Stream bodies that stopped before the declared length",
		},
		[]string{"reason"}, // "client_gone", "timeout", "io_error"
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_library_filesystem_retry_attempts_total",
			Help: "Retry attempts after stale file handle errors",
		},
		[]string{"operation"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_library_filesystem_retry_success_total",
			Help: "Operations that succeeded after at least one retry",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_library_filesystem_retry_failures_total",
			Help: "Operations that failed after exhausting retries",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_library_filesystem_stale_errors_total",
			Help: "Stale file handle errors observed",
		},
		[]string{"operation"},
	)
)

// App info
var AppInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "video_library_app_info",
		Help: "Application build information",
	},
	[]string{"version", "commit", "go_version"},
)
