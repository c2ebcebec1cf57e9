// Package metrics provides Prometheus instrumentation for the video library.
//
// All metrics are registered with promauto at package init and prefixed with
// "video_library_". They fall into five groups:
//
//   - HTTP: request counts, durations, in-flight gauge, rate-limit rejections
//   - Scanner: scan passes by scope and mode, files by outcome
//     (scanned/found/processed/error)
//   - Synthesis: attempts by status, synthesis and probe durations
//   - Acquisition jobs: enqueued and finished counters, per-status gauges,
//     fetching gauge, fetch duration, progress updates by source
//     (transfer/simulated)
//   - Streaming: responses by kind and status code, bytes written, interrupted bodies
//
// InitializeMetrics pre-creates label combinations so dashboards see zero
// values from the first scrape. Collector polls a JobStatsProvider and copies
// its counts into the per-status job gauges.
//
// The filesystem package cannot import this package without a cycle, so
// NewFilesystemObserver adapts the retry counters to filesystem.Observer.
package metrics
