package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, scope := range []string{"all", "category"} {
		for _, mode := range []string{"scan", "list"} {
			ScanRunsTotal.WithLabelValues(scope, mode)
			ScanDuration.WithLabelValues(scope, mode)
		}
	}

	for _, outcome := range []string{"scanned", "found", "processed", "error"} {
		ScanFilesTotal.WithLabelValues(outcome)
	}

	for _, status := range []string{"success", "error_probe", "error_thumbnail", "error_write"} {
		SynthesisTotal.WithLabelValues(status)
	}

	for _, op := range []string{"probe", "thumbnail"} {
		ProbeDuration.WithLabelValues(op)
		ProbeErrors.WithLabelValues(op)
	}

	JobsFinishedTotal.WithLabelValues("completed", "ok")
	JobsFinishedTotal.WithLabelValues("completed", "synthesis_error")
	JobsFinishedTotal.WithLabelValues("failed", "cancelled")
	JobsFinishedTotal.WithLabelValues("failed", "fetch_error")

	for _, status := range []string{"queued", "fetching", "completed", "failed"} {
		JobsByStatus.WithLabelValues(status)
	}

	for _, source := range []string{"transfer", "simulated"} {
		JobProgressUpdates.WithLabelValues(source)
	}

	for _, kind := range []string{"video", "image"} {
		for _, status := range []string{"200", "206", "304", "404", "416"} {
			StreamResponsesTotal.WithLabelValues(kind, status)
		}
		StreamBytesTotal.WithLabelValues(kind)
	}

	for _, reason := range []string{"client_gone", "timeout", "io_error"} {
		StreamInterruptedTotal.WithLabelValues(reason)
	}

	for _, op := range []string{"stat", "open"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetrySuccess.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
	}
}
