package metrics

import "video-library/internal/filesystem"

// filesystemObserver implements filesystem.Observer using the Prometheus
// metrics declared in this package.
type filesystemObserver struct{}

// NewFilesystemObserver creates an observer that records filesystem retry
// metrics into the counters declared in metrics.go.
func NewFilesystemObserver() filesystem.Observer {
	return &filesystemObserver{}
}

func (o *filesystemObserver) ObserveRetryAttempt(op string) {
	FilesystemRetryAttempts.WithLabelValues(op).Inc()
}

func (o *filesystemObserver) ObserveRetrySuccess(op string) {
	FilesystemRetrySuccess.WithLabelValues(op).Inc()
}

func (o *filesystemObserver) ObserveRetryFailure(op string) {
	FilesystemRetryFailures.WithLabelValues(op).Inc()
}

func (o *filesystemObserver) ObserveStaleError(op string) {
	FilesystemStaleErrors.WithLabelValues(op).Inc()
}
