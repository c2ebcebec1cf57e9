package filesystem

// Observer receives retry events. The metrics package supplies the
// implementation so filesystem does not import it.
type Observer interface {
	// op is the retried operation: "stat" or "open".
	ObserveRetryAttempt(op string)
	ObserveRetrySuccess(op string)
	ObserveRetryFailure(op string)
	ObserveStaleError(op string)
}

var defaultObserver Observer

// SetObserver installs the observer used by the retry helpers. A nil
// observer disables reporting.
func SetObserver(o Observer) {
	defaultObserver = o
}

func observe() Observer {
	return defaultObserver
}
