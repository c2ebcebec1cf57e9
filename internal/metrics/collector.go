package metrics

import (
	"time"

	"video-library/internal/logging"
)

// JobStatsProvider reports the number of retained jobs by status.
type JobStatsProvider interface {
	StatusCounts() map[string]int
}

// Collector periodically copies job queue statistics into gauges.
type Collector struct {
	provider JobStatsProvider
	interval time.Duration
	stopChan chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider JobStatsProvider, interval time.Duration) *Collector {
	return &Collector{
		provider: provider,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.provider == nil {
		return
	}

	counts := c.provider.StatusCounts()
	for _, status := range []string{"queued", "fetching", "completed", "failed"} {
		JobsByStatus.WithLabelValues(status).Set(float64(counts[status]))
	}

	logging.Debug("Metrics collected: queued=%d, fetching=%d, completed=%d, failed=%d",
		counts["queued"], counts["fetching"], counts["completed"], counts["failed"])
}
