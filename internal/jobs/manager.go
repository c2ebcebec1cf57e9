package jobs

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"video-library/internal/fetcher"
	"video-library/internal/library"
	"video-library/internal/logging"
	"video-library/internal/metrics"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrent is the worker budget when none is configured.
const DefaultMaxConcurrent = 2

// outputPattern names fetched files after their title and remote id.
const outputPattern = "%(title).200B [%(id)s].%(ext)s"

// Library is the part of the library the manager publishes fetched files through.
type Library interface {
	CategoryDir(category string) (string, error)
	AssetFromPath(path string) (*library.VideoAsset, error)
	Synthesize(ctx context.Context, asset *library.VideoAsset, opts library.SynthesisOptions) (*library.VideoMetadata, error)
}

// Config configures a Manager.
type Config struct {
	MaxConcurrent   int
	DefaultCategory string
}

// Request is one enqueue call.
type Request struct {
	URL      string `json:"url"`
	Category string `json:"category"`
	Quality  string `json:"quality"`
}

// Manager runs acquisition jobs with a bounded number of concurrent fetches.
type Manager struct {
	cfg     Config
	fetcher fetcher.Fetcher
	lib     Library
	now     func() time.Time

	sem     *semaphore.Weighted
	workers conc.WaitGroup

	requests chan func(*state)
	events   chan event
	quit     chan struct{}
	stopped  chan struct{}

	startOnce sync.Once
	closeOnce sync.Once
	started   atomic.Bool
}

// state is only touched by the owner goroutine.
type state struct {
	jobs    map[string]*Job
	order   []string
	queue   []string
	closing bool
}

type event struct {
	id       string
	progress *fetcher.Progress
	done     *outcome
}

type outcome struct {
	err      error
	result   *fetcher.Result
	assetID  string
	warning  string
	duration time.Duration
}

// NewManager creates a Manager. Call Start before use.
func NewManager(cfg Config, f fetcher.Fetcher, lib Library) *Manager {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.DefaultCategory == "" {
		cfg.DefaultCategory = "youtube"
	}
	return &Manager{
		cfg:      cfg,
		fetcher:  f,
		lib:      lib,
		now:      time.Now,
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		requests: make(chan func(*state)),
		events:   make(chan event),
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start launches the owner goroutine.
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		m.started.Store(true)
		go m.loop()
		logging.Info("Job manager started (max concurrent downloads: %d)", m.cfg.MaxConcurrent)
	})
}

// Close stops admitting jobs, waits for running fetches to finish and
// stops the owner goroutine. Queued jobs stay queued.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		if !m.started.Load() {
			return
		}
		if err := m.call(func(s *state) { s.closing = true }); err != nil {
			return
		}
		m.workers.Wait()
		close(m.quit)
		<-m.stopped
		logging.Info("Job manager stopped")
	})
}

func (m *Manager) loop() {
	defer close(m.stopped)

	s := &state{jobs: make(map[string]*Job)}
	for {
		select {
		case fn := <-m.requests:
			fn(s)
		case ev := <-m.events:
			m.apply(s, ev)
		case <-m.quit:
			return
		}
	}
}

// call runs fn on the owner goroutine and waits for it.
func (m *Manager) call(fn func(*state)) error {
	ack := make(chan struct{})
	select {
	case m.requests <- func(s *state) {
		defer close(ack)
		fn(s)
	}:
	case <-m.stopped:
		return ErrClosed
	}
	<-ack
	return nil
}

// Enqueue validates req, records a queued job and returns its id.
func (m *Manager) Enqueue(req Request) (string, error) {
	job, err := m.newJob(req)
	if err != nil {
		return "", err
	}

	var closed bool
	err = m.call(func(s *state) {
		if s.closing {
			closed = true
			return
		}
		s.jobs[job.ID] = job
		s.order = append(s.order, job.ID)
		s.queue = append(s.queue, job.ID)
		metrics.JobsEnqueuedTotal.Inc()
		logging.Info("Job %s queued: %s -> %s (%s)", job.ID, job.SourceURL, job.Category, job.FormatProfile)
		m.admit(s)
	})
	if err == nil && closed {
		err = ErrClosed
	}
	if err != nil {
		return "", err
	}
	return job.ID, nil
}

func (m *Manager) newJob(req Request) (*Job, error) {
	u, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: url must be an absolute http(s) URL", ErrInvalidRequest)
	}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = m.cfg.DefaultCategory
	}
	dir, err := m.lib.CategoryDir(category)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	profile, known := FormatProfile(req.Quality)
	job := &Job{
		ID:             uuid.NewString(),
		SourceURL:      u.String(),
		Category:       category,
		Quality:        req.Quality,
		FormatProfile:  profile,
		Status:         StatusQueued,
		CreatedAt:      m.now().UTC(),
		outputTemplate: filepath.Join(dir, outputPattern),
	}
	if !known {
		job.Warning = fmt.Sprintf("unrecognized quality %q, using best available", req.Quality)
	}
	return job, nil
}

// Get returns a snapshot of the job with the given id.
func (m *Manager) Get(id string) (Job, error) {
	var (
		job   Job
		found bool
	)
	if err := m.call(func(s *state) {
		if j, ok := s.jobs[id]; ok {
			job, found = j.snapshot(), true
		}
	}); err != nil {
		return Job{}, err
	}
	if !found {
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return job, nil
}

// Cancel fails a queued job. It reports false for jobs that already left the queue.
func (m *Manager) Cancel(id string) (bool, error) {
	var cancelled, found bool
	if err := m.call(func(s *state) {
		j, ok := s.jobs[id]
		if !ok {
			return
		}
		found = true
		if j.Status != StatusQueued {
			return
		}
		if err := j.setStatus(StatusFailed, m.now().UTC()); err != nil {
			logging.Warn("%v", err)
			return
		}
		j.Error = CancelledReason
		s.queue = removeID(s.queue, id)
		cancelled = true
		metrics.JobsFinishedTotal.WithLabelValues(string(StatusFailed), "cancelled").Inc()
		logging.Info("Job %s cancelled", id)
	}); err != nil {
		return false, err
	}
	if !found {
		return false, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return cancelled, nil
}

// List returns matching jobs in creation order.
func (m *Manager) List(filter Filter) ([]Job, error) {
	out := []Job{}
	err := m.call(func(s *state) {
		for _, id := range s.order {
			if j := s.jobs[id]; filter.match(j) {
				out = append(out, j.snapshot())
			}
		}
	})
	return out, err
}

// StatusCounts returns the number of jobs per status.
func (m *Manager) StatusCounts() map[string]int {
	counts := map[string]int{}
	_ = m.call(func(s *state) {
		for _, j := range s.jobs {
			counts[string(j.Status)]++
		}
	})
	return counts
}

// admit starts queued jobs in FIFO order while the worker budget allows.
func (m *Manager) admit(s *state) {
	for len(s.queue) > 0 && !s.closing {
		if !m.sem.TryAcquire(1) {
			return
		}
		id := s.queue[0]
		s.queue = s.queue[1:]
		j := s.jobs[id]

		if err := j.setStatus(StatusFetching, m.now().UTC()); err != nil {
			logging.Warn("%v", err)
			m.sem.Release(1)
			continue
		}
		metrics.JobsFetching.Inc()
		logging.Info("Job %s fetching %s", j.ID, j.SourceURL)

		snap := j.snapshot()
		m.workers.Go(func() { m.work(snap) })
	}
}

// apply folds a worker event into the owning job record.
func (m *Manager) apply(s *state, ev event) {
	j, ok := s.jobs[ev.id]
	if !ok {
		return
	}

	if p := ev.progress; p != nil {
		if j.Status != StatusFetching || p.Percent <= j.ProgressPercent {
			return
		}
		j.ProgressPercent = min(p.Percent, 100)
		j.ProgressSource = ProgressTransfer
		if p.Simulated {
			j.ProgressSource = ProgressSimulated
		}
		metrics.JobProgressUpdates.WithLabelValues(j.ProgressSource).Inc()
		return
	}

	o := ev.done
	now := m.now().UTC()
	m.sem.Release(1)
	metrics.JobsFetching.Dec()
	metrics.JobFetchDuration.Observe(o.duration.Seconds())

	if o.err != nil {
		if err := j.setStatus(StatusFailed, now); err != nil {
			logging.Warn("%v", err)
		}
		j.Error = o.err.Error()
		metrics.JobsFinishedTotal.WithLabelValues(string(StatusFailed), "fetch_error").Inc()
		logging.Warn("Job %s failed: %v", j.ID, o.err)
	} else {
		if err := j.setStatus(StatusCompleted, now); err != nil {
			logging.Warn("%v", err)
		}
		j.ProgressPercent = 100
		if j.ProgressSource == "" {
			j.ProgressSource = ProgressTransfer
		}
		j.FilePath = o.result.FilePath
		j.AssetID = o.assetID
		j.ResultMetadata = &ResultMetadata{
			Title:    o.result.Title,
			Duration: o.result.Duration,
			Uploader: o.result.Uploader,
		}
		reason := "ok"
		if o.warning != "" {
			j.Warning = joinWarning(j.Warning, o.warning)
			reason = "synthesis_error"
		}
		metrics.JobsFinishedTotal.WithLabelValues(string(StatusCompleted), reason).Inc()
		logging.Info("Job %s completed: %s", j.ID, j.FilePath)
	}

	m.admit(s)
}

// work runs on a worker goroutine and reports back through events only.
func (m *Manager) work(job Job) {
	ctx := context.Background()
	start := time.Now()

	result, err := m.fetcher.Fetch(ctx, fetcher.Request{
		URL:            job.SourceURL,
		FormatProfile:  job.FormatProfile,
		OutputTemplate: job.outputTemplate,
	}, func(p fetcher.Progress) {
		m.events <- event{id: job.ID, progress: &p}
	})

	o := &outcome{err: err, result: result, duration: time.Since(start)}
	if err == nil {
		o.assetID, o.warning = m.publish(ctx, job, result)
	}
	m.events <- event{id: job.ID, done: o}
}

// publish synthesizes the sidecar of a fetched file. Failures become a
// warning; the next scan retries synthesis.
func (m *Manager) publish(ctx context.Context, job Job, result *fetcher.Result) (string, string) {
	asset, err := m.lib.AssetFromPath(result.FilePath)
	if err != nil {
		logging.Warn("Job %s: fetched file is not a library asset: %v", job.ID, err)
		return "", fmt.Sprintf("metadata not synthesized: %v", err)
	}
	if asset.HasMetadata {
		return asset.ID, ""
	}

	source := result.WebpageURL
	if source == "" {
		source = job.SourceURL
	}
	if _, err := m.lib.Synthesize(ctx, asset, library.SynthesisOptions{
		Source:      source,
		Title:       result.Title,
		Description: result.Description,
	}); err != nil {
		logging.Warn("Job %s: metadata synthesis failed for %s: %v", job.ID, result.FilePath, err)
		return asset.ID, fmt.Sprintf("metadata not synthesized: %v", err)
	}
	return asset.ID, ""
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func joinWarning(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}
