package jobs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"video-library/internal/fetcher"
	"video-library/internal/library"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedFetcher blocks every fetch until its URL is released.
type gatedFetcher struct {
	mu       sync.Mutex
	gates    map[string]chan error
	progress map[string][]fetcher.Progress
	emitted  chan float64

	active    atomic.Int32
	maxActive atomic.Int32
	requests  chan fetcher.Request
	done      chan struct{}
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{
		gates:    map[string]chan error{},
		progress: map[string][]fetcher.Progress{},
		requests: make(chan fetcher.Request, 16),
		done:     make(chan struct{}),
	}
}

func (g *gatedFetcher) gate(url string) chan error {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[url]
	if !ok {
		ch = make(chan error, 1)
		g.gates[url] = ch
	}
	return ch
}

func (g *gatedFetcher) release(url string, err error) { g.gate(url) <- err }

func (g *gatedFetcher) Fetch(_ context.Context, req fetcher.Request, progress func(fetcher.Progress)) (*fetcher.Result, error) {
	n := g.active.Add(1)
	defer g.active.Add(-1)
	for {
		m := g.maxActive.Load()
		if n <= m || g.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	g.requests <- req

	g.mu.Lock()
	steps := g.progress[req.URL]
	g.mu.Unlock()
	for _, p := range steps {
		progress(p)
		if g.emitted != nil {
			g.emitted <- p.Percent
		}
	}

	select {
	case err := <-g.gate(req.URL):
		if err != nil {
			return nil, err
		}
	case <-g.done:
	}
	dir := filepath.Dir(req.OutputTemplate)
	return &fetcher.Result{
		FilePath:   filepath.Join(dir, "fetched.mp4"),
		Title:      "Remote Title",
		Duration:   12,
		Uploader:   "uploader",
		WebpageURL: req.URL,
	}, nil
}

type fakeLibrary struct {
	mu          sync.Mutex
	synthErr    error
	synthesized []library.SynthesisOptions
}

func (f *fakeLibrary) CategoryDir(category string) (string, error) {
	if !library.ValidCategory(category) {
		return "", library.ErrInvalidCategory
	}
	return filepath.Join("/library/videos", category), nil
}

func (f *fakeLibrary) AssetFromPath(path string) (*library.VideoAsset, error) {
	return &library.VideoAsset{ID: "asset-" + filepath.Base(path), FilePath: path, FileName: filepath.Base(path)}, nil
}

func (f *fakeLibrary) Synthesize(_ context.Context, _ *library.VideoAsset, opts library.SynthesisOptions) (*library.VideoMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synthesized = append(f.synthesized, opts)
	if f.synthErr != nil {
		return nil, f.synthErr
	}
	return &library.VideoMetadata{Title: opts.Title}, nil
}

func newTestManager(t *testing.T, maxConcurrent int) (*Manager, *gatedFetcher, *fakeLibrary) {
	t.Helper()
	f := newGatedFetcher()
	lib := &fakeLibrary{}
	m := NewManager(Config{MaxConcurrent: maxConcurrent, DefaultCategory: "youtube"}, f, lib)
	m.Start()
	t.Cleanup(func() {
		close(f.done)
		m.Close()
	})
	return m, f, lib
}

func testURL(i int) string { return fmt.Sprintf("https://example.com/watch?v=%d", i) }

func waitStatus(t *testing.T, m *Manager, id string, want Status) Job {
	t.Helper()
	var job Job
	require.Eventually(t, func() bool {
		var err error
		job, err = m.Get(id)
		return err == nil && job.Status == want
	}, 2*time.Second, 5*time.Millisecond, "job %s never reached %s", id, want)
	return job
}

func countStatus(t *testing.T, m *Manager, status Status) int {
	t.Helper()
	jobs, err := m.List(Filter{Status: status})
	require.NoError(t, err)
	return len(jobs)
}

func TestEnqueueThreeWithBudgetTwo(t *testing.T) {
	m, f, _ := newTestManager(t, 2)

	ids := make([]string, 3)
	for i := range ids {
		id, err := m.Enqueue(Request{URL: testURL(i)})
		require.NoError(t, err)
		ids[i] = id
	}

	// Admission happens synchronously on enqueue.
	assert.Equal(t, StatusFetching, mustGet(t, m, ids[0]).Status)
	assert.Equal(t, StatusFetching, mustGet(t, m, ids[1]).Status)
	assert.Equal(t, StatusQueued, mustGet(t, m, ids[2]).Status)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StatusQueued, mustGet(t, m, ids[2]).Status, "third job must wait for a free slot")

	f.release(testURL(1), nil)
	waitStatus(t, m, ids[1], StatusCompleted)
	waitStatus(t, m, ids[2], StatusFetching)
	assert.Equal(t, StatusFetching, mustGet(t, m, ids[0]).Status)
}

func mustGet(t *testing.T, m *Manager, id string) Job {
	t.Helper()
	job, err := m.Get(id)
	require.NoError(t, err)
	return job
}

func TestConcurrencyBound(t *testing.T) {
	m, f, _ := newTestManager(t, 3)

	var ids []string
	for i := 0; i < 10; i++ {
		id, err := m.Enqueue(Request{URL: testURL(i)})
		require.NoError(t, err)
		ids = append(ids, id)
		assert.LessOrEqual(t, countStatus(t, m, StatusFetching), 3)
	}

	for i := 0; i < 10; i++ {
		f.release(testURL(i), nil)
		assert.LessOrEqual(t, countStatus(t, m, StatusFetching), 3)
	}
	for _, id := range ids {
		waitStatus(t, m, id, StatusCompleted)
	}
	assert.LessOrEqual(t, f.maxActive.Load(), int32(3))
}

func TestFIFOAdmission(t *testing.T) {
	m, f, _ := newTestManager(t, 1)

	for i := 0; i < 3; i++ {
		_, err := m.Enqueue(Request{URL: testURL(i)})
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		select {
		case req := <-f.requests:
			assert.Equal(t, testURL(i), req.URL)
		case <-time.After(2 * time.Second):
			t.Fatalf("fetch %d never started", i)
		}
		f.release(testURL(i), nil)
	}
}

func TestProgressNeverDecreases(t *testing.T) {
	m, f, _ := newTestManager(t, 1)
	f.emitted = make(chan float64)
	f.progress[testURL(0)] = []fetcher.Progress{
		{Percent: 10, Simulated: true},
		{Percent: 5},
		{Percent: 30},
		{Percent: 30},
	}

	id, err := m.Enqueue(Request{URL: testURL(0)})
	require.NoError(t, err)

	want := []struct {
		pct    float64
		source string
	}{
		{10, ProgressSimulated},
		{10, ProgressSimulated},
		{30, ProgressTransfer},
		{30, ProgressTransfer},
	}
	for _, w := range want {
		<-f.emitted
		job := mustGet(t, m, id)
		assert.Equal(t, w.pct, job.ProgressPercent)
		assert.Equal(t, w.source, job.ProgressSource)
	}

	f.release(testURL(0), nil)
	job := waitStatus(t, m, id, StatusCompleted)
	assert.Equal(t, 100.0, job.ProgressPercent)
}

func TestCancel(t *testing.T) {
	m, _, _ := newTestManager(t, 1)

	running, err := m.Enqueue(Request{URL: testURL(0)})
	require.NoError(t, err)
	queued, err := m.Enqueue(Request{URL: testURL(1)})
	require.NoError(t, err)

	ok, err := m.Cancel(running)
	require.NoError(t, err)
	assert.False(t, ok, "fetching jobs cannot be cancelled")

	ok, err = m.Cancel(queued)
	require.NoError(t, err)
	assert.True(t, ok)

	job := mustGet(t, m, queued)
	assert.Equal(t, StatusFailed, job.Status)
	assert.Equal(t, CancelledReason, job.Error)
	assert.NotNil(t, job.FinishedAt)
	assert.Nil(t, job.StartedAt)

	ok, err = m.Cancel(queued)
	require.NoError(t, err)
	assert.False(t, ok, "a cancelled job cannot be cancelled twice")

	_, err = m.Cancel("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestFetchFailureMarksJobFailed(t *testing.T) {
	m, f, _ := newTestManager(t, 2)

	id, err := m.Enqueue(Request{URL: testURL(0)})
	require.NoError(t, err)
	f.release(testURL(0), &fetcher.FetchError{URL: testURL(0), Err: errors.New("exit status 1"), Stderr: "ERROR: Video unavailable"})

	job := waitStatus(t, m, id, StatusFailed)
	assert.Contains(t, job.Error, "Video unavailable")
	assert.NotNil(t, job.FinishedAt)
	assert.Empty(t, job.FilePath)
}

func TestCompletedJobCarriesResult(t *testing.T) {
	m, f, lib := newTestManager(t, 2)

	id, err := m.Enqueue(Request{URL: testURL(0), Category: "music", Quality: "720p"})
	require.NoError(t, err)
	f.release(testURL(0), nil)

	job := waitStatus(t, m, id, StatusCompleted)
	assert.Equal(t, "/library/videos/music/fetched.mp4", job.FilePath)
	assert.Equal(t, "asset-fetched.mp4", job.AssetID)
	require.NotNil(t, job.ResultMetadata)
	assert.Equal(t, "Remote Title", job.ResultMetadata.Title)
	assert.Equal(t, heightCapped(720), job.FormatProfile)
	assert.Empty(t, job.Warning)

	lib.mu.Lock()
	defer lib.mu.Unlock()
	require.Len(t, lib.synthesized, 1)
	assert.Equal(t, testURL(0), lib.synthesized[0].Source)
	assert.Equal(t, "Remote Title", lib.synthesized[0].Title)
}

func TestSynthesisFailureStillCompletes(t *testing.T) {
	m, f, lib := newTestManager(t, 2)
	lib.synthErr = errors.New("probe failed")

	id, err := m.Enqueue(Request{URL: testURL(0)})
	require.NoError(t, err)
	f.release(testURL(0), nil)

	job := waitStatus(t, m, id, StatusCompleted)
	assert.Contains(t, job.Warning, "metadata not synthesized")
	assert.Empty(t, job.Error)
}

func TestEnqueueValidation(t *testing.T) {
	m, _, _ := newTestManager(t, 1)

	for _, bad := range []string{"", "not a url", "ftp://example.com/a", "https:///nohost", "/relative/path"} {
		_, err := m.Enqueue(Request{URL: bad})
		assert.ErrorIs(t, err, ErrInvalidRequest, bad)
	}

	_, err := m.Enqueue(Request{URL: testURL(0), Category: "../escape"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	jobs, err := m.List(Filter{})
	require.NoError(t, err)
	assert.Empty(t, jobs, "rejected requests must not create jobs")
}

func TestUnknownQualityFallsBack(t *testing.T) {
	m, _, _ := newTestManager(t, 1)

	id, err := m.Enqueue(Request{URL: testURL(0), Quality: "8k-hdr"})
	require.NoError(t, err)

	job := mustGet(t, m, id)
	assert.Equal(t, BestProfile, job.FormatProfile)
	assert.Equal(t, "8k-hdr", job.Quality)
	assert.Contains(t, job.Warning, "unrecognized quality")
	assert.Equal(t, "youtube", job.Category)
}

func TestListFilters(t *testing.T) {
	m, _, _ := newTestManager(t, 1)

	a, err := m.Enqueue(Request{URL: testURL(0), Category: "music"})
	require.NoError(t, err)
	b, err := m.Enqueue(Request{URL: testURL(1), Category: "talks"})
	require.NoError(t, err)
	c, err := m.Enqueue(Request{URL: testURL(2), Category: "music"})
	require.NoError(t, err)

	all, err := m.List(Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{a, b, c}, []string{all[0].ID, all[1].ID, all[2].ID})

	music, err := m.List(Filter{Category: "music"})
	require.NoError(t, err)
	assert.Len(t, music, 2)

	queued, err := m.List(Filter{Status: StatusQueued, Category: "music"})
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, c, queued[0].ID)

	counts := m.StatusCounts()
	assert.Equal(t, 1, counts["fetching"])
	assert.Equal(t, 2, counts["queued"])
}

func TestSnapshotsAreCopies(t *testing.T) {
	m, f, _ := newTestManager(t, 1)

	id, err := m.Enqueue(Request{URL: testURL(0)})
	require.NoError(t, err)
	f.release(testURL(0), nil)
	job := waitStatus(t, m, id, StatusCompleted)

	job.ResultMetadata.Title = "mutated"
	*job.FinishedAt = time.Time{}

	again := mustGet(t, m, id)
	assert.Equal(t, "Remote Title", again.ResultMetadata.Title)
	assert.False(t, again.FinishedAt.IsZero())
}

func TestCloseRejectsNewJobs(t *testing.T) {
	f := newGatedFetcher()
	m := NewManager(Config{}, f, &fakeLibrary{})
	m.Start()
	m.Close()

	_, err := m.Enqueue(Request{URL: testURL(0)})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = m.Get("x")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestTransitions(t *testing.T) {
	allowed := [][2]Status{
		{StatusQueued, StatusFetching},
		{StatusQueued, StatusFailed},
		{StatusFetching, StatusCompleted},
		{StatusFetching, StatusFailed},
	}
	all := []Status{StatusQueued, StatusFetching, StatusCompleted, StatusFailed}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed {
				if a[0] == from && a[1] == to {
					want = true
				}
			}
			assert.Equal(t, want, canTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestFormatProfile(t *testing.T) {
	p, ok := FormatProfile("1080P")
	assert.True(t, ok)
	assert.Equal(t, "bestvideo[height<=1080]+bestaudio/best[height<=1080]/best", p)

	p, ok = FormatProfile("")
	assert.True(t, ok)
	assert.Equal(t, BestProfile, p)

	p, ok = FormatProfile("potato")
	assert.False(t, ok)
	assert.Equal(t, BestProfile, p)

	for _, q := range Qualities() {
		_, ok := FormatProfile(q)
		assert.True(t, ok, q)
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("fetching")
	require.NoError(t, err)
	assert.Equal(t, StatusFetching, s)

	_, err = ParseStatus("paused")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
