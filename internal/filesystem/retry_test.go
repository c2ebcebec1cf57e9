package filesystem

import (
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/spf13/afero"
)

// staleFs fails the first n Stat/Open calls with ESTALE.
type staleFs struct {
	afero.Fs
	mu        sync.Mutex
	remaining int
	calls     int
}

func (s *staleFs) fail() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.remaining > 0 {
		s.remaining--
		return &os.PathError{Op: "stat", Path: "x", Err: syscall.ESTALE}
	}
	return nil
}

func (s *staleFs) Stat(name string) (os.FileInfo, error) {
	if err := s.fail(); err != nil {
		return nil, err
	}
	return s.Fs.Stat(name)
}

func (s *staleFs) Open(name string) (afero.File, error) {
	if err := s.fail(); err != nil {
		return nil, err
	}
	return s.Fs.Open(name)
}

type recordingObserver struct {
	attempts, successes, failures, stale int
}

func (r *recordingObserver) ObserveRetryAttempt(string) { r.attempts++ }
func (r *recordingObserver) ObserveRetrySuccess(string) { r.successes++ }
func (r *recordingObserver) ObserveRetryFailure(string) { r.failures++ }
func (r *recordingObserver) ObserveStaleError(string)   { r.stale++ }

func noSleep(t *testing.T) {
	t.Helper()
	original := sleep
	sleep = func(time.Duration) {}
	t.Cleanup(func() { sleep = original })
}

func withObserver(t *testing.T) *recordingObserver {
	t.Helper()
	obs := &recordingObserver{}
	original := defaultObserver
	SetObserver(obs)
	t.Cleanup(func() { SetObserver(original) })
	return obs
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.InitialBackoff != 50*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 50ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 500*time.Millisecond {
		t.Errorf("MaxBackoff = %v, want 500ms", config.MaxBackoff)
	}
}

func TestIsNFSStaleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "ESTALE error", err: syscall.ESTALE, want: true},
		{name: "wrapped ESTALE", err: &os.PathError{Op: "open", Path: "/a", Err: syscall.ESTALE}, want: true},
		{name: "ENOENT error", err: syscall.ENOENT, want: false},
		{name: "generic error", err: os.ErrNotExist, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isNFSStaleError(tt.err)
			if got != tt.want {
				t.Errorf("isNFSStaleError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatWithRetryRecoversFromStaleHandle(t *testing.T) {
	noSleep(t)
	obs := withObserver(t)

	mem := afero.NewMemMapFs()
	if err := afero.WriteFile(mem, "/videos/a.mp4", []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	fsys := &staleFs{Fs: mem, remaining: 2}

	info, err := StatWithRetry(fsys, "/videos/a.mp4", DefaultRetryConfig())
	if err != nil {
		t.Fatalf("StatWithRetry failed: %v", err)
	}
	if info.Size() != 4 {
		t.Errorf("Size = %d, want 4", info.Size())
	}
	if fsys.calls != 3 {
		t.Errorf("calls = %d, want 3", fsys.calls)
	}
	if obs.stale != 2 || obs.attempts != 2 || obs.successes != 1 {
		t.Errorf("observer = %+v, want stale=2 attempts=2 successes=1", *obs)
	}
}

func TestOpenWithRetryGivesUp(t *testing.T) {
	noSleep(t)
	obs := withObserver(t)

	fsys := &staleFs{Fs: afero.NewMemMapFs(), remaining: 10}
	config := RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

	_, err := OpenWithRetry(fsys, "/videos/a.mp4", config)
	if !isNFSStaleError(err) {
		t.Fatalf("expected ESTALE after retries, got %v", err)
	}
	if fsys.calls != 3 {
		t.Errorf("calls = %d, want 3", fsys.calls)
	}
	if obs.failures != 1 {
		t.Errorf("failures = %d, want 1", obs.failures)
	}
}

func TestStatWithRetryDoesNotRetryNotExist(t *testing.T) {
	noSleep(t)
	fsys := &staleFs{Fs: afero.NewMemMapFs()}

	_, err := StatWithRetry(fsys, "/missing.mp4", DefaultRetryConfig())
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if fsys.calls != 1 {
		t.Errorf("calls = %d, want 1", fsys.calls)
	}
}

func TestOpenWithRetryNilObserver(t *testing.T) {
	noSleep(t)
	original := defaultObserver
	SetObserver(nil)
	t.Cleanup(func() { SetObserver(original) })

	mem := afero.NewMemMapFs()
	if err := afero.WriteFile(mem, "/a.mp4", []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := OpenWithRetry(&staleFs{Fs: mem, remaining: 1}, "/a.mp4", DefaultRetryConfig())
	if err != nil {
		t.Fatalf("OpenWithRetry failed: %v", err)
	}
	f.Close()
}
