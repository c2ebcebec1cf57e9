package streaming

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"video-library/internal/logging"
)

var (
	// ErrWriteTimeout means a single write, or the whole stream, ran too long.
	ErrWriteTimeout = errors.New("write timeout exceeded")
	// ErrClientGone means the request context ended before the body was sent.
	ErrClientGone = errors.New("client disconnected")
	// ErrStreamCanceled means the writer was closed.
	ErrStreamCanceled = errors.New("stream canceled")
)

// TimeoutWriterConfig bounds how long a response body may take.
type TimeoutWriterConfig struct {
	// WriteTimeout bounds one write to the client.
	WriteTimeout time.Duration
	// IdleTimeout bounds the gap between successful writes.
	IdleTimeout time.Duration
	// MaxDuration bounds the whole stream; zero means unlimited.
	MaxDuration time.Duration
	// ChunkSize splits large writes and flushes between them; zero writes as received.
	ChunkSize int
}

// DefaultTimeoutWriterConfig returns the settings used for video bodies.
func DefaultTimeoutWriterConfig() TimeoutWriterConfig {
	return TimeoutWriterConfig{
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ChunkSize:    256 * 1024,
	}
}

// TimeoutWriter wraps an http.ResponseWriter so a stalled client cannot
// hold a stream open forever.
type TimeoutWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	ctx     context.Context
	cancel  context.CancelFunc
	config  TimeoutWriterConfig

	mu        sync.Mutex
	start     time.Time
	lastWrite time.Time
	written   int64
	closed    bool
	timedOut  bool
}

// NewTimeoutWriter creates a TimeoutWriter bound to ctx.
func NewTimeoutWriter(ctx context.Context, w http.ResponseWriter, config TimeoutWriterConfig) *TimeoutWriter {
	writerCtx, cancel := context.WithCancel(ctx)
	now := time.Now()

	tw := &TimeoutWriter{
		w:         w,
		ctx:       writerCtx,
		cancel:    cancel,
		config:    config,
		start:     now,
		lastWrite: now,
	}
	if f, ok := w.(http.Flusher); ok {
		tw.flusher = f
	}

	if config.IdleTimeout > 0 {
		go tw.watchIdle()
	}
	return tw
}

// Write implements io.Writer.
func (tw *TimeoutWriter) Write(p []byte) (int, error) {
	tw.mu.Lock()
	closed := tw.closed
	tw.mu.Unlock()
	if closed {
		return 0, ErrStreamCanceled
	}
	if err := tw.ctx.Err(); err != nil {
		return 0, tw.contextError()
	}
	if tw.config.MaxDuration > 0 && time.Since(tw.start) > tw.config.MaxDuration {
		return 0, ErrWriteTimeout
	}

	if tw.config.ChunkSize <= 0 || len(p) <= tw.config.ChunkSize {
		return tw.writeOnce(p)
	}

	total := 0
	for len(p) > 0 {
		if tw.ctx.Err() != nil {
			return total, tw.contextError()
		}
		n := min(tw.config.ChunkSize, len(p))
		w, err := tw.writeOnce(p[:n])
		total += w
		if err != nil {
			return total, err
		}
		p = p[n:]
		if tw.flusher != nil {
			tw.flusher.Flush()
		}
	}
	return total, nil
}

// writeOnce performs one write, giving up after WriteTimeout.
func (tw *TimeoutWriter) writeOnce(p []byte) (int, error) {
	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := tw.w.Write(p)
		done <- result{n, err}
	}()

	var timeout <-chan time.Time
	if tw.config.WriteTimeout > 0 {
		timer := time.NewTimer(tw.config.WriteTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case r := <-done:
		if r.err == nil {
			tw.mu.Lock()
			tw.lastWrite = time.Now()
			tw.written += int64(r.n)
			tw.mu.Unlock()
		}
		return r.n, r.err
	case <-timeout:
		tw.mu.Lock()
		tw.timedOut = true
		tw.mu.Unlock()
		tw.cancel()
		return 0, ErrWriteTimeout
	case <-tw.ctx.Done():
		return 0, tw.contextError()
	}
}

func (tw *TimeoutWriter) watchIdle() {
	ticker := time.NewTicker(tw.config.IdleTimeout / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tw.mu.Lock()
			idle := time.Since(tw.lastWrite)
			closed := tw.closed
			if idle > tw.config.IdleTimeout {
				tw.timedOut = true
			}
			expired := tw.timedOut
			tw.mu.Unlock()

			if closed {
				return
			}
			if expired {
				logging.Warn("Stream idle for %v, closing", idle.Round(time.Second))
				tw.cancel()
				return
			}
		case <-tw.ctx.Done():
			return
		}
	}
}

func (tw *TimeoutWriter) contextError() error {
	tw.mu.Lock()
	closed, timedOut := tw.closed, tw.timedOut
	tw.mu.Unlock()

	switch {
	case timedOut:
		return ErrWriteTimeout
	case closed:
		return ErrStreamCanceled
	default:
		return ErrClientGone
	}
}

// Close stops the writer. It is safe to call more than once.
func (tw *TimeoutWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if !tw.closed {
		tw.closed = true
		tw.cancel()
	}
	return nil
}

// Stats returns the bytes written and the time since creation.
func (tw *TimeoutWriter) Stats() (int64, time.Duration) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.written, time.Since(tw.start)
}

// CopyWithTimeout copies r to w through a TimeoutWriter and returns the
// number of bytes delivered to the client.
func CopyWithTimeout(ctx context.Context, w http.ResponseWriter, r io.Reader, config TimeoutWriterConfig) (int64, error) {
	tw := NewTimeoutWriter(ctx, w, config)
	defer tw.Close()

	_, err := io.Copy(tw, r)
	written, elapsed := tw.Stats()
	logging.Debug("Stream finished: %d bytes in %v", written, elapsed.Round(time.Millisecond))
	return written, err
}

// interruptReason classifies a body copy error for metrics.
func interruptReason(err error) string {
	switch {
	case errors.Is(err, ErrClientGone), errors.Is(err, context.Canceled):
		return "client_gone"
	case errors.Is(err, ErrWriteTimeout), errors.Is(err, ErrStreamCanceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "io_error"
	}
}
