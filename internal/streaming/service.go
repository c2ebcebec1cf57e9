package streaming

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"video-library/internal/filesystem"
	"video-library/internal/logging"
	"video-library/internal/mediatypes"
	"video-library/internal/metrics"

	"github.com/spf13/afero"
)

var (
	// ErrNotFound means the file to serve does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrRangeNotSatisfiable means the range lies outside the file.
	ErrRangeNotSatisfiable = errors.New("range not satisfiable")
	// ErrMalformedRange means the Range header could not be parsed.
	ErrMalformedRange = errors.New("malformed range")
)

const (
	videoCacheControl = "public, max-age=3600"
	imageCacheControl = "public, max-age=86400"

	kindVideo = "video"
	kindImage = "image"
)

const (
	mib = 1 << 20
	gib = 1 << 30
)

// ChunkSize returns the window served for an open-ended range on a file of
// the given size. Larger files get larger windows.
func ChunkSize(size int64) int64 {
	switch {
	case size < 50*mib:
		return 1 * mib
	case size < 500*mib:
		return 2 * mib
	case size < 2*gib:
		return 5 * mib
	default:
		return 10 * mib
	}
}

// Response is a framed HTTP response. Body is nil for responses without
// content and must be closed by the caller otherwise.
type Response struct {
	Status        int
	Header        http.Header
	ContentLength int64
	Body          io.ReadCloser

	kind string
}

// Close releases the body without sending it.
func (r *Response) Close() error {
	if r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

// Service serves files from a filesystem. It holds no per-request state.
type Service struct {
	fs     afero.Fs
	retry  filesystem.RetryConfig
	writer TimeoutWriterConfig
}

// NewService creates a Service reading from fsys.
func NewService(fsys afero.Fs) *Service {
	return &Service{
		fs:     fsys,
		retry:  filesystem.DefaultRetryConfig(),
		writer: DefaultTimeoutWriterConfig(),
	}
}

// WithWriterConfig overrides the timeouts used by Write.
func (s *Service) WithWriterConfig(cfg TimeoutWriterConfig) *Service {
	s.writer = cfg
	return s
}

func (s *Service) open(path string) (afero.File, os.FileInfo, error) {
	f, err := filesystem.OpenWithRetry(s.fs, path, s.retry)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
	}
	return f, info, nil
}

// Stream frames path for an optional Range header. A missing file is an
// error; an unsatisfiable or malformed range is a 416 response.
func (s *Service) Stream(path, rangeHeader string) (*Response, error) {
	f, info, err := s.open(path)
	if err != nil {
		return nil, err
	}
	size := info.Size()

	h := http.Header{}
	h.Set("Content-Type", mediatypes.ContentType(path, io.NewSectionReader(f, 0, size)))
	h.Set("Accept-Ranges", "bytes")
	h.Set("Cache-Control", videoCacheControl)
	h.Set("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))

	if strings.TrimSpace(rangeHeader) == "" {
		return &Response{Status: http.StatusOK, Header: h, ContentLength: size, Body: f, kind: kindVideo}, nil
	}

	start, end, err := ParseRange(rangeHeader, size)
	if err != nil {
		f.Close()
		logging.Debug("Range %q rejected for %s (%d bytes): %v", rangeHeader, path, size, err)
		h.Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		return &Response{Status: http.StatusRequestedRangeNotSatisfiable, Header: h, kind: kindVideo}, nil
	}

	length := end - start + 1
	h.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	return &Response{
		Status:        http.StatusPartialContent,
		Header:        h,
		ContentLength: length,
		Body:          sectionBody{Reader: io.NewSectionReader(f, start, length), Closer: f},
		kind:          kindVideo,
	}, nil
}

type sectionBody struct {
	io.Reader
	io.Closer
}

// ParseRange parses a single "bytes=start-end" range against size. A
// missing end is filled with the chunk window for the file size. The
// result satisfies 0 <= start <= end < size.
func ParseRange(header string, size int64) (int64, int64, error) {
	value := strings.TrimSpace(header)
	if len(value) < len("bytes=") || !strings.EqualFold(value[:len("bytes=")], "bytes=") {
		return 0, 0, ErrMalformedRange
	}

	byteRange := strings.TrimSpace(value[len("bytes="):])
	if byteRange == "" || strings.Contains(byteRange, ",") {
		return 0, 0, ErrMalformedRange
	}

	startStr, endStr, ok := strings.Cut(byteRange, "-")
	if !ok {
		return 0, 0, ErrMalformedRange
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)

	// Suffix ranges (bytes=-N) are not served.
	if startStr == "" {
		return 0, 0, ErrMalformedRange
	}

	start, err := parseOffset(startStr)
	if err != nil {
		return 0, 0, err
	}

	var end int64
	if endStr == "" {
		end = min(start+ChunkSize(size)-1, size-1)
	} else if end, err = parseOffset(endStr); err != nil {
		return 0, 0, err
	}

	if start >= size || end < start || end >= size {
		return 0, 0, ErrRangeNotSatisfiable
	}
	return start, end, nil
}

func parseOffset(s string) (int64, error) {
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, ErrMalformedRange
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrMalformedRange
	}
	return v, nil
}

// ETag derives a validator from modification time and size.
func ETag(info os.FileInfo) string {
	return fmt.Sprintf(`"%x-%x"`, info.ModTime().UnixNano(), info.Size())
}

// ServeImage frames a still image with whole-file caching headers.
func (s *Service) ServeImage(path, ifNoneMatch string) (*Response, error) {
	f, info, err := s.open(path)
	if err != nil {
		return nil, err
	}

	etag := ETag(info)
	h := http.Header{}
	h.Set("ETag", etag)
	h.Set("Cache-Control", imageCacheControl)
	h.Set("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))

	if etagMatches(ifNoneMatch, etag) {
		f.Close()
		return &Response{Status: http.StatusNotModified, Header: h, kind: kindImage}, nil
	}

	h.Set("Content-Type", mediatypes.ContentType(path, io.NewSectionReader(f, 0, info.Size())))
	return &Response{Status: http.StatusOK, Header: h, ContentLength: info.Size(), Body: f, kind: kindImage}, nil
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

// Write sends resp. Once headers are out a copy error cannot change the
// status, so it is logged and returned for the caller's information only.
func (s *Service) Write(ctx context.Context, w http.ResponseWriter, resp *Response) error {
	kind := resp.kind
	if kind == "" {
		kind = kindVideo
	}
	metrics.StreamResponsesTotal.WithLabelValues(kind, strconv.Itoa(resp.Status)).Inc()

	for k, v := range resp.Header {
		w.Header()[k] = v
	}
	if resp.Body != nil {
		w.Header().Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}
	w.WriteHeader(resp.Status)

	if resp.Body == nil {
		return nil
	}
	defer resp.Body.Close()

	start := time.Now()
	n, err := CopyWithTimeout(ctx, w, resp.Body, s.writer)
	metrics.StreamBytesTotal.WithLabelValues(kind).Add(float64(n))
	if err != nil {
		reason := interruptReason(err)
		metrics.StreamInterruptedTotal.WithLabelValues(reason).Inc()
		if reason == "client_gone" {
			logging.Debug("Client went away after %d/%d bytes: %v", n, resp.ContentLength, err)
		} else {
			logging.Warn("Stream interrupted after %d/%d bytes (%v): %v", n, resp.ContentLength, time.Since(start).Round(time.Millisecond), err)
		}
		return err
	}
	return nil
}
