package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Request describes one remote fetch.
type Request struct {
	URL string
	// FormatProfile is a yt-dlp format selector.
	FormatProfile string
	// OutputTemplate is a yt-dlp output template including the directory.
	OutputTemplate string
}

// Progress is one progress observation in percent.
type Progress struct {
	Percent   float64
	Simulated bool
}

// Result describes the fetched file.
type Result struct {
	FilePath    string  `json:"filepath"`
	Title       string  `json:"title"`
	Duration    float64 `json:"duration"`
	Uploader    string  `json:"uploader"`
	Description string  `json:"description"`
	WebpageURL  string  `json:"webpage_url"`
}

// Fetcher downloads a remote video. progress may be called from the
// calling goroutine only and must not block.
type Fetcher interface {
	Fetch(ctx context.Context, req Request, progress func(Progress)) (*Result, error)
}

// ErrFetchFailed is matched by every fetch failure.
var ErrFetchFailed = errors.New("fetch failed")

// FetchError carries the tool's diagnostic output.
type FetchError struct {
	URL    string
	Err    error
	Stderr string
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	if s := lastErrorLine(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is reports ErrFetchFailed for any fetch error.
func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }

// lastErrorLine prefers yt-dlp's "ERROR:" line over trailing noise.
func lastErrorLine(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasPrefix(lines[i], "ERROR:") {
			return strings.TrimSpace(strings.TrimPrefix(lines[i], "ERROR:"))
		}
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
