package probe

import (
	"errors"
	"fmt"
	"strings"
)

// ErrProbeFailed is matched by every error returned from this package.
var ErrProbeFailed = errors.New("probe failed")

// Error describes a failed ffprobe or ffmpeg invocation.
type Error struct {
	Op     string // "probe" or "thumbnail"
	Path   string
	Err    error
	Stderr string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += " - " + lastLine(s)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports ErrProbeFailed for any probe error.
func (e *Error) Is(target error) bool { return target == ErrProbeFailed }

// lastLine keeps error strings short; ffmpeg prints its banner before the real failure.
func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
