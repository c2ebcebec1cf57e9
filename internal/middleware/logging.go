package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"video-library/internal/logging"
)

// ServiceName identifies the server in access log headers.
const ServiceName = "VideoLibrary/1.0"

// responseWriter captures the status code and body size for access logs.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// Flush forwards to the underlying writer so streamed video keeps moving.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// LoggingConfig holds configuration for the logging middleware
type LoggingConfig struct {
	SkipPaths []string
	// StaticSuffixes mark requests treated as static assets (thumbnails, icons).
	StaticSuffixes  []string
	LogStaticFiles  bool
	LogHealthChecks bool
}

// DefaultLoggingConfig returns the access log configuration used by the server.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:       []string{},
		StaticSuffixes:  []string{"/thumbnail", ".ico", ".png", ".jpg", ".jpeg"},
		LogStaticFiles:  false,
		LogHealthChecks: true,
	}
}

var healthCheckPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/livez":   true,
	"/readyz":  true,
}

// sanitizeLogField strips control characters so request data cannot forge
// log lines or inject terminal escapes. Newlines become spaces.
func sanitizeLogField(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r':
			b.WriteRune(' ')
		case r == '\x00', r == '\x1b':
			continue
		case r < 0x20 && r != '\t':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Logger returns HTTP access logging middleware in W3C Extended Log Format.
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shouldSkip(r.URL.Path, config) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			//nolint:gosec // G706: every request-derived field passes through sanitizeLogField.
			logging.Printf("%s", formatW3C(time.Now().UTC(), r, wrapped, time.Since(start)))
		})
	}
}

// formatW3C renders one access log line:
// date time c-ip cs-method cs-uri-stem cs-uri-query cs(Range) sc-status sc-bytes time-taken sc(Content-Encoding) cs(User-Agent) cs(Referer)
func formatW3C(now time.Time, r *http.Request, rw *responseWriter, took time.Duration) string {
	fields := []string{
		now.Format("2006-01-02"),
		now.Format("15:04:05"),
		orDash(sanitizeLogField(getClientIP(r))),
		sanitizeLogField(r.Method),
		sanitizeLogField(r.URL.Path),
		orDash(sanitizeLogField(r.URL.RawQuery)),
		orDash(escapeW3CField(sanitizeLogField(r.Header.Get("Range")))),
		strconv.Itoa(rw.statusCode),
		strconv.FormatInt(rw.bytesWritten, 10),
		strconv.FormatInt(took.Milliseconds(), 10),
		orDash(rw.Header().Get("Content-Encoding")),
		orDash(escapeW3CField(sanitizeLogField(r.Header.Get("User-Agent")))),
		orDash(sanitizeLogField(r.Header.Get("Referer"))),
	}
	return strings.Join(fields, " ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shouldSkip(path string, config LoggingConfig) bool {
	for _, skipPath := range config.SkipPaths {
		if strings.HasPrefix(path, skipPath) {
			return true
		}
	}

	if !config.LogHealthChecks && healthCheckPaths[path] {
		return true
	}

	if !config.LogStaticFiles {
		lower := strings.ToLower(path)
		for _, suffix := range config.StaticSuffixes {
			if strings.HasSuffix(lower, suffix) {
				return true
			}
		}
	}

	return false
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// escapeW3CField quotes values containing whitespace or quotes, doubling inner quotes.
func escapeW3CField(s string) string {
	if strings.ContainsAny(s, " \t\"") {
		return "\"" + strings.ReplaceAll(s, "\"", "\"\"") + "\""
	}
	return s
}
