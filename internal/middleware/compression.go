package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

// CompressionConfig holds configuration for the compression middleware
type CompressionConfig struct {
	// MinSize is the minimum response size in bytes before compression is applied
	MinSize int
	// CompressibleTypes lists media types eligible for gzip.
	CompressibleTypes []string
	// SkipPathSuffixes bypass the middleware entirely; media bodies are
	// already compressed and must keep their byte offsets.
	SkipPathSuffixes []string
}

// DefaultCompressionConfig compresses API JSON and plain text only.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize: 1024,
		CompressibleTypes: []string{
			"application/json",
			"text/plain",
			"text/html",
		},
		SkipPathSuffixes: []string{"/stream", "/thumbnail"},
	}
}

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.DefaultCompression)
		return w
	},
}

// gzipResponseWriter buffers up to MinSize bytes before deciding whether to
// compress, then either streams through gzip or passes the body untouched.
type gzipResponseWriter struct {
	http.ResponseWriter
	gzipWriter *gzip.Writer
	config     CompressionConfig
	buffer     []byte
	statusCode int
	decided    bool
}

func newGzipResponseWriter(w http.ResponseWriter, config CompressionConfig) *gzipResponseWriter {
	return &gzipResponseWriter{
		ResponseWriter: w,
		config:         config,
		statusCode:     http.StatusOK,
		buffer:         make([]byte, 0, config.MinSize+1),
	}
}

func (g *gzipResponseWriter) WriteHeader(statusCode int) {
	if g.decided {
		return
	}
	g.statusCode = statusCode
}

func (g *gzipResponseWriter) Write(data []byte) (int, error) {
	if g.decided {
		if g.gzipWriter != nil {
			return g.gzipWriter.Write(data)
		}
		return g.ResponseWriter.Write(data)
	}

	g.buffer = append(g.buffer, data...)
	if len(g.buffer) > g.config.MinSize {
		if err := g.decide(); err != nil {
			return 0, err
		}
	}
	return len(data), nil
}

func (g *gzipResponseWriter) compressible() bool {
	if g.statusCode == http.StatusPartialContent || g.statusCode == http.StatusNoContent ||
		g.statusCode == http.StatusNotModified {
		return false
	}
	if g.Header().Get("Content-Encoding") != "" || g.Header().Get("Content-Range") != "" {
		return false
	}

	mediaType, _, _ := strings.Cut(g.Header().Get("Content-Type"), ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if mediaType == "" {
		return false
	}
	for _, t := range g.config.CompressibleTypes {
		if mediaType == t {
			return true
		}
	}
	return false
}

// decide writes the status line and flushes the buffered prefix.
func (g *gzipResponseWriter) decide() error {
	if g.decided {
		return nil
	}
	g.decided = true

	buf := g.buffer
	g.buffer = nil

	if len(buf) < g.config.MinSize || !g.compressible() {
		g.ResponseWriter.WriteHeader(g.statusCode)
		_, err := g.ResponseWriter.Write(buf)
		return err
	}

	g.Header().Del("Content-Length")
	g.Header().Set("Content-Encoding", "gzip")
	g.Header().Add("Vary", "Accept-Encoding")

	g.gzipWriter = gzipWriterPool.Get().(*gzip.Writer)
	g.gzipWriter.Reset(g.ResponseWriter)

	g.ResponseWriter.WriteHeader(g.statusCode)
	_, err := g.gzipWriter.Write(buf)
	return err
}

// Close flushes any pending output and returns the gzip writer to the pool.
func (g *gzipResponseWriter) Close() error {
	err := g.decide()
	if g.gzipWriter != nil {
		if cerr := g.gzipWriter.Close(); err == nil {
			err = cerr
		}
		gzipWriterPool.Put(g.gzipWriter)
		g.gzipWriter = nil
	}
	return err
}

func (g *gzipResponseWriter) Flush() {
	_ = g.decide()
	if g.gzipWriter != nil {
		_ = g.gzipWriter.Flush()
	}
	if flusher, ok := g.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Compression returns a middleware that gzips eligible responses.
func Compression(config CompressionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bypassCompression(r, config) {
				next.ServeHTTP(w, r)
				return
			}

			gzw := newGzipResponseWriter(w, config)
			defer gzw.Close()

			next.ServeHTTP(gzw, r)
		})
	}
}

func bypassCompression(r *http.Request, config CompressionConfig) bool {
	if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		return true
	}
	if r.Header.Get("Range") != "" || r.Header.Get("Upgrade") != "" {
		return true
	}
	if r.Method == http.MethodHead {
		return true
	}
	for _, suffix := range config.SkipPathSuffixes {
		if strings.HasSuffix(r.URL.Path, suffix) {
			return true
		}
	}
	return false
}
