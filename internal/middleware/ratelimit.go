package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"video-library/internal/logging"
	"video-library/internal/metrics"
)

// RateLimitConfig configures the token bucket applied to mutating API calls.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	// Methods limits only these methods; empty means every method.
	Methods []string
}

// DefaultRateLimitConfig limits POST and DELETE to 10 rps with a burst of 20.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		Burst:             20,
		Methods:           []string{http.MethodPost, http.MethodDelete},
	}
}

// RateLimit returns middleware that rejects requests over the shared budget
// with 429 and a Retry-After hint. A non-positive rate disables limiting.
func RateLimit(config RateLimitConfig) func(http.Handler) http.Handler {
	if config.RequestsPerSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	burst := config.Burst
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limitsMethod(config.Methods, r.Method) || limiter.Allow() {
				next.ServeHTTP(w, r)
				return
			}

			path := routeLabel(r)
			metrics.HTTPRateLimited.WithLabelValues(path).Inc()
			logging.Debug("Rate limited %s %s", r.Method, sanitizeLogField(r.URL.Path))

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "too many requests"})
		})
	}
}

func limitsMethod(methods []string, method string) bool {
	if len(methods) == 0 {
		return true
	}
	for _, m := range methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}
