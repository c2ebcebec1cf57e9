package handlers

import (
	"net/http"
	"runtime"
	"time"

	"video-library/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Error   string `json:"error,omitempty"`

	// Library and job summary
	Categories int            `json:"categories"`
	Jobs       map[string]int `json:"jobs"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service. The library root
// being unreadable degrades the service and answers 503.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:       statusHealthy,
		Ready:        true,
		Version:      startup.Version,
		Uptime:       time.Since(h.started).Round(time.Second).String(),
		Jobs:         h.jobs.StatusCounts(),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	categories, err := h.library.Categories(r.Context())
	if err != nil {
		response.Status = statusDegraded
		response.Ready = false
		response.Error = err.Error()
		writeJSONStatus(w, http.StatusServiceUnavailable, response)
		return
	}
	response.Categories = len(categories)

	writeJSONStatus(w, http.StatusOK, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the library root can be read.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if _, err := h.library.Categories(r.Context()); err != nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
		})
		return
	}
	writeJSONStatus(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
