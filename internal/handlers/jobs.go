package handlers

import (
	"fmt"
	"net/http"

	"video-library/internal/jobs"

	"github.com/gorilla/mux"
)

// CreateJob enqueues an acquisition job and answers 202 with its id.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req jobs.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", jobs.ErrInvalidRequest, err))
		return
	}

	id, err := h.jobs.Enqueue(req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/jobs/"+id)
	writeJSONStatus(w, http.StatusAccepted, map[string]string{"id": id})
}

// ListJobs returns jobs in creation order, filtered by status and category.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	status, err := jobs.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	list, err := h.jobs.List(jobs.Filter{Status: status, Category: r.URL.Query().Get("category")})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusOK, map[string][]jobs.Job{"jobs": list})
}

// GetJob returns one job snapshot.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusOK, job)
}

// CancelJob cancels a queued job. Jobs past the queue report cancelled=false.
func (h *Handlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	cancelled, err := h.jobs.Cancel(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}
