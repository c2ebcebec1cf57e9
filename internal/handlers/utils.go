package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"video-library/internal/jobs"
	"video-library/internal/library"
	"video-library/internal/logging"
	"video-library/internal/streaming"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// writeJSON encodes v as JSON and writes it to the response writer.
// Encoding and write errors are logged; nothing else can be done once
// the status line is out.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONStatus writes v as JSON with the given status code.
func writeJSONStatus(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, v)
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONStatus(w, statusCode, map[string]string{"error": message})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, library.ErrAssetNotFound),
		errors.Is(err, library.ErrCategoryNotFound),
		errors.Is(err, jobs.ErrJobNotFound),
		errors.Is(err, streaming.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, library.ErrInvalidCategory),
		errors.Is(err, jobs.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, jobs.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		// nginx convention for a client that closed the connection.
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err at a level matching its status and writes the JSON error body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	switch {
	case status >= http.StatusInternalServerError:
		logging.Error("%s %s: %v", r.Method, r.URL.Path, err)
	default:
		logging.Debug("%s %s: %v", r.Method, r.URL.Path, err)
	}

	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = http.StatusText(status)
	}
	writeJSONError(w, message, status)
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}
