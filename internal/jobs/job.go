package jobs

import (
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of a job.
type Status string

// Job states.
const (
	StatusQueued    Status = "queued"
	StatusFetching  Status = "fetching"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Progress sources.
const (
	ProgressTransfer  = "transfer"
	ProgressSimulated = "simulated"
)

// CancelledReason is the error recorded on a cancelled job.
const CancelledReason = "cancelled"

var (
	// ErrJobNotFound is returned for unknown job ids.
	ErrJobNotFound = errors.New("job not found")
	// ErrInvalidRequest is returned for malformed enqueue requests.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrClosed is returned once the manager has shut down.
	ErrClosed = errors.New("job manager closed")
)

// Job is a snapshot of one acquisition request.
type Job struct {
	ID              string          `json:"id"`
	SourceURL       string          `json:"sourceUrl"`
	Category        string          `json:"category"`
	Quality         string          `json:"quality"`
	FormatProfile   string          `json:"formatProfile"`
	Status          Status          `json:"status"`
	ProgressPercent float64         `json:"progressPercent"`
	ProgressSource  string          `json:"progressSource,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	StartedAt       *time.Time      `json:"startedAt,omitempty"`
	FinishedAt      *time.Time      `json:"finishedAt,omitempty"`
	Error           string          `json:"error,omitempty"`
	Warning         string          `json:"warning,omitempty"`
	FilePath        string          `json:"filePath,omitempty"`
	AssetID         string          `json:"assetId,omitempty"`
	ResultMetadata  *ResultMetadata `json:"resultMetadata,omitempty"`

	outputTemplate string
}

// ResultMetadata is what the remote source reported about the video.
type ResultMetadata struct {
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
	Uploader string  `json:"uploader,omitempty"`
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Status   Status
	Category string
}

func (f Filter) match(j *Job) bool {
	return (f.Status == "" || j.Status == f.Status) &&
		(f.Category == "" || j.Category == f.Category)
}

// ParseStatus validates a status name.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case "", StatusQueued, StatusFetching, StatusCompleted, StatusFailed:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, s)
	}
}

var transitions = map[Status][]Status{
	StatusQueued:   {StatusFetching, StatusFailed},
	StatusFetching: {StatusCompleted, StatusFailed},
}

func canTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// setStatus moves j to status, rejecting edges outside the lifecycle.
func (j *Job) setStatus(status Status, now time.Time) error {
	if !canTransition(j.Status, status) {
		return fmt.Errorf("job %s: illegal transition %s -> %s", j.ID, j.Status, status)
	}
	j.Status = status
	switch status {
	case StatusFetching:
		j.StartedAt = &now
	case StatusCompleted, StatusFailed:
		j.FinishedAt = &now
	}
	return nil
}

func (j *Job) snapshot() Job {
	c := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	if j.ResultMetadata != nil {
		m := *j.ResultMetadata
		c.ResultMetadata = &m
	}
	return c
}
