package handlers

import (
	"context"
	"net/http"
	"time"

	"video-library/internal/jobs"
	"video-library/internal/library"
	"video-library/internal/streaming"
)

// Library is the part of the video library the HTTP surface reads and scans.
type Library interface {
	Categories(ctx context.Context) ([]string, error)
	ListAssets(ctx context.Context, category string) (*library.ScanResult, error)
	ScanAll(ctx context.Context) (*library.ScanResult, error)
	ScanCategory(ctx context.Context, category string) (*library.ScanResult, error)
	Resolve(ctx context.Context, id string) (*library.VideoAsset, error)
	ThumbnailFile(ref string) (string, error)
}

// JobManager accepts and reports acquisition jobs.
type JobManager interface {
	Enqueue(req jobs.Request) (string, error)
	Get(id string) (jobs.Job, error)
	Cancel(id string) (bool, error)
	List(filter jobs.Filter) ([]jobs.Job, error)
	StatusCounts() map[string]int
}

// Streamer frames and writes file responses.
type Streamer interface {
	Stream(path, rangeHeader string) (*streaming.Response, error)
	ServeImage(path, ifNoneMatch string) (*streaming.Response, error)
	Write(ctx context.Context, w http.ResponseWriter, resp *streaming.Response) error
}

// Handlers serves the video library API.
type Handlers struct {
	library  Library
	jobs     JobManager
	streamer Streamer
	started  time.Time
}

// New creates the API handlers.
func New(lib Library, jm JobManager, s Streamer) *Handlers {
	return &Handlers{
		library:  lib,
		jobs:     jm,
		streamer: s,
		started:  time.Now(),
	}
}
