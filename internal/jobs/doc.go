// Package jobs implements the acquisition job manager.
//
// A Manager owns every job record inside a single goroutine. Enqueue, Get,
// Cancel and List are delivered to that goroutine as messages, and so are
// the progress and completion events reported by fetch workers. No job is
// ever mutated anywhere else, and callers only receive copies.
//
// At most MaxConcurrent jobs are fetching at any time. Queued jobs are
// admitted in FIFO order whenever a job is enqueued or a fetch finishes.
// Only queued jobs can be cancelled; a running fetch always runs to
// completion or failure.
package jobs
