// Package main is the entry point for the video library server.
//
// The server keeps a directory tree of videos grouped by category, writes a
// JSON sidecar and thumbnail for every video that lacks one, downloads new
// videos with yt-dlp through a bounded job queue, and streams files to
// clients with HTTP Range support.
//
// # Application Lifecycle
//
//  1. Configuration Loading: environment variables, library directories, tool checks
//  2. Log file setup (optional, rotated)
//  3. Component Initialization: metrics, probe, library, job manager, collector
//  4. HTTP Server Setup: routes, middleware, server start
//  5. Graceful Shutdown: on SIGINT/SIGTERM stop HTTP, stop the collector and
//     wait for running downloads within SHUTDOWN_TIMEOUT
//
// # External Tools
//
//   - ffprobe: duration, resolution, codec, chapters and dispositions
//   - ffmpeg: thumbnail frame extraction
//   - yt-dlp: remote acquisition
//
// Missing tools are reported at startup and only fail the operations that need them.
package main
