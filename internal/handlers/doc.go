// Package handlers provides HTTP request handlers for the video library API.
//
// It includes handlers for:
//   - Category listing, library listing and scans
//   - Asset lookup, Range-aware streaming and thumbnails
//   - Acquisition jobs (enqueue, list, inspect, cancel)
//   - Health checks, version and metrics
package handlers
