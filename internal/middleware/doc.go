// Package middleware provides HTTP middleware for the video library server.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics labelled by route template
//   - Gzip compression for JSON and text (never video, images or ranges)
//   - Token-bucket rate limiting for mutating API calls
package middleware
