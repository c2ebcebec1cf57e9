// Package streaming frames video files and thumbnails as HTTP responses.
//
// Stream answers 200 with the whole file when no Range header is given, and
// 206 with exactly the requested window for a single "bytes=start-end" range.
// An open-ended range is capped to a chunk window that grows with the file
// size. Multi-range, suffix and malformed headers, and ranges outside the
// file, all answer 416 with "Content-Range: bytes */size" and no body.
//
// ServeImage serves a thumbnail with an ETag built from modification time and
// size, answering 304 when If-None-Match matches.
//
// Write copies a framed body through a TimeoutWriter so a stalled client
// cannot hold a file open forever. Errors after the headers are committed are
// logged and counted; the status already sent cannot change.
package streaming
