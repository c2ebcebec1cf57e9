// Package mediatypes provides shared file classification helpers for the
// video library.
//
// It holds the container allow-list consulted by the scanner, the image and
// subtitle extension sets, and MIME resolution for HTTP responses.
//
//	ext := mediatypes.Ext(filename)
//	if mediatypes.GetFileType(ext) == mediatypes.FileTypeVideo {
//	    // scan it
//	}
//
// ContentType prefers the extension table and falls back to content sniffing
// (github.com/gabriel-vasile/mimetype) for files with unknown extensions:
//
//	ct := mediatypes.ContentType(name, file)
package mediatypes
