package mediatypes

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// FileType represents the type of a library file.
type FileType string

const (
	// FileTypeVideo represents a playable video container.
	FileTypeVideo FileType = "video"
	// FileTypeImage represents a still image such as a thumbnail.
	FileTypeImage FileType = "image"
	// FileTypeSubtitle represents a sidecar subtitle track.
	FileTypeSubtitle FileType = "subtitle"
	// FileTypeSidecar represents a JSON metadata sidecar.
	FileTypeSidecar FileType = "sidecar"
	// FileTypeOther represents an unknown or unsupported file type.
	FileTypeOther FileType = "other"
)

// SidecarExtension is the extension of the metadata file stored beside each video.
const SidecarExtension = ".json"

// VideoExtensions is the container allow-list used when scanning the library.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".m4v":  true,
	".mkv":  true,
	".webm": true,
	".mov":  true,
	".avi":  true,
	".wmv":  true,
	".flv":  true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
	".ts":   true,
}

// ImageExtensions maps file extensions to whether they are supported image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// SubtitleExtensions lists subtitle files recognised beside a video.
var SubtitleExtensions = map[string]bool{
	".srt": true,
	".vtt": true,
	".ass": true,
	".ssa": true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	// Videos
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".ts":   "video/mp2t",

	// Images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",

	// Subtitles
	".srt": "application/x-subrip",
	".vtt": "text/vtt",

	".json": "application/json",
}

// Ext returns the lower-cased extension of name, including the leading dot.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// GetFileType returns the FileType for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".mp4").
func GetFileType(ext string) FileType {
	switch {
	case VideoExtensions[ext]:
		return FileTypeVideo
	case ImageExtensions[ext]:
		return FileTypeImage
	case SubtitleExtensions[ext]:
		return FileTypeSubtitle
	case ext == SidecarExtension:
		return FileTypeSidecar
	}
	return FileTypeOther
}

// IsVideoFile reports whether name carries an allow-listed container extension.
func IsVideoFile(name string) bool {
	return VideoExtensions[Ext(name)]
}

// GetMimeType returns the MIME type for a given file extension.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// ContentType resolves the Content-Type for a file, preferring the extension
// table and falling back to sniffing the leading bytes of r.
// r may be nil, in which case only the extension is consulted.
func ContentType(name string, r io.Reader) string {
	if mime, ok := MimeTypes[Ext(name)]; ok {
		return mime
	}
	if r == nil {
		return "application/octet-stream"
	}
	return Detect(r)
}

// Detect sniffs the content type of r.
func Detect(r io.Reader) string {
	mtype, err := mimetype.DetectReader(r)
	if err != nil || mtype == nil {
		return "application/octet-stream"
	}
	return mtype.String()
}

// LooksLikeVideo sniffs r and reports whether it detected a video container.
func LooksLikeVideo(r io.Reader) bool {
	mtype, err := mimetype.DetectReader(r)
	if err != nil || mtype == nil {
		return false
	}
	for m := mtype; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "video/") {
			return true
		}
	}
	return false
}
