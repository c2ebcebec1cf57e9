package library

import "time"

// UncategorizedCategory is assigned to files directly under the videos root.
const UncategorizedCategory = "uncategorized"

// VideoAsset is one playable file, rebuilt from disk on every scan.
type VideoAsset struct {
	ID            string         `json:"id"`
	FilePath      string         `json:"filePath"`
	FileName      string         `json:"fileName"`
	Category      string         `json:"category"`
	FileSizeBytes int64          `json:"fileSizeBytes"`
	DateAdded     time.Time      `json:"dateAdded"`
	HasMetadata   bool           `json:"hasMetadata"`
	Metadata      *VideoMetadata `json:"metadata,omitempty"`

	relPath string
}

// VideoMetadata is the sidecar document stored beside each video.
type VideoMetadata struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Duration      float64       `json:"duration"`
	FileSize      int64         `json:"fileSize"`
	DateAdded     time.Time     `json:"dateAdded"`
	Resolution    string        `json:"resolution"`
	Codec         string        `json:"codec"`
	Bitrate       int64         `json:"bitrate"`
	FrameRate     float64       `json:"frameRate,omitempty"`
	Category      string        `json:"category"`
	Source        string        `json:"source,omitempty"`
	Thumbnail     string        `json:"thumbnail"`
	Description   string        `json:"description,omitempty"`
	Tags          []string      `json:"tags"`
	Chapters      []Chapter     `json:"chapters,omitempty"`
	Subtitles     []string      `json:"subtitles,omitempty"`
	Accessibility Accessibility `json:"accessibility"`
}

// Chapter marks a named position in seconds.
type Chapter struct {
	Title string  `json:"title"`
	Start float64 `json:"start"`
}

// Accessibility flags derived from stream dispositions and subtitle files.
type Accessibility struct {
	HasClosedCaptions   bool `json:"hasClosedCaptions"`
	HasAudioDescription bool `json:"hasAudioDescription"`
}

// ScanResult summarizes one scan or listing pass.
type ScanResult struct {
	// Scanned counts allow-listed files discovered.
	Scanned int `json:"scanned"`
	// Found counts files that had no sidecar.
	Found int `json:"found"`
	// Processed counts syntheses that wrote a sidecar.
	Processed    int          `json:"processed"`
	Errors       int          `json:"errors"`
	Assets       []VideoAsset `json:"assets"`
	ErrorEntries []ErrorEntry `json:"errorEntries"`
}

// ErrorEntry records a per-file failure.
type ErrorEntry struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

func (r *ScanResult) addError(path string, err error) {
	r.ErrorEntries = append(r.ErrorEntries, ErrorEntry{Path: path, Error: err.Error()})
	r.Errors = len(r.ErrorEntries)
}

// SynthesisOptions carries values discovered outside the file itself,
// such as the title reported by a remote source. Empty fields are derived.
type SynthesisOptions struct {
	Source      string
	Title       string
	Description string
}
