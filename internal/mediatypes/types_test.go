package mediatypes

import (
	"bytes"
	"testing"
)

func TestGetFileType(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		want FileType
	}{
		{name: "MP4 video", ext: ".mp4", want: FileTypeVideo},
		{name: "MKV video", ext: ".mkv", want: FileTypeVideo},
		{name: "WebM video", ext: ".webm", want: FileTypeVideo},
		{name: "JPEG image", ext: ".jpg", want: FileTypeImage},
		{name: "WebP image", ext: ".webp", want: FileTypeImage},
		{name: "SRT subtitle", ext: ".srt", want: FileTypeSubtitle},
		{name: "JSON sidecar", ext: ".json", want: FileTypeSidecar},
		{name: "Unknown extension", ext: ".xyz", want: FileTypeOther},
		{name: "Empty extension", ext: "", want: FileTypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetFileType(tt.ext)
			if got != tt.want {
				t.Errorf("GetFileType(%q) = %v, want %v", tt.ext, got, tt.want)
			}
		})
	}
}

func TestIsVideoFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"movie.mp4", true},
		{"Movie.MKV", true},
		{"clip.webm", true},
		{"movie.json", false},
		{"poster.jpg", false},
		{"README", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsVideoFile(tt.name); got != tt.want {
				t.Errorf("IsVideoFile(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestGetMimeType(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".mp4", "video/mp4"},
		{".mkv", "video/x-matroska"},
		{".jpg", "image/jpeg"},
		{".unknown", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			if got := GetMimeType(tt.ext); got != tt.want {
				t.Errorf("GetMimeType(%q) = %q, want %q", tt.ext, got, tt.want)
			}
		})
	}
}

func TestContentTypePrefersExtension(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	if got := ContentType("clip.mp4", bytes.NewReader(png)); got != "video/mp4" {
		t.Errorf("ContentType with known extension = %q, want video/mp4", got)
	}
}

func TestContentTypeSniffsUnknownExtension(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	if got := ContentType("thumb.bin", bytes.NewReader(png)); got != "image/png" {
		t.Errorf("ContentType sniff = %q, want image/png", got)
	}
	if got := ContentType("thumb.bin", nil); got != "application/octet-stream" {
		t.Errorf("ContentType without reader = %q, want application/octet-stream", got)
	}
}

func TestLooksLikeVideo(t *testing.T) {
	// Minimal ISO BMFF header: size, "ftyp", major brand "isom".
	mp4 := []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm', 0x00, 0x00, 0x02, 0x00, 'i', 's', 'o', 'm', 'i', 's', 'o', '2'}
	if !LooksLikeVideo(bytes.NewReader(mp4)) {
		t.Error("expected MP4 header to be detected as video")
	}
	if LooksLikeVideo(bytes.NewReader([]byte("plain text content"))) {
		t.Error("plain text should not be detected as video")
	}
}
