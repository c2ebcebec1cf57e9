package jobs

import (
	"strconv"
	"strings"
)

// BestProfile is used for "best" and for unrecognized qualities. It merges
// into mp4, the library's canonical container.
const BestProfile = "bestvideo+bestaudio/best"

var qualityProfiles = map[string]string{
	"":      BestProfile,
	"best":  BestProfile,
	"2160p": heightCapped(2160),
	"1440p": heightCapped(1440),
	"1080p": heightCapped(1080),
	"720p":  heightCapped(720),
	"480p":  heightCapped(480),
	"audio": "bestaudio/best",
}

func heightCapped(h int) string {
	n := strconv.Itoa(h)
	return "bestvideo[height<=" + n + "]+bestaudio/best[height<=" + n + "]/best"
}

// FormatProfile maps a quality name to a yt-dlp format selector. Unknown
// names fall back to BestProfile and report false.
func FormatProfile(quality string) (string, bool) {
	profile, ok := qualityProfiles[strings.ToLower(strings.TrimSpace(quality))]
	if !ok {
		return BestProfile, false
	}
	return profile, true
}

// Qualities lists the recognized quality names.
func Qualities() []string {
	return []string{"best", "2160p", "1440p", "1080p", "720p", "480p", "audio"}
}
