package library

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"video-library/internal/logging"
	"video-library/internal/mediatypes"
	"video-library/internal/metrics"
	"video-library/internal/probe"

	"github.com/spf13/afero"
)

// Synthesize probes asset, renders its thumbnail and writes its sidecar.
// Nothing is published unless every step succeeds.
func (l *Library) Synthesize(ctx context.Context, asset *VideoAsset, opts SynthesisOptions) (*VideoMetadata, error) {
	start := time.Now()
	status := "success"
	defer func() {
		metrics.SynthesisTotal.WithLabelValues(status).Inc()
		metrics.SynthesisDuration.Observe(time.Since(start).Seconds())
	}()

	info, err := l.prober.Probe(ctx, asset.FilePath)
	if err != nil {
		status = "error_probe"
		return nil, &SynthesisError{Path: asset.FilePath, Stage: "probe", Err: err}
	}

	thumbDir := l.thumbnailDir(asset)
	name := strings.TrimSuffix(asset.FileName, filepath.Ext(asset.FileName))
	thumbs, err := l.prober.Thumbnail(ctx, asset.FilePath, thumbDir, probe.ThumbnailOptions{
		Name:     name,
		Duration: info.Duration,
	})
	if err != nil {
		status = "error_thumbnail"
		return nil, &SynthesisError{Path: asset.FilePath, Stage: "thumbnail", Err: err}
	}

	meta := l.buildMetadata(asset, info, opts)
	if len(thumbs) > 0 {
		if rel, err := filepath.Rel(l.thumbsDir, thumbs[0]); err == nil {
			meta.Thumbnail = filepath.ToSlash(rel)
		}
	}

	if err := l.writeSidecar(asset.FilePath, meta); err != nil {
		status = "error_write"
		for _, t := range thumbs {
			if rmErr := l.fs.Remove(t); rmErr != nil {
				logging.Debug("Failed to remove thumbnail %s: %v", t, rmErr)
			}
		}
		return nil, &SynthesisError{Path: asset.FilePath, Stage: "write", Err: err}
	}

	logging.Debug("Synthesized metadata for %s (%s, %s) in %v",
		asset.FilePath, meta.Resolution, meta.Codec, time.Since(start).Round(time.Millisecond))
	return meta, nil
}

// thumbnailDir mirrors the asset's directory under the thumbnails root.
func (l *Library) thumbnailDir(asset *VideoAsset) string {
	rel := asset.relPath
	if rel == "" {
		if r, err := filepath.Rel(l.videosDir, asset.FilePath); err == nil {
			rel = r
		}
	}
	dir := filepath.Dir(rel)
	if dir == "." {
		dir = UncategorizedCategory
	}
	return filepath.Join(l.thumbsDir, dir)
}

func (l *Library) buildMetadata(asset *VideoAsset, info *probe.Info, opts SynthesisOptions) *VideoMetadata {
	title := opts.Title
	if title == "" {
		title = DeriveTitle(asset.FileName)
	}

	meta := &VideoMetadata{
		ID:          asset.ID,
		Title:       title,
		Duration:    info.Duration,
		FileSize:    asset.FileSizeBytes,
		DateAdded:   asset.DateAdded,
		Resolution:  resolution(info.Width, info.Height),
		Codec:       info.Codec,
		Bitrate:     info.Bitrate,
		FrameRate:   info.FrameRate,
		Category:    asset.Category,
		Source:      opts.Source,
		Description: opts.Description,
		Tags:        DeriveTags(asset.Category, asset.FileName, asset.DateAdded),
		Subtitles:   append([]string(nil), info.SubtitleTracks...),
		Accessibility: Accessibility{
			HasClosedCaptions:   info.HasClosedCaptions,
			HasAudioDescription: info.HasAudioDescription,
		},
	}

	for _, c := range info.Chapters {
		meta.Chapters = append(meta.Chapters, Chapter{Title: c.Title, Start: c.Start})
	}

	external := l.subtitleFiles(asset.FilePath)
	if len(external) > 0 {
		meta.Subtitles = append(meta.Subtitles, external...)
		meta.Accessibility.HasClosedCaptions = true
	}

	return meta
}

// subtitleFiles lists subtitle files beside videoPath that share its base
// name, such as movie.srt or movie.en.vtt.
func (l *Library) subtitleFiles(videoPath string) []string {
	dir := filepath.Dir(videoPath)
	base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))

	entries, err := afero.ReadDir(l.fs, dir)
	if err != nil {
		return nil
	}

	var subs []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !mediatypes.SubtitleExtensions[mediatypes.Ext(name)] {
			continue
		}
		if strings.TrimSuffix(name, filepath.Ext(name)) == base || strings.HasPrefix(name, base+".") {
			subs = append(subs, name)
		}
	}
	sort.Strings(subs)
	return subs
}
