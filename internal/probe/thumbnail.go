package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // ffmpeg pipes PNG frames
	"path/filepath"
	"strconv"
	"time"

	"video-library/internal/logging"
	"video-library/internal/metrics"

	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
	_ "golang.org/x/image/webp" // embedded cover art is often WebP
)

// ThumbnailOptions controls frame selection and output size.
type ThumbnailOptions struct {
	// Name is the output base name without extension.
	Name string
	// Count frames are rendered; values below 1 mean one.
	Count int
	// Width and Height bound the resized image; zero uses 480x270.
	Width  int
	Height int
	// Duration of the source in seconds, used to space frames.
	Duration float64
	// Offset overrides the grab position of a single frame.
	Offset time.Duration
	// Quality is the JPEG quality; zero uses 80.
	Quality int
}

const (
	defaultThumbWidth  = 480
	defaultThumbHeight = 270
	defaultQuality     = 80
	thumbnailExt       = ".jpg"
)

var errEmptyFrame = errors.New("ffmpeg produced no output")

// Thumbnail renders frames of path as JPEG files under dstDir and returns
// their paths in the configured filesystem.
func (p *FFmpeg) Thumbnail(ctx context.Context, path, dstDir string, opts ThumbnailOptions) ([]string, error) {
	start := time.Now()
	defer func() {
		metrics.ProbeDuration.WithLabelValues("thumbnail").Observe(time.Since(start).Seconds())
	}()

	opts = opts.withDefaults(path)

	fail := func(err error, stderr []byte, written []string) ([]string, error) {
		metrics.ProbeErrors.WithLabelValues("thumbnail").Inc()
		for _, w := range written {
			if rmErr := p.fs.Remove(w); rmErr != nil {
				logging.Debug("Failed to remove partial thumbnail %s: %v", w, rmErr)
			}
		}
		return nil, &Error{Op: "thumbnail", Path: path, Err: err, Stderr: string(stderr)}
	}

	if err := p.fs.MkdirAll(dstDir, 0o755); err != nil {
		return fail(fmt.Errorf("create thumbnail directory: %w", err), nil, nil)
	}

	offsets := frameOffsets(opts)
	written := make([]string, 0, len(offsets))

	for i, offset := range offsets {
		img, stderr, err := p.grabFrame(ctx, path, offset)
		if err != nil {
			return fail(err, stderr, written)
		}

		thumb := imaging.Fit(img, opts.Width, opts.Height, imaging.Lanczos)

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: opts.Quality}); err != nil {
			return fail(fmt.Errorf("encode thumbnail: %w", err), nil, written)
		}

		name := opts.Name + thumbnailExt
		if len(offsets) > 1 {
			name = fmt.Sprintf("%s-%d%s", opts.Name, i+1, thumbnailExt)
		}
		dst := filepath.Join(dstDir, name)
		if err := afero.WriteFile(p.fs, dst, buf.Bytes(), 0o644); err != nil {
			return fail(fmt.Errorf("write thumbnail: %w", err), nil, written)
		}
		written = append(written, dst)
	}

	logging.Debug("Generated %d thumbnail(s) for %s", len(written), path)
	return written, nil
}

func (o ThumbnailOptions) withDefaults(path string) ThumbnailOptions {
	if o.Name == "" {
		base := filepath.Base(path)
		o.Name = base[:len(base)-len(filepath.Ext(base))]
	}
	if o.Count < 1 {
		o.Count = 1
	}
	if o.Width <= 0 {
		o.Width = defaultThumbWidth
	}
	if o.Height <= 0 {
		o.Height = defaultThumbHeight
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = defaultQuality
	}
	return o
}

// frameOffsets returns grab positions in seconds. A single frame is taken at
// Offset, else at 10% of the duration for long clips, else at one second.
// Multiple frames are spaced evenly and never land on the very first or last frame.
func frameOffsets(o ThumbnailOptions) []float64 {
	if o.Count == 1 {
		switch {
		case o.Offset > 0:
			return []float64{o.Offset.Seconds()}
		case o.Duration > 10:
			return []float64{o.Duration / 10}
		case o.Duration > 0 && o.Duration <= 1:
			return []float64{0}
		default:
			return []float64{1}
		}
	}

	offsets := make([]float64, o.Count)
	for i := range offsets {
		if o.Duration > 0 {
			offsets[i] = o.Duration * float64(i+1) / float64(o.Count+1)
		} else {
			offsets[i] = float64(i + 1)
		}
	}
	return offsets
}

// grabFrame extracts one frame at offset. Short or oddly muxed files can fail
// a seek, so a failed grab is retried from the first frame.
func (p *FFmpeg) grabFrame(ctx context.Context, path string, offset float64) (image.Image, []byte, error) {
	stdout, stderr, err := p.run(ctx, p.ffmpeg, frameArgs(path, offset)...)
	if (err != nil || len(stdout) == 0) && offset > 0 {
		logging.Debug("FFmpeg grab at %.2fs failed for %s: %v, retrying at first frame", offset, path, err)
		stdout, stderr, err = p.run(ctx, p.ffmpeg, frameArgs(path, 0)...)
	}
	if err != nil {
		return nil, stderr, fmt.Errorf("ffmpeg failed: %w", err)
	}
	if len(stdout) == 0 {
		return nil, stderr, errEmptyFrame
	}

	img, _, err := image.Decode(bytes.NewReader(stdout))
	if err != nil {
		return nil, stderr, fmt.Errorf("decode ffmpeg output: %w", err)
	}
	return img, nil, nil
}

func frameArgs(path string, offset float64) []string {
	args := []string{"-v", "error"}
	if offset > 0 {
		args = append(args, "-ss", strconv.FormatFloat(offset, 'f', 3, 64))
	}
	return append(args,
		"-i", path,
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)
}
