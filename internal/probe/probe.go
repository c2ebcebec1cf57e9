package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"video-library/internal/logging"
	"video-library/internal/metrics"

	"github.com/spf13/afero"
)

// Prober inspects a video file and renders thumbnails for it.
type Prober interface {
	Probe(ctx context.Context, path string) (*Info, error)
	Thumbnail(ctx context.Context, path, dstDir string, opts ThumbnailOptions) ([]string, error)
}

// Info holds the technical properties of a video container.
type Info struct {
	Duration            float64   `json:"duration"`
	Width               int       `json:"width"`
	Height              int       `json:"height"`
	Codec               string    `json:"codec"`
	Bitrate             int64     `json:"bitrate"`
	FrameRate           float64   `json:"frameRate"`
	Format              string    `json:"format"`
	Chapters            []Chapter `json:"chapters,omitempty"`
	SubtitleTracks      []string  `json:"subtitleTracks,omitempty"`
	HasClosedCaptions   bool      `json:"hasClosedCaptions"`
	HasAudioDescription bool      `json:"hasAudioDescription"`
}

// Chapter is a named start offset in seconds.
type Chapter struct {
	Title string  `json:"title"`
	Start float64 `json:"start"`
}

// Config selects the binaries to run and the filesystem thumbnails are written to.
type Config struct {
	FFprobePath string
	FFmpegPath  string
	Fs          afero.Fs
}

// runFunc executes a command and returns its captured output.
type runFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// FFmpeg implements Prober with the ffprobe and ffmpeg command line tools.
type FFmpeg struct {
	ffprobe string
	ffmpeg  string
	fs      afero.Fs
	run     runFunc
}

// New creates an FFmpeg prober. Empty binary paths resolve from PATH.
func New(cfg Config) *FFmpeg {
	p := &FFmpeg{
		ffprobe: cfg.FFprobePath,
		ffmpeg:  cfg.FFmpegPath,
		fs:      cfg.Fs,
		run:     execRun,
	}
	if p.ffprobe == "" {
		p.ffprobe = "ffprobe"
	}
	if p.ffmpeg == "" {
		p.ffmpeg = "ffmpeg"
	}
	if p.fs == nil {
		p.fs = afero.NewOsFs()
	}
	return p
}

func execRun(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// ffprobe -print_format json report
type ffprobeOutput struct {
	Format   ffprobeFormat    `json:"format"`
	Streams  []ffprobeStream  `json:"streams"`
	Chapters []ffprobeChapter `json:"chapters"`
}

type ffprobeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	Bitrate    string `json:"bit_rate"`
}

type ffprobeStream struct {
	CodecType    string            `json:"codec_type"`
	CodecName    string            `json:"codec_name"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	Bitrate      string            `json:"bit_rate"`
	RFrameRate   string            `json:"r_frame_rate"`
	AvgFrameRate string            `json:"avg_frame_rate"`
	Duration     string            `json:"duration"`
	Disposition  map[string]int    `json:"disposition"`
	Tags         map[string]string `json:"tags"`
}

type ffprobeChapter struct {
	StartTime string            `json:"start_time"`
	Tags      map[string]string `json:"tags"`
}

// Probe runs ffprobe on path.
func (p *FFmpeg) Probe(ctx context.Context, path string) (*Info, error) {
	start := time.Now()
	defer func() {
		metrics.ProbeDuration.WithLabelValues("probe").Observe(time.Since(start).Seconds())
	}()

	stdout, stderr, err := p.run(ctx, p.ffprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		"-show_chapters",
		path,
	)
	if err != nil {
		metrics.ProbeErrors.WithLabelValues("probe").Inc()
		return nil, &Error{Op: "probe", Path: path, Err: err, Stderr: string(stderr)}
	}

	info, err := parseProbeOutput(stdout)
	if err != nil {
		metrics.ProbeErrors.WithLabelValues("probe").Inc()
		return nil, &Error{Op: "probe", Path: path, Err: err}
	}

	logging.Debug("Probed %s: %dx%d %s %.1fs", path, info.Width, info.Height, info.Codec, info.Duration)
	return info, nil
}

var errNoVideoStream = errors.New("no video stream")

func parseProbeOutput(data []byte) (*Info, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := &Info{
		Format:  out.Format.FormatName,
		Bitrate: parseInt(out.Format.Bitrate),
	}
	info.Duration = parseFloat(out.Format.Duration)

	video := -1
	for i, s := range out.Streams {
		switch s.CodecType {
		case "video":
			// Cover art is reported as a video stream with attached_pic set.
			if video < 0 && s.Disposition["attached_pic"] == 0 {
				video = i
			}
		case "audio":
			if s.Disposition["visual_impaired"] != 0 {
				info.HasAudioDescription = true
			}
		case "subtitle":
			info.SubtitleTracks = append(info.SubtitleTracks, subtitleLabel(s, len(info.SubtitleTracks)))
			if s.Disposition["hearing_impaired"] != 0 || s.Disposition["captions"] != 0 {
				info.HasClosedCaptions = true
			}
		}
	}
	if video < 0 {
		return nil, errNoVideoStream
	}

	vs := out.Streams[video]
	info.Width = vs.Width
	info.Height = vs.Height
	info.Codec = vs.CodecName
	info.FrameRate = parseFrameRate(vs.AvgFrameRate)
	if info.FrameRate == 0 {
		info.FrameRate = parseFrameRate(vs.RFrameRate)
	}
	if info.Bitrate == 0 {
		info.Bitrate = parseInt(vs.Bitrate)
	}
	if info.Duration == 0 {
		info.Duration = parseFloat(vs.Duration)
	}

	for i, c := range out.Chapters {
		title := c.Tags["title"]
		if title == "" {
			title = fmt.Sprintf("Chapter %d", i+1)
		}
		info.Chapters = append(info.Chapters, Chapter{Title: title, Start: parseFloat(c.StartTime)})
	}

	return info, nil
}

func subtitleLabel(s ffprobeStream, n int) string {
	lang := s.Tags["language"]
	title := s.Tags["title"]
	switch {
	case lang != "" && title != "":
		return lang + " (" + title + ")"
	case lang != "":
		return lang
	case title != "":
		return title
	default:
		return fmt.Sprintf("track %d", n+1)
	}
}

// parseFrameRate converts ffprobe's "num/den" form.
func parseFrameRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return parseFloat(s)
	}
	n := parseFloat(num)
	d := parseFloat(den)
	if d == 0 {
		return 0
	}
	return n / d
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
