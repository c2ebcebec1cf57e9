package fetcher

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"video-library/internal/logging"

	"github.com/sourcegraph/conc"
)

// printFields is the --print template yt-dlp evaluates after moving the final file.
const printFields = "after_move:%(.{filepath,title,duration,uploader,description,webpage_url})j"

const (
	// DefaultSimulationTick is the interval between simulated progress steps.
	DefaultSimulationTick = 2 * time.Second
	simulationStep        = 5
	simulationCap         = 95
	stderrTailLines       = 20
)

type commandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Config configures the yt-dlp driver.
type Config struct {
	// Path to the yt-dlp binary; empty resolves from PATH.
	Path string
	// SimulationTick defaults to DefaultSimulationTick.
	SimulationTick time.Duration
}

// YTDLP implements Fetcher with the yt-dlp command line tool.
type YTDLP struct {
	path    string
	tick    time.Duration
	command commandFunc
}

// NewYTDLP creates a yt-dlp driver.
func NewYTDLP(cfg Config) *YTDLP {
	y := &YTDLP{
		path:    cfg.Path,
		tick:    cfg.SimulationTick,
		command: exec.CommandContext,
	}
	if y.path == "" {
		y.path = "yt-dlp"
	}
	if y.tick <= 0 {
		y.tick = DefaultSimulationTick
	}
	return y
}

func buildArgs(req Request) []string {
	args := []string{
		"--newline",
		"--progress",
		"--no-playlist",
		"--no-colors",
	}
	if req.FormatProfile != "" {
		args = append(args, "-f", req.FormatProfile)
	}
	return append(args,
		"--merge-output-format", "mp4",
		"-o", req.OutputTemplate,
		"--print", printFields,
		"--",
		req.URL,
	)
}

type outputLine struct {
	text   string
	stderr bool
}

// Fetch runs yt-dlp and blocks until it exits.
func (y *YTDLP) Fetch(ctx context.Context, req Request, progress func(Progress)) (*Result, error) {
	if progress == nil {
		progress = func(Progress) {}
	}

	cmd := y.command(ctx, y.path, buildArgs(req)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &FetchError{URL: req.URL, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &FetchError{URL: req.URL, Err: err}
	}

	logging.Debug("Starting yt-dlp for %s", req.URL)
	if err := cmd.Start(); err != nil {
		return nil, &FetchError{URL: req.URL, Err: err}
	}

	lines := make(chan outputLine, 64)
	var readers conc.WaitGroup
	readers.Go(func() { scanLines(stdout, false, lines) })
	readers.Go(func() { scanLines(stderr, true, lines) })
	go func() {
		readers.Wait()
		close(lines)
	}()

	var (
		result  *Result
		tail    []string
		tracker = newProgressTracker()
	)

	ticker := time.NewTicker(y.tick)
	defer ticker.Stop()

	recv := (<-chan outputLine)(lines)
	for recv != nil {
		select {
		case line, ok := <-recv:
			if !ok {
				recv = nil
				continue
			}
			if pct, ok := parseProgressLine(line.text); ok {
				if p, emit := tracker.transfer(pct); emit {
					progress(p)
				}
				continue
			}
			if r, ok := parseResultLine(line.text); ok {
				result = r
				continue
			}
			if line.stderr {
				tail = append(tail, line.text)
				if len(tail) > stderrTailLines {
					tail = tail[1:]
				}
			}
		case <-ticker.C:
			if p, emit := tracker.simulate(); emit {
				progress(p)
			}
		}
	}

	stderrText := strings.Join(tail, "\n")
	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, &FetchError{URL: req.URL, Err: err, Stderr: stderrText}
	}
	if result == nil || result.FilePath == "" {
		return nil, &FetchError{URL: req.URL, Err: errors.New("yt-dlp did not report an output file"), Stderr: stderrText}
	}

	logging.Debug("yt-dlp finished %s -> %s", req.URL, result.FilePath)
	return result, nil
}

func scanLines(r io.Reader, isStderr bool, out chan<- outputLine) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		out <- outputLine{text: scanner.Text(), stderr: isStderr}
	}
	if err := scanner.Err(); err != nil {
		logging.Debug("yt-dlp output read error: %v", err)
		// Drain so the process never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, r)
	}
}

var progressLine = regexp.MustCompile(`^\[download\]\s+(\d{1,3}(?:\.\d+)?)%`)

// parseProgressLine extracts the percentage of a "[download]  42.0% of ..." line.
func parseProgressLine(line string) (float64, bool) {
	m := progressLine.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return 0, false
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil || pct < 0 || pct > 100 {
		return 0, false
	}
	return pct, true
}

func parseResultLine(line string) (*Result, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return nil, false
	}
	var r Result
	if err := json.Unmarshal([]byte(line), &r); err != nil {
		return nil, false
	}
	return &r, r.FilePath != ""
}

// progressTracker keeps emitted values non-decreasing. Simulation stops
// for good once real transfer progress has been seen.
type progressTracker struct {
	last      float64
	simulated float64
	real      bool
}

func newProgressTracker() *progressTracker {
	return &progressTracker{}
}

func (t *progressTracker) transfer(pct float64) (Progress, bool) {
	t.real = true
	if pct <= t.last {
		return Progress{}, false
	}
	t.last = pct
	return Progress{Percent: pct}, true
}

func (t *progressTracker) simulate() (Progress, bool) {
	if t.real {
		return Progress{}, false
	}
	t.simulated += simulationStep
	if t.simulated > simulationCap {
		t.simulated = simulationCap
	}
	if t.simulated <= t.last {
		return Progress{}, false
	}
	t.last = t.simulated
	return Progress{Percent: t.simulated, Simulated: true}, true
}
