package fetcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultJSON = `{"filepath": "/library/videos/youtube/Demo [abc].mp4", "title": "Demo", "duration": 61.5, "uploader": "someone", "description": "d", "webpage_url": "https://example.com/v/abc"}`

// TestHelperProcess stands in for yt-dlp when invoked by fakeCommand.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	switch os.Getenv("FAKE_YTDLP_MODE") {
	case "progress":
		fmt.Println("[youtube] abc: Downloading webpage")
		for _, p := range []string{"10.0", "35.5", "20.0", "100.0"} {
			fmt.Fprintf(os.Stderr, "[download]  %s%% of 10.00MiB at 1.00MiB/s ETA 00:05\n", p)
		}
		fmt.Println(resultJSON)
	case "silent":
		time.Sleep(300 * time.Millisecond)
		fmt.Println(resultJSON)
	case "fail":
		fmt.Fprintln(os.Stderr, "WARNING: something odd")
		fmt.Fprintln(os.Stderr, "ERROR: [generic] Unsupported URL: https://example.com/nothing")
		os.Exit(1)
	case "no-result":
		fmt.Println("[download] Destination: somewhere.mp4")
	case "args":
		fmt.Println(strings.Join(os.Args[3:], "|"))
		fmt.Println(resultJSON)
	}
	os.Exit(0)
}

func fakeCommand(mode string) commandFunc {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "FAKE_YTDLP_MODE="+mode)
		return cmd
	}
}

func newFake(mode string, tick time.Duration) *YTDLP {
	y := NewYTDLP(Config{SimulationTick: tick})
	y.command = fakeCommand(mode)
	return y
}

func record() (*[]Progress, func(Progress)) {
	var got []Progress
	return &got, func(p Progress) { got = append(got, p) }
}

func TestFetchReportsTransferProgress(t *testing.T) {
	y := newFake("progress", time.Hour)
	got, progress := record()

	result, err := y.Fetch(context.Background(), Request{URL: "https://example.com/v/abc"}, progress)
	require.NoError(t, err)

	assert.Equal(t, "/library/videos/youtube/Demo [abc].mp4", result.FilePath)
	assert.Equal(t, "Demo", result.Title)
	assert.Equal(t, 61.5, result.Duration)
	assert.Equal(t, "someone", result.Uploader)

	assert.Equal(t, []Progress{{Percent: 10}, {Percent: 35.5}, {Percent: 100}}, *got,
		"decreasing values must be dropped")
}

func TestFetchSimulatesProgressWithoutTelemetry(t *testing.T) {
	y := newFake("silent", 10*time.Millisecond)
	got, progress := record()

	_, err := y.Fetch(context.Background(), Request{URL: "https://example.com/v/abc"}, progress)
	require.NoError(t, err)

	require.NotEmpty(t, *got)
	last := 0.0
	for _, p := range *got {
		assert.True(t, p.Simulated)
		assert.Greater(t, p.Percent, last)
		assert.LessOrEqual(t, p.Percent, float64(simulationCap))
		last = p.Percent
	}
}

func TestFetchFailureCarriesToolError(t *testing.T) {
	y := newFake("fail", time.Hour)

	_, err := y.Fetch(context.Background(), Request{URL: "https://example.com/nothing"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetchFailed)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Contains(t, fetchErr.Error(), "Unsupported URL")
}

func TestFetchWithoutResultLineFails(t *testing.T) {
	y := newFake("no-result", time.Hour)

	_, err := y.Fetch(context.Background(), Request{URL: "https://example.com/v/abc"}, nil)
	assert.ErrorIs(t, err, ErrFetchFailed)
}

func TestFetchPassesArguments(t *testing.T) {
	y := NewYTDLP(Config{})
	var captured []string
	y.command = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		captured = append([]string{name}, args...)
		return fakeCommand("args")(ctx, name, args...)
	}

	_, err := y.Fetch(context.Background(), Request{
		URL:            "https://example.com/v/abc",
		FormatProfile:  "bestvideo[height<=720]+bestaudio/best",
		OutputTemplate: "/library/videos/youtube/%(title)s.%(ext)s",
	}, nil)
	require.NoError(t, err)

	joined := strings.Join(captured, " ")
	assert.Equal(t, "yt-dlp", captured[0])
	assert.Contains(t, joined, "-f bestvideo[height<=720]+bestaudio/best")
	assert.Contains(t, joined, "--merge-output-format mp4")
	assert.Contains(t, joined, "-o /library/videos/youtube/%(title)s.%(ext)s")
	assert.Contains(t, joined, "--print "+printFields)
	assert.Equal(t, "https://example.com/v/abc", captured[len(captured)-1])
}

func TestParseProgressLine(t *testing.T) {
	tests := []struct {
		line string
		want float64
		ok   bool
	}{
		{"[download]  42.0% of 10.00MiB at 1.00MiB/s ETA 00:05", 42, true},
		{"[download] 100% of 10.00MiB in 00:10", 100, true},
		{"[download]   3.7% of ~ 80.00MiB", 3.7, true},
		{"[download] Destination: a.mp4", 0, false},
		{"[youtube] abc: Downloading webpage", 0, false},
		{"[download] 420.0%", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseProgressLine(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}
}

func TestProgressTracker(t *testing.T) {
	tr := newProgressTracker()

	var values []float64
	for i := 0; i < 25; i++ {
		p, ok := tr.simulate()
		if ok {
			assert.True(t, p.Simulated)
			values = append(values, p.Percent)
		}
	}
	assert.Len(t, values, 19)
	assert.Equal(t, 5.0, values[0])
	assert.Equal(t, 95.0, values[len(values)-1])

	// Real progress below the simulated value is ignored, and simulation stops.
	_, ok := tr.transfer(50)
	assert.False(t, ok)
	p, ok := tr.transfer(97)
	assert.True(t, ok)
	assert.False(t, p.Simulated)
	_, ok = tr.simulate()
	assert.False(t, ok)
}

func TestLastErrorLine(t *testing.T) {
	assert.Equal(t, "boom", lastErrorLine("noise\nERROR: boom\ntrailing"))
	assert.Equal(t, "trailing", lastErrorLine("noise\ntrailing\n"))
	assert.Equal(t, "", lastErrorLine(""))
}
