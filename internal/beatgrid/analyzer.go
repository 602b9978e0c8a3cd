package beatgrid

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"beatforge/internal/logging"
	"beatforge/internal/media/ffmpeg"
	"beatforge/internal/services"
)

// Tracker detects beat onsets in an audio file.
type Tracker interface {
	Track(ctx context.Context, audioPath string) ([]float64, error)
}

// Analyzer decodes a track's waveform and runs beat detection over it.
type Analyzer struct {
	tracker Tracker
	runner  *ffmpeg.Runner
	logger  *slog.Logger
}

// NewAnalyzer builds an analyzer. A nil tracker uses the aubio command line
// tool from PATH.
func NewAnalyzer(tracker Tracker, runner *ffmpeg.Runner, logger *slog.Logger) *Analyzer {
	if tracker == nil {
		tracker = NewAubioTracker("")
	}
	if runner == nil {
		runner = ffmpeg.NewRunner("")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Analyzer{tracker: tracker, runner: runner, logger: logger}
}

// Analyze decodes the track to verify it carries audible samples, runs beat
// detection, and returns the resulting grid.
func (a *Analyzer) Analyze(ctx context.Context, audioPath string) (*Grid, error) {
	tmpDir, err := os.MkdirTemp("", "beatforge-pcm-")
	if err != nil {
		return nil, services.Wrap(services.ErrAnalysis, "beatgrid", "analyze", "create temp dir", err)
	}
	defer os.RemoveAll(tmpDir)

	pcmPath := filepath.Join(tmpDir, "waveform.f32le")
	if err := a.runner.DecodePCM(ctx, audioPath, pcmPath, 0); err != nil {
		return nil, services.Wrap(services.ErrAnalysis, "beatgrid", "decode waveform", audioPath, err)
	}
	info, err := os.Stat(pcmPath)
	if err != nil || info.Size() == 0 {
		return nil, services.Wrap(services.ErrAnalysis, "beatgrid", "decode waveform",
			"track decoded to an empty waveform: "+audioPath, nil)
	}

	beatTimes, err := a.tracker.Track(ctx, audioPath)
	if err != nil {
		return nil, services.Wrap(services.ErrAnalysis, "beatgrid", "track beats", audioPath, err)
	}

	grid, err := New(beatTimes)
	if err != nil {
		return nil, err
	}
	a.logger.Info("beat analysis complete",
		logging.String("audio", audioPath),
		logging.Int("beats", grid.TotalBeats()),
		logging.Float64("bpm", grid.BPM))
	return grid, nil
}

// AubioTracker shells out to the aubio CLI, which prints one beat timestamp
// per line.
type AubioTracker struct {
	binary string
}

// NewAubioTracker constructs a tracker for the given aubio binary ("" uses PATH).
func NewAubioTracker(binary string) *AubioTracker {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "aubio"
	}
	return &AubioTracker{binary: binary}
}

// Track runs `aubio beat` against the file and parses the emitted timestamps.
func (t *AubioTracker) Track(ctx context.Context, audioPath string) ([]float64, error) {
	cmd := exec.CommandContext(ctx, t.binary, "beat", audioPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		diag := services.TruncateDiagnostic(string(output), 500)
		return nil, services.Wrap(services.ErrExternalTool, "aubio", "beat", diag, err)
	}
	return parseBeatOutput(string(output))
}

func parseBeatOutput(output string) ([]float64, error) {
	var times []float64
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		// aubio beat emits "<seconds>" alone; some builds append a label.
		fields := strings.Fields(line)
		value, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			continue
		}
		times = append(times, value)
	}
	return times, scanner.Err()
}
