package assembly

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"beatforge/internal/beatgrid"
	"beatforge/internal/config"
	"beatforge/internal/fileutil"
	"beatforge/internal/logging"
	"beatforge/internal/media/ffmpeg"
	"beatforge/internal/media/ffprobe"
	"beatforge/internal/planner"
	"beatforge/internal/services"
)

// Sync mode labels recorded with each deliverable.
const (
	SyncModeBeat       = "beat"
	SyncModeSequential = "sequential"
)

// durationTolerance absorbs encoder frame rounding when comparing the
// concatenated video against the track length.
const durationTolerance = 0.05

// Fallback render geometry when no clip yields usable stream parameters.
const (
	defaultRenderWidth  = 1920
	defaultRenderHeight = 1080
	defaultRenderFPS    = 24.0
)

// renderFormat is the shared geometry every segment is normalized to so the
// concat demuxer can stream-copy the joined timeline.
type renderFormat struct {
	width  int
	height int
	fps    float64
}

type probeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// toolRunner covers the ffmpeg operations the engine issues, injectable for
// tests.
type toolRunner interface {
	Encode(ctx context.Context, spec ffmpeg.EncodeSpec) error
	ConcatCopy(ctx context.Context, listFile, output string, maxDuration float64) error
	TrimCopy(ctx context.Context, input, output string, duration float64) error
	Mux(ctx context.Context, videoPath, audioPath, output, audioCodec string) error
}

// Engine assembles one music video from a clip pool and an audio track.
type Engine struct {
	runner     toolRunner
	probe      probeFunc
	ffprobeBin string
	opts       config.Assembly
	logger     *slog.Logger
}

// NewEngine builds an assembly engine from the configured tool paths and
// encoder parameters.
func NewEngine(cfg *config.Config, logger *slog.Logger) *Engine {
	return NewEngineWithDependencies(cfg, logger, ffprobe.Inspect, ffmpeg.NewRunner(cfg.FFmpegBinary()))
}

// NewEngineWithDependencies allows injecting the prober and tool runner
// (used in tests).
func NewEngineWithDependencies(cfg *config.Config, logger *slog.Logger, probe probeFunc, runner toolRunner) *Engine {
	return &Engine{
		runner:     runner,
		probe:      probe,
		ffprobeBin: cfg.FFprobeBinary(),
		opts:       cfg.Assembly,
		logger:     logging.NewComponentLogger(logger, "assembly"),
	}
}

// Request names the inputs for one assembly run.
type Request struct {
	AudioPath string
	ClipPaths []string
	// Grid enables beat-synced planning; nil or a grid with fewer than two
	// beats falls back to sequential fill.
	Grid *beatgrid.Grid
	// OutputDir receives the finished deliverable.
	OutputDir string
	// BaseName seeds the deliverable filename.
	BaseName string
}

// Result reports a finished assembly.
type Result struct {
	OutputPath   string
	ClipCount    int
	SegmentCount int
	SyncMode     string
	Duration     float64
}

// Assemble plans the segment timeline, renders each segment to shared codec
// parameters, concatenates them, matches the video length to the track, and
// muxes the track back in. The deliverable name is reserved atomically so
// concurrent runs never clobber each other.
func (e *Engine) Assemble(ctx context.Context, req Request) (*Result, error) {
	audioDuration, err := e.probeDuration(ctx, req.AudioPath)
	if err != nil {
		return nil, err
	}
	if audioDuration <= 0 {
		return nil, services.Wrap(services.ErrValidation, "assembly", "probe audio",
			"track has no measurable duration: "+req.AudioPath, nil)
	}

	clips, format := e.probeClips(ctx, req.ClipPaths)
	segments, err := planner.Plan(clips, audioDuration, req.Grid, planner.Options{
		BeatsPerClip: e.opts.BeatsPerClip,
		TilePolicy:   e.opts.TilePolicy,
	})
	if err != nil {
		return nil, err
	}
	syncMode := SyncModeSequential
	if req.Grid != nil && req.Grid.TotalBeats() >= 2 {
		syncMode = SyncModeBeat
	}

	workDir, err := os.MkdirTemp("", "beatforge-assembly-")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	segmentFiles, err := e.renderSegments(ctx, workDir, segments, format)
	if err != nil {
		return nil, err
	}

	videoPath, err := e.concatToLength(ctx, workDir, segmentFiles, segments, audioDuration)
	if err != nil {
		return nil, err
	}

	outputPath, err := fileutil.ReserveName(func(n int) string {
		if n == 0 {
			return filepath.Join(req.OutputDir, req.BaseName+"_musicvideo.mp4")
		}
		return filepath.Join(req.OutputDir, fmt.Sprintf("%s_musicvideo(%d).mp4", req.BaseName, n))
	})
	if err != nil {
		return nil, fmt.Errorf("reserve output name: %w", err)
	}

	if err := e.runner.Mux(ctx, videoPath, req.AudioPath, outputPath, e.opts.AudioCodec); err != nil {
		_ = os.Remove(outputPath)
		return nil, err
	}

	if !fileutil.IsNonEmptyFile(outputPath) {
		_ = os.Remove(outputPath)
		return nil, services.Wrap(services.ErrExternalTool, "assembly", "mux",
			"muxer produced an empty deliverable", nil)
	}

	e.logger.Info("assembly complete",
		logging.String("output", outputPath),
		logging.String("sync_mode", syncMode),
		logging.Int("segments", len(segments)),
		logging.Float64("duration", audioDuration))

	return &Result{
		OutputPath:   outputPath,
		ClipCount:    len(req.ClipPaths),
		SegmentCount: len(segments),
		SyncMode:     syncMode,
		Duration:     audioDuration,
	}, nil
}

func (e *Engine) probeDuration(ctx context.Context, path string) (float64, error) {
	result, err := e.probe(ctx, e.ffprobeBin, path)
	if err != nil {
		return 0, err
	}
	return result.DurationSeconds(), nil
}

// probeClips measures each clip and derives the render format from the first
// playable one. Unreadable clips stay in the pool with zero duration so the
// planner skips them without disturbing the rotation.
func (e *Engine) probeClips(ctx context.Context, paths []string) ([]planner.Clip, renderFormat) {
	format := renderFormat{
		width:  defaultRenderWidth,
		height: defaultRenderHeight,
		fps:    defaultRenderFPS,
	}
	formatSet := false

	clips := make([]planner.Clip, 0, len(paths))
	for _, path := range paths {
		result, err := e.probe(ctx, e.ffprobeBin, path)
		if err != nil {
			e.logger.Warn("clip probe failed, excluding from timeline",
				logging.String("clip", path), logging.Error(err))
			clips = append(clips, planner.Clip{Path: path, Duration: 0})
			continue
		}
		duration := result.DurationSeconds()
		clips = append(clips, planner.Clip{Path: path, Duration: duration})

		if formatSet || duration <= 0 {
			continue
		}
		if video, ok := result.FirstVideoStream(); ok && video.Width > 0 && video.Height > 0 {
			format.width = video.Width
			format.height = video.Height
			format.fps = video.FrameRate(defaultRenderFPS)
			formatSet = true
		}
	}
	return clips, format
}

// renderSegments re-encodes every planned segment to identical codec
// parameters and to the shared render geometry, with audio stripped, so the
// concat demuxer can join them with stream copy.
func (e *Engine) renderSegments(ctx context.Context, workDir string, segments []planner.Segment, format renderFormat) ([]string, error) {
	filters := []string{
		fmt.Sprintf("scale=%d:%d", format.width, format.height),
		"fps=" + strconv.FormatFloat(format.fps, 'g', -1, 64),
	}
	files := make([]string, 0, len(segments))
	for i, segment := range segments {
		out := filepath.Join(workDir, fmt.Sprintf("segment_%03d.mp4", i))
		spec := ffmpeg.EncodeSpec{
			Input:     segment.ClipPath,
			Output:    out,
			TrimStart: segment.TrimStart,
			Duration:  segment.TrimDuration,
			Filters:   filters,
			Preset:    e.opts.SegmentPreset,
			CRF:       e.opts.SegmentCRF,
			DropAudio: true,
		}
		if err := e.runner.Encode(ctx, spec); err != nil {
			return nil, err
		}
		files = append(files, out)
	}
	return files, nil
}

// concatToLength joins the rendered segments and matches the result to the
// track duration. A short timeline is padded by repeating the final segment
// until it reaches the track, then hard-truncated; a long one is trimmed with
// stream copy.
func (e *Engine) concatToLength(ctx context.Context, workDir string, segmentFiles []string, segments []planner.Segment, audioDuration float64) (string, error) {
	list := padSegmentList(segmentFiles, planner.TotalDuration(segments),
		segments[len(segments)-1].TrimDuration, audioDuration)

	listPath := filepath.Join(workDir, "segments.txt")
	if err := ffmpeg.WriteConcatList(listPath, list); err != nil {
		return "", fmt.Errorf("write concat list: %w", err)
	}

	videoPath := filepath.Join(workDir, "timeline.mp4")
	if err := e.runner.ConcatCopy(ctx, listPath, videoPath, 0); err != nil {
		return "", err
	}

	actual, err := e.probeDuration(ctx, videoPath)
	if err != nil {
		return "", err
	}
	if actual <= audioDuration+durationTolerance {
		return videoPath, nil
	}

	trimmed := filepath.Join(workDir, "timeline_trimmed.mp4")
	if err := e.runner.TrimCopy(ctx, videoPath, trimmed, audioDuration); err != nil {
		return "", err
	}
	return trimmed, nil
}

// padSegmentList repeats the final segment until the concatenated timeline
// reaches the track length. The overshoot is removed after the concat.
func padSegmentList(segmentFiles []string, planned, finalDuration, audioDuration float64) []string {
	list := append([]string(nil), segmentFiles...)
	if finalDuration <= 0 {
		return list
	}
	finalFile := segmentFiles[len(segmentFiles)-1]
	for planned < audioDuration {
		list = append(list, finalFile)
		planned += finalDuration
	}
	return list
}
