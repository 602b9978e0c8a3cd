package rawvideo

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"beatforge/internal/config"
	"beatforge/internal/fileutil"
	"beatforge/internal/layout"
	"beatforge/internal/logging"
	"beatforge/internal/media/ffmpeg"
	"beatforge/internal/media/ffprobe"
	"beatforge/internal/queue"
	"beatforge/internal/services"
	"beatforge/internal/stage"
)

// maxStills caps how many reference frames are pulled from one clip.
const maxStills = 10

// probeFunc matches ffprobe.Inspect, injectable for tests.
type probeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// frameExtractor pulls one frame at a timestamp, injectable for tests.
type frameExtractor interface {
	ExtractFrame(ctx context.Context, input string, timestamp float64, output string) error
}

// RawVideo validates a dropped clip, records its stream parameters, extracts
// evenly spaced reference stills into the edit assets area, and hands the
// clip to the enhancement stage.
type RawVideo struct {
	store   *queue.Store
	cfg     *config.Config
	probe   probeFunc
	frames  frameExtractor
	project layout.Project
	logger  *slog.Logger
}

// New constructs the raw video stage handler with default dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) *RawVideo {
	return NewWithDependencies(cfg, store, logger, ffprobe.Inspect, ffmpeg.NewRunner(cfg.FFmpegBinary()))
}

// NewWithDependencies allows injecting collaborators (used in tests).
func NewWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, probe probeFunc, frames frameExtractor) *RawVideo {
	stageLogger := logging.NewComponentLogger(logger, "rawvideo")
	return &RawVideo{
		store:   store,
		cfg:     cfg,
		probe:   probe,
		frames:  frames,
		project: layout.New(cfg.Paths.ProjectDir),
		logger:  stageLogger,
	}
}

func (r *RawVideo) Prepare(ctx context.Context, asset *queue.Asset) error {
	logger := logging.WithContext(ctx, r.logger)
	asset.ErrorMessage = ""
	logger.Info("starting clip probe", logging.String("clip", asset.SourcePath))
	return nil
}

func (r *RawVideo) Execute(ctx context.Context, asset *queue.Asset) error {
	logger := logging.WithContext(ctx, r.logger)

	if !fileutil.IsNonEmptyFile(asset.SourcePath) {
		return services.Wrap(services.ErrValidation, "rawvideo", "validate clip",
			"clip missing or empty: "+asset.SourcePath, nil)
	}

	result, err := r.probe(ctx, r.cfg.FFprobeBinary(), asset.SourcePath)
	if err != nil {
		return err
	}
	video, ok := result.FirstVideoStream()
	if !ok {
		return services.Wrap(services.ErrValidation, "rawvideo", "probe clip",
			"no video stream in "+asset.SourcePath, nil)
	}
	duration := result.DurationSeconds()
	if duration <= 0 {
		return services.Wrap(services.ErrValidation, "rawvideo", "probe clip",
			"clip has no measurable duration: "+asset.SourcePath, nil)
	}

	extracted := r.extractStills(ctx, logger, asset, duration)

	moved, err := layout.Promote(asset.SourcePath, r.project.Enhancing())
	if err != nil {
		return services.Wrap(services.ErrTransient, "rawvideo", "move clip", asset.SourcePath, err)
	}
	asset.SourcePath = moved
	asset.BaseName = layout.BaseName(moved)

	logger.Info("clip probed",
		logging.String("codec", video.CodecName),
		logging.Int("width", video.Width),
		logging.Int("height", video.Height),
		logging.Float64("duration", duration),
		logging.Int("stills", extracted),
		logging.String("moved_to", moved))
	return nil
}

// extractStills pulls up to maxStills frames spread across the clip. Frame
// failures are logged and skipped; the probe stage still succeeds.
func (r *RawVideo) extractStills(ctx context.Context, logger *slog.Logger, asset *queue.Asset, duration float64) int {
	stillsDir := filepath.Join(r.project.Stills(), layout.BaseName(asset.SourcePath))
	if err := os.MkdirAll(stillsDir, 0o755); err != nil {
		logger.Warn("stills directory unavailable", logging.Error(err))
		return 0
	}

	count := maxStills
	if int(duration) < count {
		count = int(duration)
	}
	if count < 1 {
		count = 1
	}

	extracted := 0
	for i := 0; i < count; i++ {
		timestamp := duration * (float64(i) + 0.5) / float64(count)
		output := filepath.Join(stillsDir, fmt.Sprintf("still_%02d.jpg", i))
		if err := r.frames.ExtractFrame(ctx, asset.SourcePath, timestamp, output); err != nil {
			logger.Warn("still extraction failed",
				logging.Float64("timestamp", timestamp), logging.Error(err))
			continue
		}
		extracted++
	}
	return extracted
}

func (r *RawVideo) HealthCheck(ctx context.Context) stage.Health {
	if health := stage.RequireTool("rawvideo", r.cfg.FFprobeBinary()); !health.Ready {
		return health
	}
	return stage.RequireTool("rawvideo", r.cfg.FFmpegBinary())
}
