package enhance

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

// maxUpscale caps how far a clip is enlarged regardless of the 4K ceiling.
const maxUpscale = 2.0

type probeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

type encoder interface {
	Encode(ctx context.Context, spec ffmpeg.EncodeSpec) error
}

// Enhance runs the quality pass: a bounded upscale with optional frame-rate
// interpolation, writing the result to the next stage folder and archiving
// the consumed original.
type Enhance struct {
	store   *queue.Store
	cfg     *config.Config
	probe   probeFunc
	encoder encoder
	project layout.Project
	logger  *slog.Logger
}

// New constructs the enhancement stage handler with default dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Enhance {
	return NewWithDependencies(cfg, store, logger, ffprobe.Inspect, ffmpeg.NewRunner(cfg.FFmpegBinary()))
}

// NewWithDependencies allows injecting collaborators (used in tests).
func NewWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, probe probeFunc, enc encoder) *Enhance {
	stageLogger := logging.NewComponentLogger(logger, "enhance")
	return &Enhance{
		store:   store,
		cfg:     cfg,
		probe:   probe,
		encoder: enc,
		project: layout.New(cfg.Paths.ProjectDir),
		logger:  stageLogger,
	}
}

func (e *Enhance) Prepare(ctx context.Context, asset *queue.Asset) error {
	logger := logging.WithContext(ctx, e.logger)
	asset.ErrorMessage = ""
	logger.Info("starting quality pass", logging.String("clip", asset.SourcePath))
	return nil
}

func (e *Enhance) Execute(ctx context.Context, asset *queue.Asset) error {
	logger := logging.WithContext(ctx, e.logger)

	if !fileutil.IsNonEmptyFile(asset.SourcePath) {
		return services.Wrap(services.ErrValidation, "enhance", "validate clip",
			"clip missing or empty: "+asset.SourcePath, nil)
	}

	result, err := e.probe(ctx, e.cfg.FFprobeBinary(), asset.SourcePath)
	if err != nil {
		return err
	}
	video, ok := result.FirstVideoStream()
	if !ok {
		return services.Wrap(services.ErrValidation, "enhance", "probe clip",
			"no video stream in "+asset.SourcePath, nil)
	}

	var filters []string
	targetW, targetH, scaled := computeUpscale(video.Width, video.Height, e.cfg.Enhance.MaxWidth, e.cfg.Enhance.MaxHeight)
	if scaled {
		filters = append(filters, fmt.Sprintf("scale=%d:%d:flags=lanczos", targetW, targetH))
	}

	fps := video.FrameRate(30)
	interpolated := false
	if target := e.cfg.Enhance.TargetFPS; target > 0 && fps > 0 && fps <= float64(target) {
		filters = append(filters, fmt.Sprintf(
			"minterpolate=mi_mode=mci:mc_mode=aobmc:me_mode=bidir:vsbmc=1:fps=%d", target))
		interpolated = true
	}

	output, err := fileutil.ReserveName(variantNamer(e.project.Enhanced(), filepath.Base(asset.SourcePath)))
	if err != nil {
		return services.Wrap(services.ErrTransient, "enhance", "reserve output", asset.SourcePath, err)
	}

	spec := ffmpeg.EncodeSpec{
		Input:     asset.SourcePath,
		Output:    output,
		Filters:   filters,
		Preset:    e.cfg.Enhance.Preset,
		CRF:       e.cfg.Enhance.CRF,
		FastStart: true,
	}
	if err := e.encoder.Encode(ctx, spec); err != nil {
		// Partial outputs must not look like finished stage files.
		_ = os.Remove(output)
		return err
	}
	if !fileutil.IsNonEmptyFile(output) {
		_ = os.Remove(output)
		return services.Wrap(services.ErrExternalTool, "enhance", "encode",
			"encoder produced an empty file for "+asset.SourcePath, nil)
	}

	archived, err := layout.ArchiveOriginal(asset.SourcePath, e.project.Enhancing())
	if err != nil {
		return services.Wrap(services.ErrTransient, "enhance", "archive original", asset.SourcePath, err)
	}
	asset.SourcePath = output
	asset.BaseName = layout.BaseName(output)

	logger.Info("quality pass complete",
		logging.Bool("upscaled", scaled),
		logging.Int("width", targetW),
		logging.Int("height", targetH),
		logging.Bool("interpolated", interpolated),
		logging.String("archived", archived),
		logging.String("output", output))
	return nil
}

func (e *Enhance) HealthCheck(ctx context.Context) stage.Health {
	return stage.RequireTool("enhance", e.cfg.FFmpegBinary())
}

// computeUpscale returns the enlarged even dimensions for a clip, limited to
// maxUpscale and the configured ceiling while keeping aspect ratio. scaled is
// false when the clip already meets or exceeds the ceiling.
func computeUpscale(width, height, maxWidth, maxHeight int) (int, int, bool) {
	if width <= 0 || height <= 0 || maxWidth <= 0 || maxHeight <= 0 {
		return width, height, false
	}
	factor := maxUpscale
	if f := float64(maxWidth) / float64(width); f < factor {
		factor = f
	}
	if f := float64(maxHeight) / float64(height); f < factor {
		factor = f
	}
	if factor <= 1 {
		return width, height, false
	}
	targetW := int(float64(width)*factor) &^ 1
	targetH := int(float64(height)*factor) &^ 1
	if targetW <= width || targetH <= height {
		return width, height, false
	}
	return targetW, targetH, true
}

func variantNamer(dir, baseName string) func(int) string {
	ext := filepath.Ext(baseName)
	stem := baseName[:len(baseName)-len(ext)]
	return func(n int) string {
		if n == 0 {
			return filepath.Join(dir, baseName)
		}
		return filepath.Join(dir, fmt.Sprintf("%s(%d)%s", stem, n, ext))
	}
}
