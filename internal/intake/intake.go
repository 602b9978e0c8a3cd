package intake

import (
	"context"
	"log/slog"

	"beatforge/internal/beatgrid"
	"beatforge/internal/config"
	"beatforge/internal/fileutil"
	"beatforge/internal/layout"
	"beatforge/internal/logging"
	"beatforge/internal/media/ffmpeg"
	"beatforge/internal/queue"
	"beatforge/internal/services"
	"beatforge/internal/stage"
)

// Analyzer detects the beat grid of an audio file.
type Analyzer interface {
	Analyze(ctx context.Context, audioPath string) (*beatgrid.Grid, error)
}

// Intake analyzes a dropped audio track: it decodes the waveform, detects the
// beat grid, persists it keyed by the track's base name, and moves the track
// into the edit assets area.
type Intake struct {
	store    *queue.Store
	cfg      *config.Config
	analyzer Analyzer
	project  layout.Project
	logger   *slog.Logger
}

// New constructs the intake stage handler with default dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Intake {
	return NewWithAnalyzer(cfg, store, logger, nil)
}

// NewWithAnalyzer allows injecting the analyzer (used in tests).
func NewWithAnalyzer(cfg *config.Config, store *queue.Store, logger *slog.Logger, analyzer Analyzer) *Intake {
	stageLogger := logging.NewComponentLogger(logger, "intake")
	if analyzer == nil {
		analyzer = beatgrid.NewAnalyzer(
			beatgrid.NewAubioTracker(cfg.BeatTrackBinary()),
			ffmpeg.NewRunner(cfg.FFmpegBinary()),
			stageLogger,
		)
	}
	return &Intake{
		store:    store,
		cfg:      cfg,
		analyzer: analyzer,
		project:  layout.New(cfg.Paths.ProjectDir),
		logger:   stageLogger,
	}
}

func (i *Intake) Prepare(ctx context.Context, asset *queue.Asset) error {
	logger := logging.WithContext(ctx, i.logger)
	asset.ErrorMessage = ""
	logger.Info("starting beat analysis", logging.String("track", asset.SourcePath))
	return nil
}

func (i *Intake) Execute(ctx context.Context, asset *queue.Asset) error {
	logger := logging.WithContext(ctx, i.logger)

	if !fileutil.IsNonEmptyFile(asset.SourcePath) {
		return services.Wrap(services.ErrValidation, "intake", "validate track",
			"track missing or empty: "+asset.SourcePath, nil)
	}

	grid, err := i.analyzer.Analyze(ctx, asset.SourcePath)
	if err != nil {
		return err
	}

	key := layout.BaseName(asset.SourcePath)
	if err := i.store.SaveBeatTimes(ctx, key, grid.BeatTimes); err != nil {
		return services.Wrap(services.ErrAnalysis, "intake", "persist beat grid", key, err)
	}

	moved, err := layout.Promote(asset.SourcePath, i.project.AudioAssets())
	if err != nil {
		return services.Wrap(services.ErrTransient, "intake", "move track", asset.SourcePath, err)
	}
	asset.SourcePath = moved
	asset.BaseName = key

	logger.Info("track analyzed",
		logging.String("key", key),
		logging.Int("beats", grid.TotalBeats()),
		logging.Float64("bpm", grid.BPM),
		logging.String("moved_to", moved))
	return nil
}

func (i *Intake) HealthCheck(ctx context.Context) stage.Health {
	if health := stage.RequireTool("intake", i.cfg.FFmpegBinary()); !health.Ready {
		return health
	}
	return stage.RequireTool("intake", i.cfg.BeatTrackBinary())
}
