package lipsync

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
	"beatforge/internal/queue"
	"beatforge/internal/services"
	"beatforge/internal/stage"
)

// LipSync is the placeholder sync pass. It performs an integrity-verified
// copy into the next stage folder and archives the consumed original, keeping
// the stage contract in place for a real implementation later.
type LipSync struct {
	store   *queue.Store
	cfg     *config.Config
	project layout.Project
	logger  *slog.Logger
}

// New constructs the lip-sync stage handler.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) *LipSync {
	stageLogger := logging.NewComponentLogger(logger, "lipsync")
	return &LipSync{
		store:   store,
		cfg:     cfg,
		project: layout.New(cfg.Paths.ProjectDir),
		logger:  stageLogger,
	}
}

func (l *LipSync) Prepare(ctx context.Context, asset *queue.Asset) error {
	logger := logging.WithContext(ctx, l.logger)
	asset.ErrorMessage = ""
	logger.Info("starting sync pass", logging.String("clip", asset.SourcePath))
	return nil
}

func (l *LipSync) Execute(ctx context.Context, asset *queue.Asset) error {
	logger := logging.WithContext(ctx, l.logger)

	if !fileutil.IsNonEmptyFile(asset.SourcePath) {
		return services.Wrap(services.ErrValidation, "lipsync", "validate clip",
			"clip missing or empty: "+asset.SourcePath, nil)
	}

	baseName := filepath.Base(asset.SourcePath)
	output, err := fileutil.ReserveName(func(n int) string {
		if n == 0 {
			return filepath.Join(l.project.LipSynced(), baseName)
		}
		ext := filepath.Ext(baseName)
		return filepath.Join(l.project.LipSynced(),
			fmt.Sprintf("%s(%d)%s", baseName[:len(baseName)-len(ext)], n, ext))
	})
	if err != nil {
		return services.Wrap(services.ErrTransient, "lipsync", "reserve output", asset.SourcePath, err)
	}

	if err := fileutil.CopyFileVerified(asset.SourcePath, output); err != nil {
		_ = os.Remove(output)
		return services.Wrap(services.ErrTransient, "lipsync", "verified copy", asset.SourcePath, err)
	}

	archived, err := layout.ArchiveOriginal(asset.SourcePath, l.project.Enhanced())
	if err != nil {
		return services.Wrap(services.ErrTransient, "lipsync", "archive original", asset.SourcePath, err)
	}
	asset.SourcePath = output
	asset.BaseName = layout.BaseName(output)

	logger.Info("sync pass complete",
		logging.String("output", output),
		logging.String("archived", archived))
	return nil
}

func (l *LipSync) HealthCheck(ctx context.Context) stage.Health {
	if _, err := os.Stat(l.project.LipSynced()); err != nil {
		return stage.Unhealthy("lipsync", "stage folder missing: "+l.project.LipSynced())
	}
	return stage.Healthy("lipsync")
}
