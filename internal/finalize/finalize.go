package finalize

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"beatforge/internal/config"
	"beatforge/internal/fileutil"
	"beatforge/internal/layout"
	"beatforge/internal/logging"
	"beatforge/internal/media/ffmpeg"
	"beatforge/internal/media/ffprobe"
	"beatforge/internal/media/thumbs"
	"beatforge/internal/queue"
	"beatforge/internal/services"
	"beatforge/internal/stage"
)

type probeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// thumbnailer produces a preview image for a finished clip.
type thumbnailer interface {
	Generate(ctx context.Context, videoPath string) (string, error)
}

// thumbFactory builds a thumbnailer writing into the given set folder.
type thumbFactory func(setDir string) thumbnailer

// Finalize packages a finished clip: it reserves a per-asset set folder under
// the edit assets area, archives the original to the Used folder, copies the
// clip into the set, and writes a metadata record and preview thumbnail
// alongside it.
type Finalize struct {
	store   *queue.Store
	cfg     *config.Config
	probe   probeFunc
	thumbs  thumbFactory
	project layout.Project
	logger  *slog.Logger
	now     func() time.Time
}

// New constructs the finalize stage handler with default dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Finalize {
	runner := ffmpeg.NewRunner(cfg.FFmpegBinary())
	timeout := time.Duration(cfg.Workflow.ThumbnailTimeoutSeconds) * time.Second
	factory := func(setDir string) thumbnailer {
		return thumbs.NewGenerator(runner, cfg.FFprobeBinary(), setDir, timeout)
	}
	return NewWithDependencies(cfg, store, logger, ffprobe.Inspect, factory)
}

// NewWithDependencies allows injecting collaborators (used in tests).
func NewWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, probe probeFunc, thumbs thumbFactory) *Finalize {
	stageLogger := logging.NewComponentLogger(logger, "finalize")
	return &Finalize{
		store:   store,
		cfg:     cfg,
		probe:   probe,
		thumbs:  thumbs,
		project: layout.New(cfg.Paths.ProjectDir),
		logger:  stageLogger,
		now:     time.Now,
	}
}

// MVAsset is the metadata record emitted next to each finalized video.
type MVAsset struct {
	XMLName          xml.Name          `xml:"MVAsset"`
	FileName         string            `xml:"FileName"`
	OriginalFileName string            `xml:"OriginalFileName"`
	ProcessedDate    string            `xml:"ProcessedDate"`
	Video            VideoInfo         `xml:"Video"`
	Audio            AudioInfo         `xml:"Audio"`
	History          ProcessingHistory `xml:"ProcessingHistory"`
}

type VideoInfo struct {
	Codec     string  `xml:"Codec"`
	Width     int     `xml:"Width"`
	Height    int     `xml:"Height"`
	FrameRate float64 `xml:"FrameRate"`
	Duration  float64 `xml:"Duration"`
	Bitrate   int64   `xml:"Bitrate"`
}

type AudioInfo struct {
	Codec      string `xml:"Codec"`
	SampleRate int    `xml:"SampleRate"`
	Channels   int    `xml:"Channels"`
	Bitrate    int64  `xml:"Bitrate"`
}

type ProcessingHistory struct {
	QualityEnhancement bool `xml:"QualityEnhancement"`
	Lipsync            bool `xml:"Lipsync"`
	Finalized          bool `xml:"Finalized"`
}

func (f *Finalize) Prepare(ctx context.Context, asset *queue.Asset) error {
	logger := logging.WithContext(ctx, f.logger)
	asset.ErrorMessage = ""
	logger.Info("starting finalization", logging.String("clip", asset.SourcePath))
	return nil
}

func (f *Finalize) Execute(ctx context.Context, asset *queue.Asset) error {
	logger := logging.WithContext(ctx, f.logger)

	if !fileutil.IsNonEmptyFile(asset.SourcePath) {
		return services.Wrap(services.ErrValidation, "finalize", "validate clip",
			"clip missing or empty: "+asset.SourcePath, nil)
	}

	result, err := f.probe(ctx, f.cfg.FFprobeBinary(), asset.SourcePath)
	if err != nil {
		return err
	}

	originalName := filepath.Base(asset.SourcePath)
	baseName := layout.BaseName(asset.SourcePath)
	setDir, err := fileutil.ReserveDir(func(n int) string {
		if n == 0 {
			return filepath.Join(f.project.EditAssets(), baseName)
		}
		return filepath.Join(f.project.EditAssets(), fmt.Sprintf("%s(%d)", baseName, n))
	})
	if err != nil {
		return services.Wrap(services.ErrTransient, "finalize", "reserve set folder", baseName, err)
	}

	// The original is retired into the Used archive first, then copied into
	// the set folder, so the archive always keeps a reusable copy. A source
	// already inside an archive is only copied.
	archivedPath, err := layout.ArchiveOriginal(asset.SourcePath, f.project.LipSynced())
	if err != nil {
		return services.Wrap(services.ErrTransient, "finalize", "archive original", asset.SourcePath, err)
	}
	finalPath, err := layout.Promote(archivedPath, setDir)
	if err != nil {
		return services.Wrap(services.ErrTransient, "finalize", "place clip", archivedPath, err)
	}

	record := f.buildRecord(finalPath, originalName, result)
	metaPath := filepath.Join(setDir, baseName+"_metadata.xml")
	if err := writeRecord(metaPath, record); err != nil {
		return services.Wrap(services.ErrTransient, "finalize", "write metadata", metaPath, err)
	}

	// Preview thumbnail is best effort; a set folder without one is
	// still complete.
	if thumbPath, err := f.thumbs(setDir).Generate(ctx, finalPath); err != nil {
		logger.Warn("thumbnail generation failed",
			logging.String("clip", finalPath), logging.Error(err))
	} else {
		logger.Info("thumbnail written", logging.String("thumbnail", thumbPath))
	}

	asset.SourcePath = finalPath
	asset.BaseName = baseName

	logger.Info("finalization complete",
		logging.String("set_folder", setDir),
		logging.String("clip", finalPath),
		logging.String("metadata", metaPath))
	return nil
}

func (f *Finalize) HealthCheck(ctx context.Context) stage.Health {
	if health := stage.RequireTool("finalize", f.cfg.FFprobeBinary()); !health.Ready {
		return health
	}
	return stage.RequireTool("finalize", f.cfg.FFmpegBinary())
}

func (f *Finalize) buildRecord(finalPath, originalName string, result ffprobe.Result) MVAsset {
	record := MVAsset{
		FileName:         filepath.Base(finalPath),
		OriginalFileName: originalName,
		ProcessedDate:    f.now().UTC().Format(time.RFC3339),
		History: ProcessingHistory{
			QualityEnhancement: true,
			Lipsync:            true,
			Finalized:          true,
		},
	}
	if video, ok := result.FirstVideoStream(); ok {
		record.Video = VideoInfo{
			Codec:     video.CodecName,
			Width:     video.Width,
			Height:    video.Height,
			FrameRate: video.FrameRate(0),
			Duration:  result.DurationSeconds(),
			Bitrate:   video.BitRateValue(),
		}
	}
	if audio, ok := result.FirstAudioStream(); ok {
		record.Audio = AudioInfo{
			Codec:      audio.CodecName,
			SampleRate: audio.SampleRateValue(),
			Channels:   audio.Channels,
			Bitrate:    audio.BitRateValue(),
		}
	}
	return record
}

func writeRecord(path string, record MVAsset) error {
	data, err := xml.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append([]byte(xml.Header), data...), 0o644)
}
