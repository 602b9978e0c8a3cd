package intake

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"beatforge/internal/beatgrid"
	"beatforge/internal/layout"
	"beatforge/internal/logging"
	"beatforge/internal/queue"
	"beatforge/internal/services"
	"beatforge/internal/testsupport"
)

type stubAnalyzer struct {
	grid *beatgrid.Grid
	err  error
}

func (s *stubAnalyzer) Analyze(ctx context.Context, audioPath string) (*beatgrid.Grid, error) {
	return s.grid, s.err
}

func TestExecuteAnalyzesAndMovesTrack(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	project := layout.New(cfg.Paths.ProjectDir)

	src := filepath.Join(project.Input(), "song.mp3")
	if err := os.WriteFile(src, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write track: %v", err)
	}

	grid, err := beatgrid.New([]float64{0.5, 1.0, 1.5})
	if err != nil {
		t.Fatalf("beatgrid.New failed: %v", err)
	}
	handler := NewWithAnalyzer(cfg, store, logging.NewNop(), &stubAnalyzer{grid: grid})

	asset, err := store.NewAsset(context.Background(), src, "song", queue.KindAudio, queue.StatusPending)
	if err != nil {
		t.Fatalf("NewAsset failed: %v", err)
	}

	if err := handler.Execute(context.Background(), asset); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	moved := filepath.Join(project.AudioAssets(), "song.mp3")
	if asset.SourcePath != moved {
		t.Fatalf("expected track moved to %s, got %s", moved, asset.SourcePath)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("expected original removed from intake folder")
	}

	times, err := store.LoadBeatTimes(context.Background(), "song")
	if err != nil {
		t.Fatalf("LoadBeatTimes failed: %v", err)
	}
	if len(times) != 3 || times[0] != 0.5 {
		t.Fatalf("unexpected persisted grid: %v", times)
	}
}

func TestExecuteRejectsMissingTrack(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	handler := NewWithAnalyzer(cfg, store, logging.NewNop(), &stubAnalyzer{})

	asset := &queue.Asset{ID: 1, SourcePath: filepath.Join(cfg.Paths.ProjectDir, "missing.mp3")}
	err := handler.Execute(context.Background(), asset)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExecutePropagatesAnalysisFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	project := layout.New(cfg.Paths.ProjectDir)

	src := filepath.Join(project.Input(), "song.mp3")
	if err := os.WriteFile(src, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write track: %v", err)
	}

	analyzeErr := services.Wrap(services.ErrAnalysis, "beatgrid", "track beats", "empty waveform", nil)
	handler := NewWithAnalyzer(cfg, store, logging.NewNop(), &stubAnalyzer{err: analyzeErr})

	asset := &queue.Asset{ID: 1, SourcePath: src}
	if err := handler.Execute(context.Background(), asset); !errors.Is(err, services.ErrAnalysis) {
		t.Fatalf("expected analysis error, got %v", err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("expected track untouched after failure: %v", err)
	}
}
