package main

import (
	"context"
	"path/filepath"
	"testing"

	"beatforge/internal/testsupport"
)

func TestLoadGridMissingAnalysis(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	grid, warning := loadGrid(context.Background(), store, filepath.Join(cfg.Paths.ProjectDir, "track.mp3"))
	if grid != nil {
		t.Fatalf("expected nil grid for unanalyzed track, got %+v", grid)
	}
	if warning != "" {
		t.Fatalf("missing analysis is not a warning condition, got %q", warning)
	}
}

func TestLoadGridUsableAnalysis(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if err := store.SaveBeatTimes(context.Background(), "track", []float64{0.5, 1.0, 1.5, 2.0}); err != nil {
		t.Fatalf("save beat times: %v", err)
	}

	grid, warning := loadGrid(context.Background(), store, filepath.Join(cfg.Paths.ProjectDir, "track.mp3"))
	if warning != "" {
		t.Fatalf("unexpected warning: %q", warning)
	}
	if grid == nil || grid.TotalBeats() != 4 {
		t.Fatalf("expected 4-beat grid, got %+v", grid)
	}
}

func TestLoadGridFallsBackOnCorruptedRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	// Non-increasing beat rows fail grid validation. That must degrade to
	// sequential fill with a warning, never abort the assembly.
	if err := store.SaveBeatTimes(context.Background(), "track", []float64{3.0, 1.0}); err != nil {
		t.Fatalf("save beat times: %v", err)
	}

	grid, warning := loadGrid(context.Background(), store, filepath.Join(cfg.Paths.ProjectDir, "track.mp3"))
	if grid != nil {
		t.Fatalf("expected nil grid for corrupted rows, got %+v", grid)
	}
	if warning == "" {
		t.Fatal("expected a warning describing the unusable grid")
	}
}
