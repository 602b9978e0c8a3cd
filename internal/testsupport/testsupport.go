package testsupport

import (
	"path/filepath"
	"testing"

	"beatforge/internal/config"
	"beatforge/internal/layout"
	"beatforge/internal/queue"
)

// NewConfig returns a default configuration rooted in a per-test temp
// directory with the full stage folder layout created.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()
	defaults := config.Default()
	cfg := &defaults
	cfg.Paths.ProjectDir = t.TempDir()
	cfg.Paths.LogDir = filepath.Join(cfg.Paths.ProjectDir, layout.DirLogs)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := layout.New(cfg.Paths.ProjectDir).Ensure(); err != nil {
		t.Fatalf("ensure layout: %v", err)
	}
	return cfg
}

// MustOpenStore opens the asset store for the config and closes it with the
// test.
func MustOpenStore(t *testing.T, cfg *config.Config) *queue.Store {
	t.Helper()
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
