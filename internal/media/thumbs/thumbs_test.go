package thumbs

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"beatforge/internal/media/ffmpeg"
)

func TestGenerateReusesCachedThumbnail(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(video, []byte("video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}

	cacheDir := filepath.Join(dir, "cache")
	sum := md5.Sum([]byte(video))
	cached := filepath.Join(cacheDir, fmt.Sprintf("clip_%s_thumb.jpg", hex.EncodeToString(sum[:])[:8]))
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		t.Fatalf("mkdir cache: %v", err)
	}
	if err := os.WriteFile(cached, []byte("jpeg"), 0o644); err != nil {
		t.Fatalf("write cached thumb: %v", err)
	}

	// The binaries do not exist, so any cache miss would fail loudly.
	gen := NewGenerator(ffmpeg.NewRunner("/nonexistent/ffmpeg"), "/nonexistent/ffprobe", cacheDir, time.Second)
	got, err := gen.Generate(context.Background(), video)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got != cached {
		t.Fatalf("expected cached path %s, got %s", cached, got)
	}
}

func TestClampOffset(t *testing.T) {
	tests := []struct {
		name     string
		offset   float64
		duration float64
		want     float64
	}{
		{"long source keeps default", 1.0, 30.0, 1.0},
		{"pulled back from the end", 1.0, 1.2, 0.7},
		{"short source seeks midpoint", 1.0, 0.4, 0.2},
		{"half second boundary", 1.0, 0.5, 0.25},
		{"unknown duration untouched", 1.0, 0, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clampOffset(tt.offset, tt.duration)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("clampOffset(%v, %v) = %v, want %v", tt.offset, tt.duration, got, tt.want)
			}
		})
	}
}

func TestGenerateRejectsMissingSource(t *testing.T) {
	dir := t.TempDir()
	gen := NewGenerator(ffmpeg.NewRunner("ffmpeg"), "ffprobe", dir, time.Second)
	if _, err := gen.Generate(context.Background(), filepath.Join(dir, "absent.mp4")); err == nil {
		t.Fatal("expected error for missing source")
	}
}
