package thumbs

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"beatforge/internal/fileutil"
	"beatforge/internal/media/ffmpeg"
	"beatforge/internal/media/ffprobe"
)

// Generator produces small preview thumbnails for video assets. Extraction is
// bounded by a timeout because it runs opportunistically while status tooling
// waits on it.
type Generator struct {
	runner        *ffmpeg.Runner
	probeBinary   string
	cacheDir      string
	timeout       time.Duration
	defaultOffset float64
}

// NewGenerator constructs a Generator caching thumbnails under cacheDir.
func NewGenerator(runner *ffmpeg.Runner, probeBinary, cacheDir string, timeout time.Duration) *Generator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Generator{
		runner:        runner,
		probeBinary:   probeBinary,
		cacheDir:      cacheDir,
		timeout:       timeout,
		defaultOffset: 1.0,
	}
}

// Generate extracts a thumbnail for the given video, reusing a cached file
// when present. The returned path lives in the generator's cache directory.
func (g *Generator) Generate(ctx context.Context, videoPath string) (string, error) {
	if !fileutil.IsNonEmptyFile(videoPath) {
		return "", fmt.Errorf("thumbnail: source missing or empty: %s", videoPath)
	}
	if err := os.MkdirAll(g.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("thumbnail: ensure cache dir: %w", err)
	}

	// Content-addressed by source path so repeated calls reuse the file.
	sum := md5.Sum([]byte(videoPath))
	base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	thumbPath := filepath.Join(g.cacheDir, fmt.Sprintf("%s_%s_thumb.jpg", base, hex.EncodeToString(sum[:])[:8]))
	if fileutil.IsNonEmptyFile(thumbPath) {
		return thumbPath, nil
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	offset := g.defaultOffset
	if result, err := ffprobe.Inspect(timeoutCtx, g.probeBinary, videoPath); err == nil {
		offset = clampOffset(offset, result.DurationSeconds())
	}

	if err := g.runner.ExtractFrame(timeoutCtx, videoPath, offset, thumbPath); err != nil {
		_ = os.Remove(thumbPath)
		return "", err
	}
	if !fileutil.IsNonEmptyFile(thumbPath) {
		_ = os.Remove(thumbPath)
		return "", fmt.Errorf("thumbnail: empty output for %s", videoPath)
	}
	return thumbPath, nil
}

// clampOffset keeps the seek point inside the source. The preferred offset is
// pulled back to half a second before the end; sources shorter than a second
// seek to their midpoint instead. An unknown duration leaves the offset alone.
func clampOffset(offset, duration float64) float64 {
	if duration <= 0 {
		return offset
	}
	if clamped := min(offset, duration-0.5); clamped > 0 {
		return clamped
	}
	return duration / 2
}
