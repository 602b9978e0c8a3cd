package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// ProjectDir is the root under which all stage folders live.
	ProjectDir string `toml:"project_dir"`
	// LogDir holds the daemon log, the asset database, and the lock file.
	// Defaults to <project_dir>/Logs.
	LogDir string `toml:"log_dir"`
}

// Tools contains the external media tool binaries.
type Tools struct {
	FFmpeg    string `toml:"ffmpeg"`
	FFprobe   string `toml:"ffprobe"`
	BeatTrack string `toml:"beat_track"`
}

// Assembly contains settings for the composite assembly engine.
type Assembly struct {
	// BeatsPerClip is the number of consecutive beats grouped into one clip window.
	BeatsPerClip int `toml:"beats_per_clip"`
	// TilePolicy selects strict timeline tiling or best-effort drift ("strict" or "best_effort").
	TilePolicy string `toml:"tile_policy"`
	// SegmentPreset/SegmentCRF control the canonical per-segment re-encode.
	SegmentPreset string `toml:"segment_preset"`
	SegmentCRF    int    `toml:"segment_crf"`
	// AudioCodec is the deliverable audio codec.
	AudioCodec string `toml:"audio_codec"`
}

// Enhance contains settings for the quality-enhancement stage.
type Enhance struct {
	Preset string `toml:"preset"`
	CRF    int    `toml:"crf"`
	// TargetFPS is the frame-rate interpolation target for sources at or below it.
	TargetFPS int `toml:"target_fps"`
	// MaxWidth/MaxHeight cap the 2x upscale (4K by default).
	MaxWidth  int `toml:"max_width"`
	MaxHeight int `toml:"max_height"`
}

// Workflow contains orchestrator timing and concurrency settings.
type Workflow struct {
	// Workers bounds concurrent stage handlers.
	Workers int `toml:"workers"`
	// DebounceMillis is how long a created file must settle before processing.
	DebounceMillis int `toml:"debounce_millis"`
	// QueueDepth bounds the pending task queue.
	QueueDepth int `toml:"queue_depth"`
	// ThumbnailTimeoutSeconds bounds thumbnail extraction.
	ThumbnailTimeoutSeconds int `toml:"thumbnail_timeout_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Deliverables   bool   `toml:"deliverables"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for beatforge.
//
// Sections by subsystem:
//   - Paths: project root and log directory
//   - Tools: external binary names (ffmpeg, ffprobe, beat tracker)
//   - Assembly: beat window size, tiling policy, segment encode settings
//   - Enhance: upscale/interpolation settings for the quality pass
//   - Workflow: worker pool size, debounce, queue depth
//   - Notifications: ntfy push settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Tools         Tools         `toml:"tools"`
	Assembly      Assembly      `toml:"assembly"`
	Enhance       Enhance       `toml:"enhance"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/beatforge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("beatforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the project root and log directory.
// Stage folders themselves are owned by the layout package.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ProjectDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	if b := strings.TrimSpace(c.Tools.FFmpeg); b != "" {
		return b
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name.
func (c *Config) FFprobeBinary() string {
	if b := strings.TrimSpace(c.Tools.FFprobe); b != "" {
		return b
	}
	return "ffprobe"
}

// BeatTrackBinary returns the external beat-tracking executable name.
func (c *Config) BeatTrackBinary() string {
	if b := strings.TrimSpace(c.Tools.BeatTrack); b != "" {
		return b
	}
	return "aubio"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
