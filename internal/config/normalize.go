package config

import (
	"path/filepath"
	"strings"
)

// normalize expands paths and fills derived defaults after decoding.
func (c *Config) normalize() error {
	projectDir, err := expandPath(c.Paths.ProjectDir)
	if err != nil {
		return err
	}
	c.Paths.ProjectDir = projectDir

	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(projectDir, "Logs")
	} else {
		logDir, err := expandPath(c.Paths.LogDir)
		if err != nil {
			return err
		}
		c.Paths.LogDir = logDir
	}

	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	c.Tools.BeatTrack = strings.TrimSpace(c.Tools.BeatTrack)

	c.Assembly.TilePolicy = strings.ToLower(strings.TrimSpace(c.Assembly.TilePolicy))
	if c.Assembly.TilePolicy == "" {
		c.Assembly.TilePolicy = defaultTilePolicy
	}
	if c.Assembly.BeatsPerClip == 0 {
		c.Assembly.BeatsPerClip = defaultBeatsPerClip
	}
	if c.Assembly.SegmentCRF == 0 {
		c.Assembly.SegmentCRF = defaultSegmentCRF
	}
	if strings.TrimSpace(c.Assembly.SegmentPreset) == "" {
		c.Assembly.SegmentPreset = defaultSegmentPreset
	}
	if strings.TrimSpace(c.Assembly.AudioCodec) == "" {
		c.Assembly.AudioCodec = defaultAudioCodec
	}

	if c.Enhance.CRF == 0 {
		c.Enhance.CRF = defaultEnhanceCRF
	}
	if strings.TrimSpace(c.Enhance.Preset) == "" {
		c.Enhance.Preset = defaultEnhancePreset
	}
	if c.Enhance.TargetFPS == 0 {
		c.Enhance.TargetFPS = defaultTargetFPS
	}
	if c.Enhance.MaxWidth == 0 {
		c.Enhance.MaxWidth = defaultMaxWidth
	}
	if c.Enhance.MaxHeight == 0 {
		c.Enhance.MaxHeight = defaultMaxHeight
	}

	if c.Workflow.Workers == 0 {
		c.Workflow.Workers = defaultWorkers
	}
	if c.Workflow.DebounceMillis == 0 {
		c.Workflow.DebounceMillis = defaultDebounceMillis
	}
	if c.Workflow.QueueDepth == 0 {
		c.Workflow.QueueDepth = defaultQueueDepth
	}
	if c.Workflow.ThumbnailTimeoutSeconds == 0 {
		c.Workflow.ThumbnailTimeoutSeconds = defaultThumbnailTimeoutSeconds
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}

	return nil
}
