package config

import (
	"errors"
	"fmt"
	"strings"
)

// TilePolicyStrict and TilePolicyBestEffort are the accepted tiling modes for
// beat-synced plans whose clips run shorter than their beat windows.
const (
	TilePolicyStrict     = "strict"
	TilePolicyBestEffort = "best_effort"
)

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.ProjectDir) == "" {
		problems = append(problems, "paths.project_dir must not be empty")
	}
	if c.Assembly.BeatsPerClip < 1 {
		problems = append(problems, fmt.Sprintf("assembly.beats_per_clip must be >= 1, got %d", c.Assembly.BeatsPerClip))
	}
	switch c.Assembly.TilePolicy {
	case TilePolicyStrict, TilePolicyBestEffort:
	default:
		problems = append(problems, fmt.Sprintf("assembly.tile_policy must be %q or %q, got %q", TilePolicyStrict, TilePolicyBestEffort, c.Assembly.TilePolicy))
	}
	if c.Assembly.SegmentCRF < 0 || c.Assembly.SegmentCRF > 51 {
		problems = append(problems, fmt.Sprintf("assembly.segment_crf must be in [0,51], got %d", c.Assembly.SegmentCRF))
	}
	if c.Enhance.CRF < 0 || c.Enhance.CRF > 51 {
		problems = append(problems, fmt.Sprintf("enhance.crf must be in [0,51], got %d", c.Enhance.CRF))
	}
	if c.Enhance.TargetFPS < 1 {
		problems = append(problems, fmt.Sprintf("enhance.target_fps must be >= 1, got %d", c.Enhance.TargetFPS))
	}
	if c.Workflow.Workers < 1 {
		problems = append(problems, fmt.Sprintf("workflow.workers must be >= 1, got %d", c.Workflow.Workers))
	}
	if c.Workflow.DebounceMillis < 0 {
		problems = append(problems, fmt.Sprintf("workflow.debounce_millis must be >= 0, got %d", c.Workflow.DebounceMillis))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
