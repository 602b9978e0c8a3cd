package planner

import (
	"fmt"

	"beatforge/internal/beatgrid"
	"beatforge/internal/services"
)

// DefaultBeatsPerClip is how many beats one clip covers in beat-synced mode.
const DefaultBeatsPerClip = 4

// Tile policies govern what happens when a clip runs shorter than its
// assigned beat window. Best effort accepts the resulting drift; strict
// rejects the plan so the timeline tiles the track exactly.
const (
	TileBestEffort = "best_effort"
	TileStrict     = "strict"
)

// Clip is one candidate video source with its probed duration.
type Clip struct {
	Path     string
	Duration float64
}

// Segment places a trimmed slice of one clip on the output timeline.
type Segment struct {
	ClipIndex     int
	ClipPath      string
	TrimStart     float64
	TrimDuration  float64
	PlacementTime float64
}

// Options tunes plan construction.
type Options struct {
	BeatsPerClip int
	TilePolicy   string
}

func (o Options) beatsPerClip() int {
	if o.BeatsPerClip > 0 {
		return o.BeatsPerClip
	}
	return DefaultBeatsPerClip
}

// Plan builds the segment timeline for one track. With a usable beat grid the
// plan is beat-synced; otherwise clips fill the track sequentially.
func Plan(clips []Clip, audioDuration float64, grid *beatgrid.Grid, opts Options) ([]Segment, error) {
	if grid != nil && grid.TotalBeats() >= 2 {
		return PlanBeatSynced(clips, audioDuration, grid, opts)
	}
	return PlanSequential(clips, audioDuration, opts)
}

// PlanBeatSynced walks the grid in windows of BeatsPerClip beats and assigns
// clips round-robin, one per window. A clip shorter than its window is cut at
// its own length; the final window is closed at the track's end. The
// round-robin cursor advances on every window, including skipped ones, so the
// clip rotation stays aligned with the grid.
func PlanBeatSynced(clips []Clip, audioDuration float64, grid *beatgrid.Grid, opts Options) ([]Segment, error) {
	if err := validateInputs(clips, audioDuration); err != nil {
		return nil, err
	}

	beats := grid.BeatTimes
	perClip := opts.beatsPerClip()

	var segments []Segment
	clipCursor := 0
	for idx := 0; idx < len(beats); idx += perClip {
		start := beats[idx]
		end := audioDuration
		if next := idx + perClip; next < len(beats) {
			end = beats[next]
		}

		clipIndex := clipCursor % len(clips)
		clip := clips[clipIndex]
		clipCursor++

		windowDur := end - start
		if windowDur <= 0 || clip.Duration <= 0 {
			continue
		}

		segDur := windowDur
		if clip.Duration < segDur {
			if opts.TilePolicy == TileStrict {
				return nil, services.Wrap(services.ErrPlanning, "planner", "beat sync",
					fmt.Sprintf("clip %q runs %.3fs, shorter than its %.3fs beat window under strict tiling",
						clip.Path, clip.Duration, windowDur), nil)
			}
			segDur = clip.Duration
		}
		segments = append(segments, Segment{
			ClipIndex:     clipIndex,
			ClipPath:      clip.Path,
			TrimDuration:  segDur,
			PlacementTime: start,
		})
	}

	if len(segments) == 0 {
		return nil, services.Wrap(services.ErrPlanning, "planner", "beat sync",
			"no playable segments for the grid", nil)
	}
	return segments, nil
}

// PlanSequential fills the track front to back, cycling through the clip pool
// in order and cutting the final segment at the track's end.
func PlanSequential(clips []Clip, audioDuration float64, opts Options) ([]Segment, error) {
	if err := validateInputs(clips, audioDuration); err != nil {
		return nil, err
	}
	if !hasPlayableClip(clips) {
		return nil, services.Wrap(services.ErrPlanning, "planner", "sequential",
			"every clip has zero duration", nil)
	}

	var segments []Segment
	elapsed := 0.0
	cursor := 0
	for elapsed < audioDuration {
		clipIndex := cursor % len(clips)
		clip := clips[clipIndex]
		cursor++
		if clip.Duration <= 0 {
			continue
		}

		segDur := clip.Duration
		if remaining := audioDuration - elapsed; segDur > remaining {
			segDur = remaining
		}
		segments = append(segments, Segment{
			ClipIndex:     clipIndex,
			ClipPath:      clip.Path,
			TrimDuration:  segDur,
			PlacementTime: elapsed,
		})
		elapsed += segDur
	}
	return segments, nil
}

// TotalDuration sums the planned segment durations.
func TotalDuration(segments []Segment) float64 {
	var total float64
	for _, segment := range segments {
		total += segment.TrimDuration
	}
	return total
}

func validateInputs(clips []Clip, audioDuration float64) error {
	if len(clips) == 0 {
		return services.Wrap(services.ErrPlanning, "planner", "validate", "no clips available", nil)
	}
	if audioDuration <= 0 {
		return services.Wrap(services.ErrPlanning, "planner", "validate",
			fmt.Sprintf("non-positive track duration %.3f", audioDuration), nil)
	}
	return nil
}

func hasPlayableClip(clips []Clip) bool {
	for _, clip := range clips {
		if clip.Duration > 0 {
			return true
		}
	}
	return false
}
