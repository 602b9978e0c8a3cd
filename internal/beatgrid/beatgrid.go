package beatgrid

import (
	"fmt"

	"beatforge/internal/services"
)

// DefaultBPM is assumed when a grid carries fewer than two beats.
const DefaultBPM = 120.0

// Grid holds the detected beat positions for one audio track.
type Grid struct {
	BPM       float64
	BeatTimes []float64
}

// TotalBeats returns the number of detected beats.
func (g *Grid) TotalBeats() int {
	return len(g.BeatTimes)
}

// New builds a grid from raw beat times, deriving tempo from the first
// inter-beat interval. Fewer than two beats falls back to DefaultBPM.
func New(beatTimes []float64) (*Grid, error) {
	if err := validateBeatTimes(beatTimes); err != nil {
		return nil, err
	}
	return &Grid{
		BPM:       bpmFromBeats(beatTimes),
		BeatTimes: beatTimes,
	}, nil
}

// FromPersisted rebuilds a grid from stored beat rows. Tempo is always
// recomputed from the beat times themselves rather than trusted from any
// cached value.
func FromPersisted(beatTimes []float64) (*Grid, error) {
	return New(beatTimes)
}

func bpmFromBeats(beatTimes []float64) float64 {
	if len(beatTimes) < 2 {
		return DefaultBPM
	}
	interval := beatTimes[1] - beatTimes[0]
	if interval <= 0 {
		return DefaultBPM
	}
	return 60.0 / interval
}

func validateBeatTimes(beatTimes []float64) error {
	for i, t := range beatTimes {
		if t < 0 {
			return services.Wrap(services.ErrValidation, "beatgrid", "validate",
				fmt.Sprintf("beat %d has negative time %.6f", i, t), nil)
		}
		if i > 0 && t <= beatTimes[i-1] {
			return services.Wrap(services.ErrValidation, "beatgrid", "validate",
				fmt.Sprintf("beat %d time %.6f does not increase past %.6f", i, t, beatTimes[i-1]), nil)
		}
	}
	return nil
}
