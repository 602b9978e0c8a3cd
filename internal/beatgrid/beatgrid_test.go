package beatgrid

import (
	"errors"
	"math"
	"testing"

	"beatforge/internal/services"
)

func TestBPMFromFirstInterval(t *testing.T) {
	grid, err := New([]float64{0.5, 1.0, 1.5, 2.0})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if math.Abs(grid.BPM-120.0) > 1e-9 {
		t.Fatalf("expected 120 BPM, got %v", grid.BPM)
	}
	if grid.TotalBeats() != 4 {
		t.Fatalf("expected 4 beats, got %d", grid.TotalBeats())
	}
}

func TestBPMIgnoresLaterIntervals(t *testing.T) {
	// Only the first inter-beat gap sets the tempo; drift later in the
	// track does not change it.
	grid, err := New([]float64{0.0, 0.4, 1.5, 4.0})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if math.Abs(grid.BPM-150.0) > 1e-9 {
		t.Fatalf("expected 150 BPM, got %v", grid.BPM)
	}
}

func TestBPMDefaultsWithFewBeats(t *testing.T) {
	for _, beats := range [][]float64{nil, {}, {1.25}} {
		grid, err := New(beats)
		if err != nil {
			t.Fatalf("New(%v) failed: %v", beats, err)
		}
		if grid.BPM != DefaultBPM {
			t.Fatalf("New(%v): expected default BPM, got %v", beats, grid.BPM)
		}
	}
}

func TestFromPersistedRecomputesBPM(t *testing.T) {
	saved := []float64{2.0, 2.25, 2.5}
	grid, err := FromPersisted(saved)
	if err != nil {
		t.Fatalf("FromPersisted failed: %v", err)
	}
	if math.Abs(grid.BPM-240.0) > 1e-9 {
		t.Fatalf("expected 240 BPM recomputed from persisted beats, got %v", grid.BPM)
	}
}

func TestValidationRejectsNonIncreasing(t *testing.T) {
	cases := [][]float64{
		{1.0, 1.0},
		{1.0, 0.5},
		{-0.5, 1.0},
	}
	for _, beats := range cases {
		if _, err := New(beats); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("New(%v): expected validation error, got %v", beats, err)
		}
	}
}

func TestParseBeatOutput(t *testing.T) {
	output := "0.498776\n1.002812\n\n1.506848 beat\nnoise line\n"
	times, err := parseBeatOutput(output)
	if err != nil {
		t.Fatalf("parseBeatOutput failed: %v", err)
	}
	want := []float64{0.498776, 1.002812, 1.506848}
	if len(times) != len(want) {
		t.Fatalf("expected %d beats, got %d: %v", len(want), len(times), times)
	}
	for i := range want {
		if times[i] != want[i] {
			t.Fatalf("beat %d: expected %v, got %v", i, want[i], times[i])
		}
	}
}
