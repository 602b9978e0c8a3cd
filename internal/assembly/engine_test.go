package assembly

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"beatforge/internal/logging"
	"beatforge/internal/media/ffmpeg"
	"beatforge/internal/media/ffprobe"
	"beatforge/internal/testsupport"
)

// stubProbe serves canned results keyed by base filename.
type stubProbe map[string]ffprobe.Result

func (p stubProbe) inspect(ctx context.Context, binary, path string) (ffprobe.Result, error) {
	result, ok := p[filepath.Base(path)]
	if !ok {
		return ffprobe.Result{}, fmt.Errorf("no probe result for %s", path)
	}
	return result, nil
}

func videoResult(duration float64, width, height int, frameRate string) ffprobe.Result {
	return ffprobe.Result{
		Streams: []ffprobe.Stream{
			{CodecType: "video", CodecName: "h264", Width: width, Height: height, RFrameRate: frameRate},
		},
		Format: ffprobe.Format{Duration: fmt.Sprintf("%.1f", duration)},
	}
}

func audioResult(duration float64) ffprobe.Result {
	return ffprobe.Result{
		Streams: []ffprobe.Stream{{CodecType: "audio", CodecName: "mp3"}},
		Format:  ffprobe.Format{Duration: fmt.Sprintf("%.1f", duration)},
	}
}

// stubRunner records every tool invocation and fabricates output files.
type stubRunner struct {
	encodes  []ffmpeg.EncodeSpec
	trims    []float64
	muxed    int
	muxEmpty bool
}

func writeStub(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func (r *stubRunner) Encode(ctx context.Context, spec ffmpeg.EncodeSpec) error {
	r.encodes = append(r.encodes, spec)
	return os.WriteFile(spec.Output, []byte("segment"), 0o644)
}

func (r *stubRunner) ConcatCopy(ctx context.Context, listFile, output string, maxDuration float64) error {
	return os.WriteFile(output, []byte("timeline"), 0o644)
}

func (r *stubRunner) TrimCopy(ctx context.Context, input, output string, duration float64) error {
	r.trims = append(r.trims, duration)
	return os.WriteFile(output, []byte("trimmed"), 0o644)
}

func (r *stubRunner) Mux(ctx context.Context, videoPath, audioPath, output, audioCodec string) error {
	r.muxed++
	if r.muxEmpty {
		return os.WriteFile(output, nil, 0o644)
	}
	return os.WriteFile(output, []byte("musicvideo"), 0o644)
}

func newTestEngine(t *testing.T, probe stubProbe, runner *stubRunner) *Engine {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return NewEngineWithDependencies(cfg, logging.NewNop(), probe.inspect, runner)
}

func writeClipPool(t *testing.T, dir string) (audio, clipA, clipB string) {
	t.Helper()
	audio = filepath.Join(dir, "track.mp3")
	clipA = filepath.Join(dir, "montage.mp4")
	clipB = filepath.Join(dir, "closeup.mp4")
	writeStub(t, audio, "audio")
	writeStub(t, clipA, "clipA")
	writeStub(t, clipB, "clipB")
	return audio, clipA, clipB
}

func TestAssembleNormalizesSegmentsToFirstClipFormat(t *testing.T) {
	dir := t.TempDir()
	audio, clipA, clipB := writeClipPool(t, dir)

	probe := stubProbe{
		"track.mp3":    audioResult(5.0),
		"montage.mp4":  videoResult(2.0, 1280, 720, "30/1"),
		"closeup.mp4":  videoResult(4.0, 640, 480, "25/1"),
		"timeline.mp4": videoResult(5.0, 1280, 720, "30/1"),
	}
	runner := &stubRunner{}
	engine := newTestEngine(t, probe, runner)

	result, err := engine.Assemble(context.Background(), Request{
		AudioPath: audio,
		ClipPaths: []string{clipA, clipB},
		OutputDir: dir,
		BaseName:  "track",
	})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	if result.SyncMode != SyncModeSequential {
		t.Fatalf("expected sequential mode, got %s", result.SyncMode)
	}
	if result.SegmentCount != 2 || result.ClipCount != 2 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if !strings.HasSuffix(result.OutputPath, "track_musicvideo.mp4") {
		t.Fatalf("unexpected output name: %s", result.OutputPath)
	}
	data, err := os.ReadFile(result.OutputPath)
	if err != nil || len(data) == 0 {
		t.Fatalf("expected non-empty deliverable: %v", err)
	}

	// Every segment must share the first playable clip's geometry so the
	// copy-concat of the timeline is valid.
	if len(runner.encodes) != 2 {
		t.Fatalf("expected 2 segment encodes, got %d", len(runner.encodes))
	}
	for i, spec := range runner.encodes {
		joined := strings.Join(spec.Filters, ",")
		if !strings.Contains(joined, "scale=1280:720") {
			t.Fatalf("segment %d missing scale filter: %q", i, joined)
		}
		if !strings.Contains(joined, "fps=30") {
			t.Fatalf("segment %d missing fps filter: %q", i, joined)
		}
		if !spec.DropAudio {
			t.Fatalf("segment %d keeps its audio stream", i)
		}
	}
}

func TestAssembleSuffixesOutputOnCollision(t *testing.T) {
	dir := t.TempDir()
	audio, clipA, _ := writeClipPool(t, dir)

	probe := stubProbe{
		"track.mp3":    audioResult(5.0),
		"montage.mp4":  videoResult(5.0, 1920, 1080, "24/1"),
		"timeline.mp4": videoResult(5.0, 1920, 1080, "24/1"),
	}
	runner := &stubRunner{}
	engine := newTestEngine(t, probe, runner)

	req := Request{AudioPath: audio, ClipPaths: []string{clipA}, OutputDir: dir, BaseName: "track"}
	first, err := engine.Assemble(context.Background(), req)
	if err != nil {
		t.Fatalf("first Assemble failed: %v", err)
	}
	second, err := engine.Assemble(context.Background(), req)
	if err != nil {
		t.Fatalf("second Assemble failed: %v", err)
	}
	if second.OutputPath == first.OutputPath {
		t.Fatal("expected second run to reserve a suffixed name")
	}
	if !strings.HasSuffix(second.OutputPath, "track_musicvideo(1).mp4") {
		t.Fatalf("unexpected second output name: %s", second.OutputPath)
	}
}

func TestAssembleTrimsOvershootingTimeline(t *testing.T) {
	dir := t.TempDir()
	audio, clipA, _ := writeClipPool(t, dir)

	// The concatenated timeline probes longer than the track, so the engine
	// must stream-copy it back down to the track length.
	probe := stubProbe{
		"track.mp3":    audioResult(5.0),
		"montage.mp4":  videoResult(3.0, 1920, 1080, "24/1"),
		"timeline.mp4": videoResult(6.0, 1920, 1080, "24/1"),
	}
	runner := &stubRunner{}
	engine := newTestEngine(t, probe, runner)

	if _, err := engine.Assemble(context.Background(), Request{
		AudioPath: audio,
		ClipPaths: []string{clipA},
		OutputDir: dir,
		BaseName:  "track",
	}); err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	if len(runner.trims) != 1 || runner.trims[0] != 5.0 {
		t.Fatalf("expected one trim to 5.0s, got %v", runner.trims)
	}
}

func TestAssembleRejectsEmptyDeliverable(t *testing.T) {
	dir := t.TempDir()
	audio, clipA, _ := writeClipPool(t, dir)

	probe := stubProbe{
		"track.mp3":    audioResult(5.0),
		"montage.mp4":  videoResult(5.0, 1920, 1080, "24/1"),
		"timeline.mp4": videoResult(5.0, 1920, 1080, "24/1"),
	}
	runner := &stubRunner{muxEmpty: true}
	engine := newTestEngine(t, probe, runner)

	_, err := engine.Assemble(context.Background(), Request{
		AudioPath: audio,
		ClipPaths: []string{clipA},
		OutputDir: dir,
		BaseName:  "track",
	})
	if err == nil {
		t.Fatal("expected error for empty mux output")
	}
	if runner.muxed != 1 {
		t.Fatalf("expected exactly one mux attempt, got %d", runner.muxed)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "track_musicvideo.mp4")); !os.IsNotExist(statErr) {
		t.Fatal("expected empty deliverable removed")
	}
}

func TestPadSegmentListRepeatsFinalSegment(t *testing.T) {
	files := []string{"seg0.mp4", "seg1.mp4"}

	list := padSegmentList(files, 45.0, 20.0, 65.0)
	if len(list) != 3 {
		t.Fatalf("expected one repeat, got %v", list)
	}
	if list[2] != "seg1.mp4" {
		t.Fatalf("expected final segment repeated, got %q", list[2])
	}

	// 45 + 20 reaches 65 exactly; after one repeat the loop stops. A gap of
	// several final-segment lengths repeats as many times as needed.
	list = padSegmentList(files, 10.0, 5.0, 23.0)
	if len(list) != 5 {
		t.Fatalf("expected three repeats, got %v", list)
	}
}

func TestPadSegmentListNoPadWhenLongEnough(t *testing.T) {
	files := []string{"seg0.mp4"}

	list := padSegmentList(files, 70.0, 70.0, 65.0)
	if len(list) != 1 {
		t.Fatalf("expected untouched list, got %v", list)
	}
}

func TestPadSegmentListGuardsZeroFinalDuration(t *testing.T) {
	files := []string{"seg0.mp4"}

	list := padSegmentList(files, 10.0, 0, 65.0)
	if len(list) != 1 {
		t.Fatalf("expected untouched list for zero-length final segment, got %v", list)
	}
}
