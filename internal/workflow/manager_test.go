package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"beatforge/internal/layout"
	"beatforge/internal/logging"
	"beatforge/internal/notifications"
	"beatforge/internal/queue"
	"beatforge/internal/services"
	"beatforge/internal/stage"
	"beatforge/internal/testsupport"
	"beatforge/internal/watcher"
)

type recordingHandler struct {
	mu       sync.Mutex
	executed []string
	err      error
}

func (h *recordingHandler) Prepare(ctx context.Context, asset *queue.Asset) error { return nil }

func (h *recordingHandler) Execute(ctx context.Context, asset *queue.Asset) error {
	h.mu.Lock()
	h.executed = append(h.executed, asset.SourcePath)
	h.mu.Unlock()
	return h.err
}

func (h *recordingHandler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("recording")
}

func (h *recordingHandler) paths() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.executed...)
}

func runEvents(t *testing.T, m *Manager, events ...watcher.Event) {
	t.Helper()
	ch := make(chan watcher.Event, len(events))
	for _, event := range events {
		ch <- event
	}
	close(ch)

	done := make(chan struct{})
	go func() {
		m.Run(context.Background(), ch)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not drain events")
	}
}

func TestProcessRegistersAndCompletesAsset(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	m := NewManagerWithNotifier(cfg, store, logging.NewNop(), notifications.NewNop())

	handler := &recordingHandler{}
	m.SetHandler(layout.DirInput, handler)

	runEvents(t, m, watcher.Event{
		Path:   "/project/01_Input/track.mp3",
		Kind:   queue.KindAudio,
		Folder: layout.DirInput,
	})

	if got := handler.paths(); len(got) != 1 || got[0] != "/project/01_Input/track.mp3" {
		t.Fatalf("unexpected executions: %v", got)
	}

	asset, err := store.FindBySourcePath(context.Background(), "/project/01_Input/track.mp3")
	if err != nil || asset == nil {
		t.Fatalf("expected registered asset: %v", err)
	}
	if asset.Status != queue.StatusAnalyzed {
		t.Fatalf("expected analyzed status, got %s", asset.Status)
	}
	if asset.Kind != queue.KindAudio {
		t.Fatalf("expected audio kind, got %s", asset.Kind)
	}
}

func TestProcessFailureRecordsErrorWithoutTransition(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	m := NewManagerWithNotifier(cfg, store, logging.NewNop(), notifications.NewNop())

	handlerErr := services.Wrap(services.ErrExternalTool, "enhance", "encode", "boom", nil)
	m.SetHandler(layout.DirEnhancing, &recordingHandler{err: handlerErr})

	runEvents(t, m, watcher.Event{
		Path:   "/project/04_Enhancing/clip.mp4",
		Kind:   queue.KindVideo,
		Folder: layout.DirEnhancing,
	})

	asset, err := store.FindBySourcePath(context.Background(), "/project/04_Enhancing/clip.mp4")
	if err != nil || asset == nil {
		t.Fatalf("expected registered asset: %v", err)
	}
	if asset.Status != queue.StatusFailed {
		t.Fatalf("expected failed status, got %s", asset.Status)
	}
	if asset.ErrorMessage == "" {
		t.Fatal("expected recorded error message")
	}
}

func TestProcessSkipsInFlightAsset(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	m := NewManagerWithNotifier(cfg, store, logging.NewNop(), notifications.NewNop())

	handler := &recordingHandler{}
	m.SetHandler(layout.DirEnhancing, handler)

	if _, err := store.NewAsset(context.Background(),
		"/project/04_Enhancing/clip.mp4", "clip", queue.KindVideo, queue.StatusEnhancing); err != nil {
		t.Fatalf("seed asset: %v", err)
	}

	runEvents(t, m, watcher.Event{
		Path:   "/project/04_Enhancing/clip.mp4",
		Kind:   queue.KindVideo,
		Folder: layout.DirEnhancing,
	})

	if got := handler.paths(); len(got) != 0 {
		t.Fatalf("expected in-flight asset skipped, got %v", got)
	}
}

func TestProcessParallelAcrossAssets(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.Workers = 4
	store := testsupport.MustOpenStore(t, cfg)
	m := NewManagerWithNotifier(cfg, store, logging.NewNop(), notifications.NewNop())

	handler := &recordingHandler{}
	m.SetHandler(layout.DirRawVideo, handler)

	events := make([]watcher.Event, 0, 8)
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		events = append(events, watcher.Event{
			Path:   "/project/02_RawVideo/" + name + ".mp4",
			Kind:   queue.KindVideo,
			Folder: layout.DirRawVideo,
		})
	}
	runEvents(t, m, events...)

	if got := handler.paths(); len(got) != 8 {
		t.Fatalf("expected all assets processed, got %d", len(got))
	}
}

func TestHealthCoversAllStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	m := NewManagerWithNotifier(cfg, store, logging.NewNop(), notifications.NewNop())

	checks := m.Health(context.Background())
	if len(checks) != 5 {
		t.Fatalf("expected 5 stage checks, got %d", len(checks))
	}
}

func TestNotifierErrorPathTolerated(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	m := NewManagerWithNotifier(cfg, store, logging.NewNop(), failingNotifier{})

	m.SetHandler(layout.DirInput, &recordingHandler{err: errors.New("boom")})

	runEvents(t, m, watcher.Event{
		Path:   "/project/01_Input/track.mp3",
		Kind:   queue.KindAudio,
		Folder: layout.DirInput,
	})
}

type failingNotifier struct{}

func (failingNotifier) NotifyDeliverableReady(context.Context, string, int, string) error {
	return errors.New("ntfy down")
}

func (failingNotifier) NotifyAssetFinalized(context.Context, string) error {
	return errors.New("ntfy down")
}

func (failingNotifier) NotifyError(context.Context, error, string) error {
	return errors.New("ntfy down")
}

func (failingNotifier) TestNotification(context.Context) error {
	return errors.New("ntfy down")
}
