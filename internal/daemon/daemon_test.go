package daemon

import (
	"context"
	"testing"
	"time"

	"beatforge/internal/logging"
	"beatforge/internal/notifications"
	"beatforge/internal/testsupport"
	"beatforge/internal/workflow"
)

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.DebounceMillis = 10
	store := testsupport.MustOpenStore(t, cfg)
	wf := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), notifications.NewNop())

	d, err := New(cfg, store, logging.NewNop(), wf)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return d
}

func TestStartStop(t *testing.T) {
	d := newTestDaemon(t)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status(context.Background())
	if !status.Running {
		t.Fatal("expected running status")
	}
	if len(status.Stages) != 5 {
		t.Fatalf("expected 5 stage health checks, got %d", len(status.Stages))
	}

	done := make(chan struct{})
	go func() {
		d.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}
	if d.Status(context.Background()).Running {
		t.Fatal("expected stopped status")
	}
}

func TestSecondInstanceRejected(t *testing.T) {
	first := newTestDaemon(t)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer first.Stop()

	cfg := testsupport.NewConfig(t)
	cfg.Paths.LogDir = first.cfg.Paths.LogDir
	store := testsupport.MustOpenStore(t, cfg)
	wf := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), notifications.NewNop())
	second, err := New(cfg, store, logging.NewNop(), wf)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second instance to be rejected")
	}
}
