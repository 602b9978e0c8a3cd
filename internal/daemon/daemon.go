package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"beatforge/internal/config"
	"beatforge/internal/layout"
	"beatforge/internal/logging"
	"beatforge/internal/queue"
	"beatforge/internal/stage"
	"beatforge/internal/watcher"
	"beatforge/internal/workflow"
)

// Daemon runs the folder watcher and workflow manager as one background
// process, enforcing single-instance execution with a lock file.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	project  layout.Project

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status reports daemon runtime information.
type Status struct {
	Running      bool
	ProjectDir   string
	StoreDBPath  string
	LockFilePath string
	Stages       []stage.Health
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	lockPath := filepath.Join(cfg.Paths.LogDir, "beatforged.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		project:  layout.New(cfg.Paths.ProjectDir),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock, builds the stage folder layout, and
// launches the watcher and workflow manager.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another beatforge daemon instance is already running")
	}

	if err := d.project.Ensure(); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("ensure layout: %w", err)
	}

	debounce := time.Duration(d.cfg.Workflow.DebounceMillis) * time.Millisecond
	w, err := watcher.New(d.project, debounce, d.logger)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("start watcher: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		if err := w.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("watcher exited", logging.Error(err))
		}
	}()
	go func() {
		defer d.wg.Done()
		d.workflow.Run(runCtx, w.Events())
	}()

	d.running.Store(true)
	d.logger.Info("beatforge daemon started",
		logging.String("project", d.cfg.Paths.ProjectDir),
		logging.String("lock", d.lockPath))
	return nil
}

// Stop halts background processing and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("beatforge daemon stopped")
}

// Close stops the daemon and releases held resources.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status summarizes the daemon's runtime state.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		ProjectDir:   d.cfg.Paths.ProjectDir,
		StoreDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		Stages:       d.workflow.Health(ctx),
	}
}
