package workflow

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"beatforge/internal/config"
	"beatforge/internal/enhance"
	"beatforge/internal/finalize"
	"beatforge/internal/intake"
	"beatforge/internal/layout"
	"beatforge/internal/lipsync"
	"beatforge/internal/logging"
	"beatforge/internal/notifications"
	"beatforge/internal/queue"
	"beatforge/internal/rawvideo"
	"beatforge/internal/services"
	"beatforge/internal/stage"
	"beatforge/internal/watcher"
)

// binding ties one stage folder to its handler and status transitions.
type binding struct {
	name    string
	handler stage.Handler
	running queue.Status
	done    queue.Status
}

// Manager drains watcher events through a bounded worker pool, running the
// stage handler bound to each folder. Workers run assets in parallel; a
// single asset stays sequential because each stage's folder move is the
// hand-off to the next.
type Manager struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	notifier notifications.Service
	bindings map[string]binding

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager constructs a workflow manager with the default stage handlers.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier allows injecting the notifier (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:      cfg,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		notifier: notifier,
	}
	m.bindings = map[string]binding{
		layout.DirInput: {
			name:    "intake",
			handler: intake.New(cfg, store, logger),
			running: queue.StatusAnalyzing,
			done:    queue.StatusAnalyzed,
		},
		layout.DirRawVideo: {
			name:    "rawvideo",
			handler: rawvideo.New(cfg, store, logger),
			running: queue.StatusProbing,
			done:    queue.StatusProbed,
		},
		layout.DirEnhancing: {
			name:    "enhance",
			handler: enhance.New(cfg, store, logger),
			running: queue.StatusEnhancing,
			done:    queue.StatusEnhanced,
		},
		layout.DirEnhanced: {
			name:    "lipsync",
			handler: lipsync.New(cfg, store, logger),
			running: queue.StatusLipsyncing,
			done:    queue.StatusLipsynced,
		},
		layout.DirLipSynced: {
			name:    "finalize",
			handler: finalize.New(cfg, store, logger),
			running: queue.StatusFinalizing,
			done:    queue.StatusFinalized,
		},
	}
	return m
}

// SetHandler replaces the handler bound to a stage folder (used in tests).
func (m *Manager) SetHandler(folder string, handler stage.Handler) {
	b, ok := m.bindings[folder]
	if !ok {
		return
	}
	b.handler = handler
	m.bindings[folder] = b
}

// Run consumes events until the channel closes or the context ends.
func (m *Manager) Run(ctx context.Context, events <-chan watcher.Event) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.running = true
	m.cancel = cancel
	m.mu.Unlock()

	depth := m.cfg.Workflow.QueueDepth
	if depth < 1 {
		depth = 1
	}
	tasks := make(chan watcher.Event, depth)

	workers := m.cfg.Workflow.Workers
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			for event := range tasks {
				m.process(runCtx, event)
			}
		}()
	}

	// Feed the bounded task queue; backpressure blocks the feed rather
	// than dropping events.
forward:
	for {
		select {
		case <-runCtx.Done():
			break forward
		case event, ok := <-events:
			if !ok {
				break forward
			}
			select {
			case tasks <- event:
			case <-runCtx.Done():
				break forward
			}
		}
	}
	close(tasks)
	m.wg.Wait()

	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
}

// Stop cancels the run loop and waits for in-flight handlers.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

// Health reports readiness of every bound stage handler.
func (m *Manager) Health(ctx context.Context) []stage.Health {
	checks := make([]stage.Health, 0, len(m.bindings))
	for _, folder := range []string{
		layout.DirInput, layout.DirRawVideo, layout.DirEnhancing, layout.DirEnhanced, layout.DirLipSynced,
	} {
		if b, ok := m.bindings[folder]; ok {
			checks = append(checks, b.handler.HealthCheck(ctx))
		}
	}
	return checks
}

func (m *Manager) process(ctx context.Context, event watcher.Event) {
	b, ok := m.bindings[event.Folder]
	if !ok {
		m.logger.Warn("event for unbound folder", logging.String("folder", event.Folder))
		return
	}

	ctx = services.WithRequestID(ctx, uuid.NewString())
	ctx = services.WithStage(ctx, b.name)

	asset, err := m.store.FindBySourcePath(ctx, event.Path)
	if err != nil {
		m.logger.Error("asset lookup failed", logging.String("path", event.Path), logging.Error(err))
		return
	}
	if asset == nil {
		asset, err = m.store.NewAsset(ctx, event.Path, layout.BaseName(event.Path), event.Kind, queue.StatusPending)
		if err != nil {
			m.logger.Error("asset registration failed", logging.String("path", event.Path), logging.Error(err))
			return
		}
	} else if asset.IsProcessing() {
		m.logger.Warn("asset already in flight, skipping", logging.String("path", event.Path))
		return
	}

	ctx = services.WithAsset(ctx, asset.BaseName)
	logger := logging.WithContext(ctx, m.logger)

	asset.Status = b.running
	if err := m.store.Update(ctx, asset); err != nil {
		logger.Error("status update failed", logging.Error(err))
		return
	}

	if err := m.runHandler(ctx, b, asset); err != nil {
		// The file stays where it was; only the record notes the failure.
		asset.SetFailed(services.TruncateDiagnostic(err.Error(), 500))
		if updateErr := m.store.Update(ctx, asset); updateErr != nil {
			logger.Error("failure update failed", logging.Error(updateErr))
		}
		logger.Error("stage failed",
			logging.String("stage", b.name),
			logging.Error(err),
			logging.Bool("retryable", services.IsRetryable(err)))
		if m.notifier != nil {
			if notifyErr := m.notifier.NotifyError(ctx, err, b.name); notifyErr != nil {
				logger.Warn("error notification failed", logging.Error(notifyErr))
			}
		}
		return
	}

	asset.Status = b.done
	if err := m.store.Update(ctx, asset); err != nil {
		logger.Error("status update failed", logging.Error(err))
		return
	}
	logger.Info("stage complete",
		logging.String("stage", b.name),
		logging.String("status", string(b.done)),
		logging.String("path", asset.SourcePath))

	if b.done == queue.StatusFinalized && m.notifier != nil {
		if err := m.notifier.NotifyAssetFinalized(ctx, asset.BaseName); err != nil {
			logger.Warn("finalize notification failed", logging.Error(err))
		}
	}
}

func (m *Manager) runHandler(ctx context.Context, b binding, asset *queue.Asset) error {
	if err := b.handler.Prepare(ctx, asset); err != nil {
		return err
	}
	return b.handler.Execute(ctx, asset)
}
