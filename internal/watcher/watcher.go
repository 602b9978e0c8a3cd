package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"beatforge/internal/fileutil"
	"beatforge/internal/layout"
	"beatforge/internal/logging"
	"beatforge/internal/queue"
)

// Extension allow-lists per intake kind.
var (
	audioExtensions = map[string]struct{}{
		".mp3": {}, ".wav": {}, ".flac": {}, ".m4a": {}, ".aac": {}, ".ogg": {}, ".wma": {},
	}
	videoExtensions = map[string]struct{}{
		".mp4": {}, ".avi": {}, ".mov": {}, ".mkv": {}, ".wmv": {}, ".flv": {}, ".webm": {}, ".m4v": {},
	}
)

// KindForPath classifies a file by extension. The second return is false for
// extensions outside both allow-lists.
func KindForPath(path string) (queue.Kind, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := audioExtensions[ext]; ok {
		return queue.KindAudio, true
	}
	if _, ok := videoExtensions[ext]; ok {
		return queue.KindVideo, true
	}
	return "", false
}

// Event names a settled new file in a watched stage folder.
type Event struct {
	Path string
	Kind queue.Kind
	// Folder is the stage folder the file appeared in.
	Folder string
}

type watchedFolder struct {
	dir        string
	kind       queue.Kind
	extensions map[string]struct{}
}

// Watcher observes the stage folders and emits one event per new media file.
// A path is only ever emitted once per watcher instance, and files whose
// extension is not allowed for their folder are rejected with a logged error
// and left in place.
type Watcher struct {
	fs       *fsnotify.Watcher
	folders  map[string]watchedFolder
	debounce time.Duration
	events   chan Event
	logger   *slog.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

// New builds a watcher over the project's intake folders.
func New(project layout.Project, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fs:       fs,
		folders:  make(map[string]watchedFolder),
		debounce: debounce,
		events:   make(chan Event, 64),
		logger:   logging.NewComponentLogger(logger, "watcher"),
		seen:     make(map[string]struct{}),
	}

	folders := []watchedFolder{
		{dir: project.Input(), kind: queue.KindAudio, extensions: audioExtensions},
		{dir: project.RawVideo(), kind: queue.KindVideo, extensions: videoExtensions},
		{dir: project.Enhancing(), kind: queue.KindVideo, extensions: videoExtensions},
		{dir: project.Enhanced(), kind: queue.KindVideo, extensions: videoExtensions},
		{dir: project.LipSynced(), kind: queue.KindVideo, extensions: videoExtensions},
	}
	for _, folder := range folders {
		if err := fs.Add(folder.dir); err != nil {
			_ = fs.Close()
			return nil, err
		}
		w.folders[filepath.Clean(folder.dir)] = folder
	}
	return w, nil
}

// Events returns the channel of settled file events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run dispatches filesystem events until the context ends. It closes the
// event channel on exit.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)
	defer w.fs.Close()

	var settlers sync.WaitGroup
	defer settlers.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			w.handleCreate(ctx, &settlers, event.Name)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", logging.Error(err))
		}
	}
}

func (w *Watcher) handleCreate(ctx context.Context, settlers *sync.WaitGroup, path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	folder, ok := w.folders[filepath.Clean(filepath.Dir(abs))]
	if !ok {
		return
	}
	if w.alreadySeen(abs) {
		return
	}

	ext := strings.ToLower(filepath.Ext(abs))
	if _, allowed := folder.extensions[ext]; !allowed {
		if ext == "" {
			// Stage folders grow subdirectories (Used archives); ignore them.
			return
		}
		w.logger.Error("unsupported file type in stage folder",
			logging.String("path", abs),
			logging.String("folder", filepath.Base(folder.dir)))
		return
	}

	settlers.Add(1)
	go func() {
		defer settlers.Done()
		w.settleAndEmit(ctx, folder, abs)
	}()
}

// settleAndEmit waits out the debounce window so the file finishes copying,
// then emits it if it still exists with content.
func (w *Watcher) settleAndEmit(ctx context.Context, folder watchedFolder, path string) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(w.debounce):
	}

	if !fileutil.IsNonEmptyFile(path) {
		w.logger.Warn("file vanished or stayed empty during settle", logging.String("path", path))
		return
	}

	select {
	case <-ctx.Done():
	case w.events <- Event{Path: path, Kind: folder.kind, Folder: filepath.Base(folder.dir)}:
	}
}

// alreadySeen records the path and reports whether it had been seen before.
func (w *Watcher) alreadySeen(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.seen[path]; ok {
		return true
	}
	w.seen[path] = struct{}{}
	return false
}
