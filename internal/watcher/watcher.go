package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"labwatch/internal/artifact"
	"labwatch/internal/logging"
	"labwatch/internal/queue"
)

// Enqueuer accepts raw file events.
type Enqueuer interface {
	Push(ev queue.RawFileEvent) error
}

// Watcher observes one directory (non-recursively) for new files.
type Watcher struct {
	dir       string
	registry  *artifact.Registry
	sink      Enqueuer
	logger    *slog.Logger
	debouncer *Debouncer

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	quit    chan struct{}
	done    chan struct{}
	running bool
}

// New returns a Watcher for dir that pushes registered files to sink after
// delay.
func New(dir string, registry *artifact.Registry, sink Enqueuer, delay time.Duration, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{
		dir:       dir,
		registry:  registry,
		sink:      sink,
		logger:    logging.NewComponentLogger(logger, "watcher"),
		debouncer: NewDebouncer(delay),
	}
}

// Start begins watching. It fails when the directory cannot be watched.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	w.fsw = fsw
	w.quit = make(chan struct{})
	w.done = make(chan struct{})
	w.running = true
	go w.loop(ctx, fsw, w.quit, w.done)

	w.logger.Info("watcher started",
		logging.String(logging.FieldEventType, "watcher_started"),
		logging.String("dir", w.dir),
		logging.Duration("debounce", w.debouncer.Delay()),
		logging.Any("extensions", w.registry.Extensions()),
	)
	return nil
}

// Stop stops the event loop, cancels pending debounce timers, and waits for
// the loop to exit. A stopped Watcher is not restarted.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.quit)
	done := w.done
	fsw := w.fsw
	w.running = false
	w.fsw = nil
	w.mu.Unlock()

	<-done
	_ = fsw.Close()
	w.debouncer.Stop()
	w.logger.Info("watcher stopped", logging.String(logging.FieldEventType, "watcher_stopped"))
}

// Running reports whether the watcher is active.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Pending is the number of files waiting out their debounce delay.
func (w *Watcher) Pending() int {
	return w.debouncer.Pending()
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-quit:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			event := "watcher_error"
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				event = "watcher_overflow"
			}
			logging.WarnWithContext(w.logger, "filesystem watcher error", event,
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "raise fs.inotify.max_queued_events or slow the producer"),
				logging.String(logging.FieldImpact, "some created files may be missed"),
			)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) {
		return
	}
	info, err := os.Stat(ev.Name)
	if err != nil {
		w.logger.Debug("created path vanished before inspection", logging.String(logging.FieldFile, ev.Name), logging.Error(err))
		return
	}
	if info.IsDir() {
		return
	}
	category, ok := w.registry.Category(ev.Name)
	if !ok {
		w.logger.Debug("ignoring unregistered extension", logging.String(logging.FieldFile, ev.Name))
		return
	}

	event := queue.RawFileEvent{
		Path:       ev.Name,
		Category:   category,
		DetectedAt: time.Now(),
		Source:     queue.SourceWatcher,
	}
	w.logger.Debug("file detected; scheduling enqueue",
		logging.String(logging.FieldFile, ev.Name),
		logging.String(logging.FieldCategory, category),
	)
	w.debouncer.Schedule(func() {
		if err := w.sink.Push(event); err != nil {
			logging.WarnWithContext(w.logger, "enqueue failed", "enqueue_failed",
				logging.Error(err),
				logging.String(logging.FieldFile, event.Path),
				logging.String(logging.FieldCategory, event.Category),
				logging.String(logging.FieldErrorHint, "work queue is shutting down"),
			)
			return
		}
		w.logger.Info("file queued",
			logging.String(logging.FieldEventType, "file_queued"),
			logging.String(logging.FieldFile, event.Path),
			logging.String(logging.FieldCategory, event.Category),
		)
	})
}
