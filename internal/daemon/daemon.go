package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"labwatch/internal/artifact"
	"labwatch/internal/config"
	"labwatch/internal/evaluate"
	"labwatch/internal/logging"
	"labwatch/internal/notifications"
	"labwatch/internal/pipeline"
	"labwatch/internal/queue"
	"labwatch/internal/reference"
	"labwatch/internal/results"
	"labwatch/internal/sink"
	"labwatch/internal/watcher"
)

// Daemon manages the watcher, dispatcher and result consumers.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	logPath  string
	runID    string
	registry *artifact.Registry
	ref      *reference.Dataset
	queue    *queue.Queue
	sink     *sink.Queue
	manager  *pipeline.Manager
	watcher  *watcher.Watcher
	results  *results.Store
	fanout   *sink.Fanout

	lockPath string
	lock     *flock.Flock

	mu         sync.Mutex
	running    atomic.Bool
	cancel     context.CancelFunc
	fanoutDone chan struct{}
	stopped    bool
}

// Option customises daemon construction.
type Option func(*options)

type options struct {
	consumers []sink.Consumer
	logPath   string
}

// WithConsumers appends extra sink consumers after the built-in ones.
func WithConsumers(consumers ...sink.Consumer) Option {
	return func(o *options) {
		o.consumers = append(o.consumers, consumers...)
	}
}

// WithLogPath records the active log file so status can report it.
func WithLogPath(path string) Option {
	return func(o *options) {
		o.logPath = path
	}
}

// New constructs a daemon. Nothing runs until Start.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	registry, err := pipeline.BuildRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}
	ref := reference.Load(reference.PathsFromConfig(cfg.Reference), logger)
	evaluator, err := evaluate.NewEvaluator(cfg, ref, logger)
	if err != nil {
		return nil, fmt.Errorf("build evaluator: %w", err)
	}

	runID := uuid.NewString()
	work := queue.New()
	out := sink.NewQueue(cfg.Dispatcher.SinkBuffer, logger)
	manager := pipeline.NewManager(cfg, registry, work, evaluator, out, logger)
	w := watcher.New(cfg.Paths.WatchDir, registry, work, cfg.DebounceDelay(), logger)

	consumers := []sink.Consumer{newSummaryConsumer(logger)}
	var store *results.Store
	if cfg.Results.Enabled {
		store, err = results.Open(cfg)
		if err != nil {
			work.Close()
			out.Close()
			return nil, fmt.Errorf("open results store: %w", err)
		}
		consumers = append(consumers, results.NewRecorder(store, runID))
	}
	if cfg.Notifications.NtfyTopic != "" {
		consumers = append(consumers, notifications.NewConsumer(notifications.NewService(cfg), cfg.Notifications))
	}
	consumers = append(consumers, o.consumers...)

	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		logPath:  o.logPath,
		runID:    runID,
		registry: registry,
		ref:      ref,
		queue:    work,
		sink:     out,
		manager:  manager,
		watcher:  w,
		results:  store,
		fanout:   sink.NewFanout(logger, consumers...),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}, nil
}

// Start acquires the instance lock and begins watching.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return errors.New("daemon already stopped")
	}
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !ok {
		return errors.New("another labwatch instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.fanoutDone = make(chan struct{})
	go func() {
		defer close(d.fanoutDone)
		// Consumers drain until the sink closes, even after shutdown begins.
		d.fanout.Run(context.WithoutCancel(runCtx), d.sink.Messages())
	}()

	if err := d.manager.Start(runCtx); err != nil {
		cancel()
		d.sink.Close()
		<-d.fanoutDone
		_ = d.lock.Unlock()
		return fmt.Errorf("start dispatcher: %w", err)
	}
	if err := d.watcher.Start(runCtx); err != nil {
		d.manager.Stop()
		cancel()
		d.sink.Close()
		<-d.fanoutDone
		_ = d.lock.Unlock()
		return fmt.Errorf("start watcher: %w", err)
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("labwatch daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("watch_dir", d.cfg.Paths.WatchDir),
		logging.String("run_id", d.runID),
		logging.Int("reference_shots", d.ref.Len()),
		logging.String("lock", d.lockPath),
	)
	return nil
}

// Stop stops the watcher and dispatcher, drains the sink and releases the
// lock. A stopped daemon cannot be restarted.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}
	d.watcher.Stop()
	d.manager.Stop()
	d.queue.Close()
	d.sink.Close()
	<-d.fanoutDone
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_unlock_failed",
			logging.Error(err),
			logging.String("lock", d.lockPath),
			logging.String(logging.FieldErrorHint, "remove the lock file manually if the next start fails"),
			logging.String(logging.FieldImpact, "next daemon start may report an existing instance"),
		)
	}
	d.running.Store(false)
	d.stopped = true
	d.logger.Info("labwatch daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close stops the daemon and releases the results store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.results != nil {
		return d.results.Close()
	}
	return nil
}

// Running reports whether the daemon is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// RunID identifies this daemon run in the results history.
func (d *Daemon) RunID() string {
	return d.runID
}

// AddFile queues a file for processing without waiting for the watcher.
func (d *Daemon) AddFile(ctx context.Context, path string) (queue.RawFileEvent, error) {
	if err := ctx.Err(); err != nil {
		return queue.RawFileEvent{}, err
	}
	if !d.running.Load() {
		return queue.RawFileEvent{}, errors.New("daemon is not running")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return queue.RawFileEvent{}, fmt.Errorf("resolve path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return queue.RawFileEvent{}, fmt.Errorf("stat file: %w", err)
	}
	return d.manager.Enqueue(abs)
}

// Status describes the daemon and its dispatcher.
type Status struct {
	Running         bool
	RunID           string
	Pipeline        pipeline.Status
	WatchDir        string
	Watching        bool
	PendingDebounce int
	SinkBacklog     int
	SinkDropped     int
	ReferenceShots  int
	Extensions      []string
	LockPath        string
	ResultsPath     string
	LogPath         string
	PID             int
}

// Status returns a snapshot of daemon progress.
func (d *Daemon) Status() Status {
	status := Status{
		Running:         d.running.Load(),
		RunID:           d.runID,
		Pipeline:        d.manager.Status(),
		WatchDir:        d.cfg.Paths.WatchDir,
		Watching:        d.watcher.Running(),
		PendingDebounce: d.watcher.Pending(),
		SinkBacklog:     d.sink.Len(),
		SinkDropped:     d.sink.Dropped(),
		ReferenceShots:  d.ref.Len(),
		Extensions:      d.registry.Extensions(),
		LockPath:        d.lockPath,
		LogPath:         d.logPath,
		PID:             os.Getpid(),
	}
	if d.results != nil {
		status.ResultsPath = d.results.Path()
	}
	return status
}
