package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"labwatch/internal/logging"
	"labwatch/internal/queue"
)

// Start launches the worker.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("pipeline already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.status.Running = true
	m.wg.Add(1)
	go m.run(runCtx)

	m.logger.Info("dispatcher started",
		logging.String(logging.FieldEventType, "dispatcher_started"),
		logging.Duration("poll_timeout", m.pollTimeout),
	)
	return nil
}

// Stop stops intake and waits for the worker to exit. A file already being
// processed runs to completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()

	m.mu.Lock()
	m.status.Running = false
	m.mu.Unlock()
	m.logger.Info("dispatcher stopped", logging.String(logging.FieldEventType, "dispatcher_stopped"))
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		ev, ok := m.queue.Pop(ctx, m.pollTimeout)
		if !ok {
			continue
		}
		// In-flight work is not cancelled by shutdown.
		_ = m.process(context.WithoutCancel(ctx), ev)
	}
}

// Enqueue injects a file directly into the work queue, bypassing the watcher
// and its debounce delay. The file must exist and have a registered extension.
func (m *Manager) Enqueue(path string) (queue.RawFileEvent, error) {
	info, err := os.Stat(path)
	if err != nil {
		return queue.RawFileEvent{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return queue.RawFileEvent{}, fmt.Errorf("%s is a directory", path)
	}
	category, ok := m.registry.Category(path)
	if !ok {
		return queue.RawFileEvent{}, fmt.Errorf("no category registered for %s", path)
	}
	ev := queue.RawFileEvent{
		Path:       path,
		Category:   category,
		DetectedAt: time.Now(),
		Source:     queue.SourceManual,
	}
	if err := m.queue.Push(ev); err != nil {
		return queue.RawFileEvent{}, err
	}
	m.logger.Info("file queued manually",
		logging.String(logging.FieldEventType, "file_queued"),
		logging.String(logging.FieldFile, path),
		logging.String(logging.FieldCategory, category),
	)
	return ev, nil
}
