package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by Push after Close.
var ErrClosed = errors.New("work queue closed")

// Source records how an event entered the queue.
type Source string

const (
	SourceWatcher Source = "watcher"
	SourceManual  Source = "manual"
)

// RawFileEvent is one file waiting for the dispatcher.
type RawFileEvent struct {
	Path       string
	Category   string
	DetectedAt time.Time
	Source     Source
}

// Queue is a concurrency-safe FIFO.
type Queue struct {
	mu     sync.Mutex
	items  []RawFileEvent
	notify chan struct{}
	closed bool
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Push appends ev.
func (q *Queue) Push(ev RawFileEvent) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	if ev.DetectedAt.IsZero() {
		ev.DetectedAt = time.Now()
	}
	q.items = append(q.items, ev)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Pop removes the oldest event, waiting up to timeout for one to arrive. It
// returns false on timeout, on ctx cancellation, or once the queue is closed
// and drained.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (RawFileEvent, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		if ev, ok, closed := q.tryPop(); ok || closed {
			return ev, ok
		}
		select {
		case <-ctx.Done():
			return RawFileEvent{}, false
		case <-timer.C:
			ev, ok, _ := q.tryPop()
			return ev, ok
		case <-q.notify:
		}
	}
}

func (q *Queue) tryPop() (RawFileEvent, bool, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return RawFileEvent{}, false, q.closed
	}
	ev := q.items[0]
	q.items[0] = RawFileEvent{}
	q.items = q.items[1:]
	return ev, true, false
}

// Len is the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close rejects further pushes. Queued events can still be popped.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}
