// Package sink hands evaluation results to presentation consumers.
//
// Queue is an ordered, non-blocking hand-off: the dispatcher never waits on a
// slow consumer. When the buffer is full the oldest undelivered message is
// dropped and a warning is logged. Fanout drains a Queue and delivers every
// message, in order, to each registered consumer.
package sink

import (
	"log/slog"
	"sync"
	"time"

	"labwatch/internal/artifact"
	"labwatch/internal/evaluate"
	"labwatch/internal/logging"
	"labwatch/internal/spectrum"
)

// Stat keys the pipeline guarantees on every message.
const (
	StatAccepted         = "accepted"
	StatFileName         = "file_name"
	StatCumulativeValue  = "cumulative_value"
	StatExperimentNumber = "experiment_number"
	StatProcessorType    = "processor_type"
)

// Message is one evaluated artifact.
type Message struct {
	Category string
	Artifact *artifact.Artifact
	Accepted bool
	Stats    evaluate.Stats
	// Spectrum is nil when no spectrum was estimated.
	Spectrum  *spectrum.Result
	Published time.Time
}

// FileName returns the artifact name recorded in the stats.
func (m Message) FileName() string {
	if name, ok := m.Stats.Text(StatFileName); ok {
		return name
	}
	return m.Artifact.Name()
}

// ExperimentNumber returns the per-run sequence number recorded in the stats.
func (m Message) ExperimentNumber() int {
	n, _ := m.Stats.Int(StatExperimentNumber)
	return n
}

// CumulativeValue returns the streak recorded in the stats.
func (m Message) CumulativeValue() int {
	n, _ := m.Stats.Int(StatCumulativeValue)
	return n
}

// Queue is a bounded, ordered message hand-off.
type Queue struct {
	ch      chan Message
	logger  *slog.Logger
	mu      sync.Mutex
	closed  bool
	dropped int
}

// NewQueue returns a Queue holding up to capacity undelivered messages.
func NewQueue(capacity int, logger *slog.Logger) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Queue{
		ch:     make(chan Message, capacity),
		logger: logging.NewComponentLogger(logger, "sink"),
	}
}

// Publish enqueues msg without blocking. It reports false when the queue has
// been closed.
func (q *Queue) Publish(msg Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	for {
		select {
		case q.ch <- msg:
			return true
		default:
		}
		select {
		case old := <-q.ch:
			q.dropped++
			logging.WarnWithContext(q.logger, "result sink full; dropped oldest message", "sink_overflow",
				logging.String(logging.FieldFile, old.FileName()),
				logging.Int(logging.FieldExperiment, old.ExperimentNumber()),
				logging.Int("dropped_total", q.dropped),
				logging.String(logging.FieldErrorHint, "raise dispatcher.sink_buffer or speed up consumers"),
				logging.String(logging.FieldImpact, "result not delivered to consumers"),
			)
		default:
		}
	}
}

// Messages returns the receive side of the queue. It is closed by Close.
func (q *Queue) Messages() <-chan Message {
	return q.ch
}

// Len is the number of undelivered messages.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Dropped is the number of messages discarded on overflow.
func (q *Queue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Close stops intake. Buffered messages remain readable.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}
