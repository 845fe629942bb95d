package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"labwatch/internal/artifact"
	"labwatch/internal/logging"
	"labwatch/internal/queue"
	"labwatch/internal/sink"
	"labwatch/internal/spectrum"
)

// errAbsent reports a producer that returned neither an artifact nor an error.
var errAbsent = errors.New("producer returned no artifact")

// process runs the full per-file pipeline. Every failure, including a panic,
// is contained here: the file is logged and dropped.
func (m *Manager) process(ctx context.Context, ev queue.RawFileEvent) (err error) {
	ctx = logging.WithFile(ctx, ev.Path, ev.Category, uuid.NewString())
	logger := logging.WithContext(ctx, m.logger)
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing: %v", r)
			logging.ErrorWithContext(logger, "file processing panicked; file dropped", "pipeline_panic",
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
				logging.String(logging.FieldErrorHint, "report the stack trace with the offending file"),
			)
		}
		if err != nil {
			m.recordFailure(ev, err)
		}
	}()

	category, producer, err := m.registry.Resolve(ev.Path)
	if err != nil {
		logger.Info("ignoring file without a registered category", logging.Error(err))
		return nil
	}

	a, err := producer.Produce(ctx, ev.Path)
	if err == nil && a == nil {
		err = errAbsent
	}
	if err != nil {
		logging.WarnWithContext(logger, "producer failed; file dropped", "producer_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the file is a complete "+category+" export"),
		)
		return err
	}

	result := m.evaluator.Evaluate(category, a, m.state)

	var spectrumResult *spectrum.Result
	if m.spectrumFor[category] {
		if r, ok := m.estimator.Estimate(a); ok {
			spectrumResult = &r
		}
	}

	snap := m.state.Score.Record(result.Accepted)

	stats := result.Stats.Clone()
	stats.Set(sink.StatAccepted, result.Accepted)
	stats.Set(sink.StatFileName, a.Name())
	stats.Set(sink.StatCumulativeValue, snap.Streak)
	stats.Set(sink.StatExperimentNumber, snap.TotalProcessed)
	stats.Set(sink.StatProcessorType, m.processorType(category))

	msg := sink.Message{
		Category:  category,
		Artifact:  a,
		Accepted:  result.Accepted,
		Stats:     stats,
		Spectrum:  spectrumResult,
		Published: time.Now(),
	}
	m.recordSuccess(ev, a, msg)
	if !m.publisher.Publish(msg) {
		logger.Warn("result sink closed; result not published",
			logging.String(logging.FieldEventType, "sink_closed"),
			logging.String(logging.FieldImpact, "result missing from consumers"),
		)
	}
	logger.Info("file processed",
		logging.String(logging.FieldEventType, "file_processed"),
		logging.Bool("accepted", result.Accepted),
		logging.Int(logging.FieldExperiment, snap.TotalProcessed),
		logging.Int("streak", snap.Streak),
		logging.Bool("spectrum", spectrumResult != nil),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

func (m *Manager) processorType(category string) string {
	if p := m.producerFor[category]; p != "" {
		return p
	}
	return category
}

func (m *Manager) recordSuccess(ev queue.RawFileEvent, a *artifact.Artifact, msg sink.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.Score = m.state.Score.Snapshot()
	m.status.LastFile = ev.Path
	m.status.LastArtifact = a.Name()
	m.status.LastCategory = msg.Category
	m.status.LastAccepted = msg.Accepted
	m.status.LastProcessedAt = msg.Published
}

func (m *Manager) recordFailure(ev queue.RawFileEvent, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.Dropped++
	m.status.LastError = fmt.Sprintf("%s: %v", ev.Path, err)
}
