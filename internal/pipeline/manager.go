package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"labwatch/internal/artifact"
	"labwatch/internal/config"
	"labwatch/internal/evaluate"
	"labwatch/internal/logging"
	"labwatch/internal/queue"
	"labwatch/internal/sink"
	"labwatch/internal/spectrum"
)

// Publisher receives results. Publish must not block.
type Publisher interface {
	Publish(msg sink.Message) bool
}

// Manager is the dispatcher worker.
type Manager struct {
	registry    *artifact.Registry
	queue       *queue.Queue
	evaluator   *evaluate.Evaluator
	estimator   *spectrum.Estimator
	publisher   Publisher
	logger      *slog.Logger
	pollTimeout time.Duration
	spectrumFor map[string]bool
	producerFor map[string]string

	// state is touched only by the worker goroutine.
	state *evaluate.State

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	status  Status
}

// NewManager wires a dispatcher from its collaborators.
func NewManager(
	cfg *config.Config,
	registry *artifact.Registry,
	q *queue.Queue,
	evaluator *evaluate.Evaluator,
	publisher Publisher,
	logger *slog.Logger,
) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		registry:    registry,
		queue:       q,
		evaluator:   evaluator,
		estimator:   spectrum.NewEstimator(logger),
		publisher:   publisher,
		logger:      logging.NewComponentLogger(logger, "pipeline"),
		pollTimeout: cfg.PollTimeout(),
		spectrumFor: make(map[string]bool, len(cfg.Categories)),
		producerFor: make(map[string]string, len(cfg.Categories)),
		state:       evaluate.NewState(),
	}
	for _, cat := range cfg.Categories {
		m.spectrumFor[cat.Name] = cat.Spectrum
		m.producerFor[cat.Name] = cat.Producer
	}
	return m
}
