package sink

import (
	"context"
	"log/slog"

	"labwatch/internal/logging"
)

// Consumer receives sink messages.
type Consumer interface {
	Consume(ctx context.Context, msg Message) error
}

// ConsumerFunc adapts a function into a Consumer.
type ConsumerFunc func(ctx context.Context, msg Message) error

// Consume calls f.
func (f ConsumerFunc) Consume(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Fanout delivers every message from a channel to each consumer in order.
type Fanout struct {
	consumers []Consumer
	logger    *slog.Logger
}

// NewFanout returns a Fanout for the given consumers.
func NewFanout(logger *slog.Logger, consumers ...Consumer) *Fanout {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Fanout{consumers: consumers, logger: logging.NewComponentLogger(logger, "sink")}
}

// Run delivers messages until in is closed or ctx is cancelled. Consumer
// errors are logged and do not stop delivery to other consumers.
func (f *Fanout) Run(ctx context.Context, in <-chan Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			f.deliver(ctx, msg)
		}
	}
}

func (f *Fanout) deliver(ctx context.Context, msg Message) {
	for _, consumer := range f.consumers {
		if err := consumer.Consume(ctx, msg); err != nil {
			logging.WarnWithContext(f.logger, "result consumer failed", "sink_consumer_failed",
				logging.Error(err),
				logging.String(logging.FieldFile, msg.FileName()),
				logging.String(logging.FieldCategory, msg.Category),
				logging.String(logging.FieldErrorHint, "see the consumer error for details"),
				logging.String(logging.FieldImpact, "result missing from this consumer"),
			)
		}
	}
}
