package daemon

import (
	"context"
	"log/slog"

	"labwatch/internal/evaluate"
	"labwatch/internal/logging"
	"labwatch/internal/sink"
)

// newSummaryConsumer logs one line per result, the daemon's stand-in for a
// live display.
func newSummaryConsumer(logger *slog.Logger) sink.Consumer {
	logger = logging.NewComponentLogger(logger, "results")
	return sink.ConsumerFunc(func(_ context.Context, msg sink.Message) error {
		attrs := []logging.Attr{
			logging.String(logging.FieldEventType, "result_published"),
			logging.String(logging.FieldFile, msg.FileName()),
			logging.String(logging.FieldCategory, msg.Category),
			logging.Int(logging.FieldExperiment, msg.ExperimentNumber()),
			logging.Bool("accepted", msg.Accepted),
			logging.Int("cumulative_value", msg.CumulativeValue()),
			logging.String("summary", evaluate.Summary(msg.Stats)),
		}
		if msg.Spectrum != nil {
			if freq, mag, ok := msg.Spectrum.Peak(); ok {
				attrs = append(attrs, logging.Float64("peak_hz", freq), logging.Float64("peak_magnitude", mag))
			}
		}
		logger.Info("result", logging.Args(attrs...)...)
		return nil
	})
}
