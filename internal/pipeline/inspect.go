package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"labwatch/internal/artifact"
	"labwatch/internal/config"
	"labwatch/internal/evaluate"
	"labwatch/internal/reference"
	"labwatch/internal/spectrum"
)

// Report is the offline evaluation of a single file.
type Report struct {
	Path     string
	Category string
	Policy   string
	Artifact *artifact.Artifact
	Result   evaluate.Result
	Spectrum *spectrum.Result
}

// Inspect produces, evaluates, and estimates a spectrum for one file using
// fresh evaluation state. The creation-time policy therefore always accepts.
// A spectrum is attempted regardless of the category's spectrum setting.
func Inspect(ctx context.Context, cfg *config.Config, ref *reference.Dataset, path string, logger *slog.Logger) (Report, error) {
	registry, err := BuildRegistry(cfg)
	if err != nil {
		return Report{}, err
	}
	category, producer, err := registry.Resolve(path)
	if err != nil {
		return Report{}, err
	}
	a, err := producer.Produce(ctx, path)
	if err != nil {
		return Report{}, fmt.Errorf("produce %s: %w", path, err)
	}
	if a == nil {
		return Report{}, errAbsent
	}
	evaluator, err := evaluate.NewEvaluator(cfg, ref, logger)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		Path:     path,
		Category: category,
		Policy:   evaluator.PolicyFor(category).Name(),
		Artifact: a,
		Result:   evaluator.Evaluate(category, a, evaluate.NewState()),
	}
	if r, ok := spectrum.NewEstimator(logger).Estimate(a); ok {
		report.Spectrum = &r
	}
	return report, nil
}
