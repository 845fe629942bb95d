package logging

import (
	"context"
	"log/slog"
)

// Standard structured field keys.
const (
	FieldComponent = "component"
	FieldEventType = "event_type"
	// FieldErrorHint suggests the operator's next step.
	FieldErrorHint = "error_hint"
	// FieldImpact states the user-facing consequence of a warning.
	FieldImpact   = "impact"
	FieldFile     = "file"
	FieldCategory = "category"
	FieldPolicy   = "policy"
	// FieldExperiment is the per-run sequence number (total processed).
	FieldExperiment = "experiment_number"
	// FieldCorrelationID ties together every line logged for one file.
	FieldCorrelationID = "correlation_id"
)

type fileScope struct {
	path          string
	category      string
	correlationID string
}

type fileScopeKey struct{}

// WithFile annotates ctx with the file being processed, its category and a
// correlation ID.
func WithFile(ctx context.Context, path, category, correlationID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, fileScopeKey{}, fileScope{path: path, category: category, correlationID: correlationID})
}

// ContextFields returns the file attrs stored by WithFile.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	scope, ok := ctx.Value(fileScopeKey{}).(fileScope)
	if !ok {
		return nil
	}
	var fields []slog.Attr
	for _, f := range []struct{ key, value string }{
		{FieldFile, scope.path},
		{FieldCategory, scope.category},
		{FieldCorrelationID, scope.correlationID},
	} {
		if f.value != "" {
			fields = append(fields, slog.String(f.key, f.value))
		}
	}
	return fields
}

// WithContext returns logger with the file attrs carried by ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
