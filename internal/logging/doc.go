// Package logging builds the slog loggers used by the daemon and CLI.
//
// Two formats exist: a single-line console format that lifts component,
// category and file into a readable prefix, and JSON for machine ingestion.
// WithFile and WithContext carry the per-file correlation ID through the
// pipeline, and WarnWithContext enforces the event_type, error_hint and impact
// fields on every warning.
package logging
