// Package config loads, normalizes, and validates labwatch configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the LABWATCH_WATCH_DIR environment
// fallback. The Config type centralizes every knob the daemon and CLI need:
// the watched directory, the category registry, acceptance policy selection,
// reference dataset locations, and logging.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical policy names, and clear validation errors.
package config
