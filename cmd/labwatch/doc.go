// Package main hosts the labwatch CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the daemon in the foreground, translates
// terminal invocations into IPC calls against it, evaluates single files
// offline, reads the result history, and scaffolds configuration. It
// centralizes configuration resolution and socket discovery so subcommands can
// focus on output instead of wiring.
//
// Keep this package lean: add functionality to the internal packages first,
// then surface it through dedicated commands or flags here.
package main
