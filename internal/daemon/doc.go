// Package daemon coordinates the long-running labwatch process.
//
// It wires configuration, the category registry, the reference dataset, the
// work queue, the dispatcher, the result sink and the directory watcher into a
// single lifecycle with flock-based locking to prevent multiple instances.
// The daemon also handles manual file injection and assembles the status
// snapshot served over IPC.
//
// Keep orchestration logic here: evaluation and production belong to their
// own packages while the daemon focuses on startup, shutdown, and high level
// coordination.
package daemon
