// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management, request/response DTOs, and the
// conversion from daemon status into a lightweight wire representation. The
// client dials with a short timeout so CLI commands fail fast when the daemon
// is offline.
//
// Reuse these types when adding new RPC endpoints to keep the protocol stable.
package ipc
