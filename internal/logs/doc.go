// Package logs reads the daemon's per-run log files for the CLI.
//
// Last returns the final lines of a log with bounded memory, and Follow polls
// for lines appended after a byte offset until its context is cancelled. A log
// that shrinks below the offset, because a new run replaced the file behind
// the labwatch.log pointer, is read again from the start.
package logs
