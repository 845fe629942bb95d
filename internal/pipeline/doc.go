// Package pipeline runs the single dispatcher that turns queued raw files into
// published results.
//
// The Manager pops events from the work queue with a bounded wait, resolves
// the category's producer, evaluates the artifact with the policy bound to its
// category, optionally estimates a spectrum, updates the score counters, and
// publishes a sink message. Exactly one file is in flight at a time, which
// serializes every mutation of evaluation state. Failures are logged and the
// file is dropped; nothing is retried.
//
// Shutdown is cooperative: Stop cancels intake and waits for the in-flight file
// (if any) to finish. A producer that hangs stalls the pipeline; no timeout is
// applied to it.
package pipeline
