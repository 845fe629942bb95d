// Package evaluate decides whether a produced artifact represents a valid
// acquisition.
//
// Three acceptance policies are provided: intra-file spacing regularity,
// cross-file creation-time regularity, and reference shot correlation. The
// Evaluator binds one policy per category when it is built and never switches
// policy mid-run. Mutable evaluation state (score counters and creation
// history) lives in State, which the dispatcher owns and passes in by pointer.
package evaluate
