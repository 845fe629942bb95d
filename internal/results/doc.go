// Package results records evaluated files in SQLite as experiment_results
// rows so operators can review a run after the fact.
//
// The table is an append-only log written by a sink consumer. It is never read
// back into evaluation state: counters restart with the process. Schema changes
// are appended as numbered scripts under migrations/ and applied on Open.
package results
