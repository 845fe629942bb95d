// Package score keeps the per-run acceptance counters.
//
// The tracker is owned by the single dispatcher worker and is not safe for
// concurrent use. Readers outside the worker see copies taken via Snapshot.
package score

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	TotalProcessed int `json:"total_processed"`
	Streak         int `json:"streak"`
}

// Tracker counts fully evaluated artifacts and the current acceptance streak.
type Tracker struct {
	totalProcessed int
	streak         int
}

// Record counts one evaluated artifact and returns the updated counters.
// The streak grows by one on acceptance and resets to zero on rejection.
func (t *Tracker) Record(accepted bool) Snapshot {
	t.totalProcessed++
	if accepted {
		t.streak++
	} else {
		t.streak = 0
	}
	return t.Snapshot()
}

// Snapshot returns the current counters.
func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{TotalProcessed: t.totalProcessed, Streak: t.streak}
}
