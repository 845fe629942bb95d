package pipeline

import (
	"time"

	"labwatch/internal/score"
)

// Status is a snapshot of dispatcher progress, safe to hand to other
// goroutines.
type Status struct {
	Running         bool
	Score           score.Snapshot
	QueueDepth      int
	Dropped         int
	LastFile        string
	LastArtifact    string
	LastCategory    string
	LastAccepted    bool
	LastError       string
	LastProcessedAt time.Time
}

// Status returns the latest snapshot. It never touches live evaluation state.
func (m *Manager) Status() Status {
	m.mu.RLock()
	status := m.status
	m.mu.RUnlock()
	status.QueueDepth = m.queue.Len()
	return status
}
