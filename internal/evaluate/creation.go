package evaluate

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"labwatch/internal/artifact"
)

// CreationPolicy accepts a file when its creation time follows the cadence of
// earlier files. The first two files under a key are always accepted.
type CreationPolicy struct {
	Key       string
	Tolerance float64
	// CreationTime overrides how a file's creation time is read.
	CreationTime func(path string) (time.Time, error)
}

// Name implements Policy.
func (*CreationPolicy) Name() string { return "creation" }

// Evaluate implements Policy.
func (p *CreationPolicy) Evaluate(a *artifact.Artifact, st *State) Result {
	lookup := p.CreationTime
	if lookup == nil {
		lookup = FileCreationTime
	}
	created, err := lookup(a.Source())
	if err != nil {
		return reject()
	}
	current := float64(created.UnixNano()) / 1e9

	history := st.CreationHistory(p.Key)
	st.appendCreation(p.Key, current)

	var stats Stats
	stats.Set(StatCreationTime, current)
	stats.Set(StatHistoryLength, len(history)+1)
	if len(history) < 2 {
		return Result{Accepted: true, Stats: stats}
	}

	gaps := make([]float64, len(history)-1)
	for i := range gaps {
		gaps[i] = history[i+1] - history[i]
	}
	avgGap := stat.Mean(gaps, nil)
	gap := current - history[len(history)-1]
	deviation := math.Abs(gap - avgGap)

	stats.Set(StatCreationGap, gap)
	stats.Set(StatAvgCreationGap, avgGap)
	if avgGap != 0 {
		stats.Set(StatDeviationPercent, deviation/math.Abs(avgGap)*100)
	}
	stats.Set(StatTolerancePercent, p.Tolerance*100)
	return Result{Accepted: deviation <= p.Tolerance*math.Abs(avgGap), Stats: stats}
}
