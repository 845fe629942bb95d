package evaluate

import (
	"math"

	"labwatch/internal/artifact"
)

// SpacingPolicy accepts an artifact when enough of its samples sit at the
// run's average spacing from both neighbours.
type SpacingPolicy struct {
	DeviationRatio    float64
	AcceptancePercent float64
}

// Name implements Policy.
func (SpacingPolicy) Name() string { return "spacing" }

// Evaluate implements Policy.
func (p SpacingPolicy) Evaluate(a *artifact.Artifact, _ *State) Result {
	timestamps, ok := a.Timestamps()
	if !ok || len(timestamps) < 2 {
		return reject()
	}
	n := len(timestamps)
	avgGap := (timestamps[n-1] - timestamps[0]) / float64(n-1)

	correct := 0
	for _, ok := range spaceCorrect(timestamps, avgGap, p.DeviationRatio) {
		if ok {
			correct++
		}
	}
	percent := float64(correct) / float64(n) * 100

	var stats Stats
	stats.Set(StatAvgTimeGap, avgGap)
	stats.Set(StatNumShots, n)
	stats.Set(StatNumSpaceCorrect, correct)
	stats.Set(StatPercentSpaceCorrect, percent)
	stats.Set(StatDeviationThresholdPercent, p.DeviationRatio*100)
	return Result{Accepted: percent >= p.AcceptancePercent, Stats: stats}
}

// spaceCorrect flags each sample whose gaps to both neighbours are within
// ratio*avgGap of avgGap. Endpoints check their single neighbour.
func spaceCorrect(timestamps []float64, avgGap, ratio float64) []bool {
	n := len(timestamps)
	tolerance := ratio * avgGap
	flags := make([]bool, n)
	for i := range timestamps {
		ok := true
		if i > 0 && math.Abs(timestamps[i]-timestamps[i-1]-avgGap) > tolerance {
			ok = false
		}
		if i < n-1 && math.Abs(timestamps[i+1]-timestamps[i]-avgGap) > tolerance {
			ok = false
		}
		flags[i] = ok
	}
	return flags
}
