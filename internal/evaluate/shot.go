package evaluate

import (
	"path/filepath"
	"regexp"
	"strconv"

	"labwatch/internal/artifact"
	"labwatch/internal/reference"
)

// Match outcomes reported under the "match" stat.
const (
	MatchNoShot    = "no_shot"
	MatchUnchecked = "unchecked"
	MatchValid     = "valid"
	MatchInvalid   = "invalid"

	referenceUnavailable = "unavailable"
)

var shotPattern = regexp.MustCompile(`_(\d{5})(?:\D|$)`)

// ExtractShot returns the first run of exactly five digits that follows an
// underscore in the file name, or -1.
func ExtractShot(name string) int {
	m := shotPattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return -1
	}
	shot, err := strconv.Atoi(m[1])
	if err != nil {
		return -1
	}
	return shot
}

// ShotPolicy correlates the shot number in a file name with the reference
// dataset. A nil reference accepts every file.
type ShotPolicy struct {
	Reference *reference.Dataset
}

// Name implements Policy.
func (ShotPolicy) Name() string { return "shot" }

// Evaluate implements Policy.
func (p ShotPolicy) Evaluate(a *artifact.Artifact, _ *State) Result {
	name := a.Source()
	if name == "" {
		name = a.Name()
	}
	shot := ExtractShot(name)

	var stats Stats
	stats.Set(StatShotNumber, shot)
	switch {
	case shot < 0:
		stats.Set(StatMatch, MatchNoShot)
		return Result{Accepted: true, Stats: stats}
	case p.Reference == nil:
		stats.Set(StatMatch, MatchUnchecked)
		return Result{Accepted: true, Stats: stats}
	case !p.Reference.InBounds(shot):
		stats.Set(StatMatch, MatchInvalid)
		return Result{Accepted: false, Stats: stats}
	}

	stats.Set(StatMatch, MatchValid)
	if counts, ok := p.Reference.Counts(shot); ok {
		stats.Set(StatReferenceCounts, counts)
	}
	if frames, ok := p.Reference.Frames(shot); ok {
		stats.Set(StatReferenceFrames, frames)
	}
	if median, ok := p.Reference.MedianTime(shot); ok {
		stats.Set(StatReferenceTime, median)
	} else {
		stats.Set(StatReferenceTime, referenceUnavailable)
	}
	return Result{Accepted: true, Stats: stats}
}
