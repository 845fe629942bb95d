package artifact

import (
	"errors"
	"path/filepath"
	"sort"
)

// KeyTimestamps names the event-time series (seconds) every policy reads.
const KeyTimestamps = "timestamps"

// KeyTimeDiffs names the optional series of positive consecutive differences.
const KeyTimeDiffs = "time_diffs"

// ErrNoTimestamps reports an artifact without a usable timestamps series.
var ErrNoTimestamps = errors.New("artifact has no timestamps")

// Artifact is an immutable named bundle of arrays produced from one raw file.
type Artifact struct {
	name   string
	source string
	arrays map[string][]float64
}

// New builds an artifact. The arrays are copied so later mutation by the
// caller cannot leak into the pipeline.
func New(name, source string, arrays map[string][]float64) *Artifact {
	copied := make(map[string][]float64, len(arrays))
	for key, values := range arrays {
		copied[key] = append([]float64(nil), values...)
	}
	return &Artifact{name: name, source: source, arrays: copied}
}

// Name is the produced artifact's file name, e.g. processed_run_00001.npz.
func (a *Artifact) Name() string {
	if a == nil {
		return ""
	}
	return a.name
}

// Source is the raw file the artifact was produced from.
func (a *Artifact) Source() string {
	if a == nil {
		return ""
	}
	return a.source
}

// Array returns a copy of the named series.
func (a *Artifact) Array(key string) ([]float64, bool) {
	if a == nil {
		return nil, false
	}
	values, ok := a.arrays[key]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), values...), true
}

// Timestamps returns a copy of the timestamps series.
func (a *Artifact) Timestamps() ([]float64, bool) {
	return a.Array(KeyTimestamps)
}

// Keys lists the array names in sorted order.
func (a *Artifact) Keys() []string {
	if a == nil {
		return nil
	}
	return sortedKeys(a.arrays)
}

// Len returns the number of samples in the named series, or 0 when absent.
func (a *Artifact) Len(key string) int {
	if a == nil {
		return 0
	}
	return len(a.arrays[key])
}

func sortedKeys(arrays map[string][]float64) []string {
	keys := make([]string, 0, len(arrays))
	for key := range arrays {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func processedName(path string) string {
	base := filepath.Base(path)
	stem := base[:len(base)-len(filepath.Ext(base))]
	return "processed_" + stem + ".npz"
}
