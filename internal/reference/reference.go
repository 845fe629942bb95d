// Package reference loads the optional shot reference dataset consulted by the
// shot-correlation acceptance policy.
//
// The dataset is loaded once at startup and is read-only afterwards. Any load
// failure degrades to a nil *Dataset, which every method treats as "no
// reference"; evaluation never fails because the reference is missing.
package reference

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"labwatch/internal/artifact"
	"labwatch/internal/config"
	"labwatch/internal/logging"
)

// Paths locates the reference array stores.
type Paths struct {
	Counts     string
	Frames     string
	Timestamps string
}

// PathsFromConfig returns the configured reference locations.
func PathsFromConfig(cfg config.Reference) Paths {
	return Paths{Counts: cfg.CountsPath, Frames: cfg.FramesPath, Timestamps: cfg.TimestampsPath}
}

// Configured reports whether the counts and frames stores are set.
func (p Paths) Configured() bool {
	return strings.TrimSpace(p.Counts) != "" && strings.TrimSpace(p.Frames) != ""
}

// Dataset holds the parallel counts/frames arrays indexed by shot number and
// the optional per-shot raw timestamp arrays.
type Dataset struct {
	counts     []float64
	frames     []float64
	timestamps map[int][]float64
}

// New builds a dataset from in-memory arrays.
func New(counts, frames []float64, timestamps map[int][]float64) *Dataset {
	return &Dataset{counts: counts, frames: frames, timestamps: timestamps}
}

// Load reads the reference stores. It returns nil when the dataset is not
// configured or when counts/frames cannot be read.
func Load(paths Paths, logger *slog.Logger) *Dataset {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "reference")
	if !paths.Configured() {
		logger.Info("reference dataset not configured; shot policy runs in always-accept mode")
		return nil
	}

	counts, err := artifact.ReadNPY(paths.Counts)
	if err != nil {
		logging.WarnWithContext(logger, "reference counts unavailable", "reference_load_failed",
			logging.Error(err),
			logging.String("path", paths.Counts),
			logging.String(logging.FieldErrorHint, "check reference.counts_path points at a readable .npy file"),
			logging.String(logging.FieldImpact, "shot policy accepts every resolvable shot"),
		)
		return nil
	}
	frames, err := artifact.ReadNPY(paths.Frames)
	if err != nil {
		logging.WarnWithContext(logger, "reference frames unavailable", "reference_load_failed",
			logging.Error(err),
			logging.String("path", paths.Frames),
			logging.String(logging.FieldErrorHint, "check reference.frames_path points at a readable .npy file"),
			logging.String(logging.FieldImpact, "shot policy accepts every resolvable shot"),
		)
		return nil
	}
	if len(counts) != len(frames) {
		logger.Warn("reference counts and frames differ in length; shot bounds follow counts",
			logging.Int("counts", len(counts)),
			logging.Int("frames", len(frames)),
		)
	}

	ds := New(counts, frames, nil)
	if strings.TrimSpace(paths.Timestamps) != "" {
		timestamps, err := loadShotTimestamps(paths.Timestamps)
		if err != nil {
			logging.WarnWithContext(logger, "reference timestamps unavailable", "reference_load_failed",
				logging.Error(err),
				logging.String("path", paths.Timestamps),
				logging.String(logging.FieldErrorHint, "export per-shot timestamps as shot_NNNNN arrays in one .npz"),
				logging.String(logging.FieldImpact, "matched shots report the reference time as unavailable"),
			)
		} else {
			ds.timestamps = timestamps
		}
	}

	logger.Info("reference dataset loaded",
		logging.Int("shots", ds.Len()),
		logging.Int("timed_shots", len(ds.timestamps)),
	)
	return ds
}

func loadShotTimestamps(path string) (map[int][]float64, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	arrays, err := artifact.ReadNPZ(path)
	if err != nil {
		return nil, err
	}
	out := make(map[int][]float64, len(arrays))
	for key, values := range arrays {
		digits, ok := strings.CutPrefix(key, "shot_")
		if !ok {
			continue
		}
		shot, err := strconv.Atoi(digits)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		out[shot] = values
	}
	if len(out) == 0 {
		return nil, errors.New("archive has no shot_NNNNN arrays")
	}
	return out, nil
}

// Len is the number of shots in the reference.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.counts)
}

// InBounds reports whether shot indexes the reference.
func (d *Dataset) InBounds(shot int) bool {
	return d != nil && shot >= 0 && shot < len(d.counts)
}

// Counts returns the reference count for shot.
func (d *Dataset) Counts(shot int) (float64, bool) {
	if !d.InBounds(shot) {
		return 0, false
	}
	return d.counts[shot], true
}

// Frames returns the reference frame value for shot, if the frames array
// reaches that far.
func (d *Dataset) Frames(shot int) (float64, bool) {
	if !d.InBounds(shot) || shot >= len(d.frames) {
		return 0, false
	}
	return d.frames[shot], true
}

// MedianTime returns the median of the shot's raw timestamps. The second
// result is false when no non-empty array exists for the shot.
func (d *Dataset) MedianTime(shot int) (float64, bool) {
	if !d.InBounds(shot) {
		return 0, false
	}
	values := d.timestamps[shot]
	if len(values) == 0 {
		return 0, false
	}
	return median(values), true
}

// median averages the two middle values for even lengths.
func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
