package artifact

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// NPZProducer loads an artifact that an upstream tool already normalized into
// a NumPy zip archive.
type NPZProducer struct{}

// Produce implements Producer.
func (NPZProducer) Produce(ctx context.Context, path string) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	arrays, err := ReadNPZ(path)
	if err != nil {
		return nil, err
	}
	if len(arrays) == 0 {
		return nil, errors.New("npz archive is empty")
	}
	return New(filepath.Base(path), path, arrays), nil
}

// GagescopeSampleRate is the digitizer sample rate used to synthesize
// timestamps for scope channel captures.
const GagescopeSampleRate = 200e6

// GagescopeProducer handles .h5 scope captures. HDF5 decoding needs cgo, so
// the capture's arrays are read from a sibling "<stem>.npz" export. File names
// containing "gage_shot_" carry CHx_frameY channel arrays; "jkam_capture_"
// files carry frame-NN imaging arrays. Anything else is rejected.
type GagescopeProducer struct{}

// Produce implements Producer.
func (GagescopeProducer) Produce(ctx context.Context, path string) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := filepath.Base(path)
	isShot := strings.Contains(name, "gage_shot_")
	isJKAM := strings.Contains(name, "jkam_capture_")
	if !isShot && !isJKAM {
		return nil, fmt.Errorf("%s does not match gage_shot_ or jkam_capture_ patterns", name)
	}

	sidecar := strings.TrimSuffix(path, filepath.Ext(path)) + ".npz"
	arrays, err := ReadNPZ(sidecar)
	if err != nil {
		return nil, fmt.Errorf("scope export %s: %w", filepath.Base(sidecar), err)
	}

	out := make(map[string][]float64)
	switch {
	case isShot:
		channels := matchingKeys(arrays, "CH")
		if len(channels) == 0 {
			return nil, fmt.Errorf("gagescope file %s has no CHx_frame datasets", name)
		}
		for _, key := range channels {
			out[key] = arrays[key]
		}
		length := len(arrays[channels[0]])
		timestamps := make([]float64, length)
		for i := range timestamps {
			timestamps[i] = float64(i) / GagescopeSampleRate
		}
		out[KeyTimestamps] = timestamps
	case isJKAM:
		frames := matchingKeys(arrays, "frame-", "frame_")
		if len(frames) == 0 {
			return nil, fmt.Errorf("no frames found in JKAM file %s", name)
		}
		for _, key := range frames {
			out[strings.ReplaceAll(key, "-", "_")] = arrays[key]
		}
		out[KeyTimestamps] = []float64{0}
	}
	return New(processedName(path), path, out), nil
}

func matchingKeys(arrays map[string][]float64, prefixes ...string) []string {
	var keys []string
	for key := range arrays {
		for _, prefix := range prefixes {
			if strings.HasPrefix(key, prefix) {
				keys = append(keys, key)
				break
			}
		}
	}
	sort.Strings(keys)
	return keys
}
