package artifact

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	picosecond        = 1e-12
	photonMaxPoints   = 10000
	photonTimestampSz = 8
)

// PhotonProducer decodes photon timer exports: raw little-endian uint64
// picosecond counters (.bin, .dat) or a text export of the same values (.csv).
type PhotonProducer struct{}

// Produce implements Producer.
func (PhotonProducer) Produce(ctx context.Context, path string) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read photon file: %w", err)
	}

	var raw []float64
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		raw, err = parsePhotonText(data)
	} else {
		raw, err = parsePhotonBinary(data)
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("photon file contains no timestamps")
	}

	seconds := make([]float64, len(raw))
	for i, v := range raw {
		seconds[i] = v * picosecond
	}

	diffs := make([]float64, 0, len(seconds))
	for i := 1; i < len(seconds); i++ {
		if d := seconds[i] - seconds[i-1]; d > 0 {
			diffs = append(diffs, d)
		}
	}
	if len(diffs) == 0 {
		return nil, errors.New("photon file has no positive time differences")
	}

	// Timestamps drop the first sample to line up with the differences.
	timestamps := seconds[1:]
	if len(diffs) > photonMaxPoints {
		idx := evenIndices(len(diffs), photonMaxPoints)
		diffs = pick(diffs, idx)
		timestamps = pick(timestamps, idx)
	}
	n := min(len(diffs), len(timestamps))

	return New(processedName(path), path, map[string][]float64{
		KeyTimestamps: timestamps[:n],
		KeyTimeDiffs:  diffs[:n],
	}), nil
}

func parsePhotonBinary(data []byte) ([]float64, error) {
	if len(data)%photonTimestampSz != 0 {
		return nil, fmt.Errorf("photon binary length %d is not a multiple of %d", len(data), photonTimestampSz)
	}
	out := make([]float64, len(data)/photonTimestampSz)
	for i := range out {
		out[i] = float64(binary.LittleEndian.Uint64(data[i*photonTimestampSz:]))
	}
	return out, nil
}

func parsePhotonText(data []byte) ([]float64, error) {
	var out []float64
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.FieldsFunc(scanner.Text(), func(r rune) bool {
			return r == ',' || r == ';' || r == ' ' || r == '\t'
		})
		for _, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				if line == 1 {
					// header row
					break
				}
				return nil, fmt.Errorf("line %d: parse %q: %w", line, field, err)
			}
			out = append(out, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan photon text: %w", err)
	}
	return out, nil
}

// evenIndices mirrors numpy's linspace(0, n-1, m).astype(int).
func evenIndices(n, m int) []int {
	idx := make([]int, m)
	if m == 1 {
		return idx
	}
	for i := range idx {
		idx[i] = i * (n - 1) / (m - 1)
	}
	return idx
}

func pick(values []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}
