package testsupport

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"labwatch/internal/artifact"
)

// WriteFile writes data to path, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// UniformTimestamps returns n timestamps spaced gap seconds apart.
func UniformTimestamps(n int, gap float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) * gap
	}
	return out
}

// WriteTimestampsNPZ writes an .npz artifact holding a timestamps series.
func WriteTimestampsNPZ(t testing.TB, path string, timestamps []float64) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := artifact.WriteNPZ(path, map[string][]float64{artifact.KeyTimestamps: timestamps}); err != nil {
		t.Fatalf("write npz %s: %v", path, err)
	}
}

// WritePhotonBinary writes little-endian uint64 picosecond counters.
func WritePhotonBinary(t testing.TB, path string, picoseconds []uint64) {
	t.Helper()

	buf := make([]byte, 0, len(picoseconds)*8)
	for _, v := range picoseconds {
		buf = binary.LittleEndian.AppendUint64(buf, v)
	}
	WriteFile(t, path, buf)
}
