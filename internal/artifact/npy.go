package artifact

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/sbinet/npyio"
	"github.com/sbinet/npyio/npz"
)

type numeric interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

func readAs[T numeric](read func(ptr any) error) ([]float64, bool) {
	var values []T
	if err := read(&values); err != nil {
		return nil, false
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out, true
}

// readNumeric decodes an npy payload of any numeric dtype into float64s.
func readNumeric(read func(ptr any) error) ([]float64, error) {
	attempts := []func(func(any) error) ([]float64, bool){
		readAs[float64], readAs[float32],
		readAs[int64], readAs[uint64],
		readAs[int32], readAs[uint32],
		readAs[int16], readAs[uint16],
		readAs[int8], readAs[uint8],
	}
	for _, attempt := range attempts {
		if values, ok := attempt(read); ok {
			return values, nil
		}
	}
	return nil, fmt.Errorf("unsupported npy dtype")
}

// ReadNPY loads a single .npy file as a flat float64 series.
func ReadNPY(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read npy: %w", err)
	}
	values, err := readNumeric(func(ptr any) error {
		return npyio.Read(bytes.NewReader(data), ptr)
	})
	if err != nil {
		return nil, fmt.Errorf("decode npy %s: %w", path, err)
	}
	return values, nil
}

// ReadNPZ loads every numeric array in a NumPy zip archive, keyed by array name.
func ReadNPZ(path string) (map[string][]float64, error) {
	reader, err := npz.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open npz: %w", err)
	}
	defer reader.Close()

	arrays := make(map[string][]float64)
	for _, key := range reader.Keys() {
		values, err := readNumeric(func(ptr any) error {
			return reader.Read(key, ptr)
		})
		if err != nil {
			return nil, fmt.Errorf("decode %s in %s: %w", key, path, err)
		}
		arrays[strings.TrimSuffix(key, ".npy")] = values
	}
	return arrays, nil
}

// WriteNPZ stores arrays in a NumPy zip archive. Used by tests and the inspect command.
func WriteNPZ(path string, arrays map[string][]float64) error {
	writer, err := npz.Create(path)
	if err != nil {
		return fmt.Errorf("create npz: %w", err)
	}
	for _, key := range sortedKeys(arrays) {
		if err := writer.Write(key, arrays[key]); err != nil {
			_ = writer.Close()
			return fmt.Errorf("write %s: %w", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close npz: %w", err)
	}
	return nil
}

// WriteNPY stores a single float64 series as a .npy file.
func WriteNPY(path string, values []float64) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create npy: %w", err)
	}
	if err := npyio.Write(file, values); err != nil {
		_ = file.Close()
		return fmt.Errorf("write npy: %w", err)
	}
	return file.Close()
}
