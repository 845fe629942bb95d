package artifact

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"gonum.org/v1/gonum/floats"
)

// KeyData names the FPGA producer's smoothed sample series.
const KeyData = "data"

const fpgaWindow = 5

// FPGAProducer decodes Opal Kelly FPGA dumps. It tries binary uint16 first,
// then comma-delimited text, then whitespace-delimited text. The output holds a
// moving-average smoothed "data" series and no timestamps.
type FPGAProducer struct{}

// Produce implements Producer.
func (FPGAProducer) Produce(ctx context.Context, path string) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fpga file: %w", err)
	}

	readers := []struct {
		name string
		read func([]byte) ([]float64, error)
	}{
		{"binary", readFPGABinary},
		{"comma", func(b []byte) ([]float64, error) { return readDelimited(b, ",") }},
		{"whitespace", func(b []byte) ([]float64, error) { return readDelimited(b, "") }},
	}
	var errs []error
	for _, reader := range readers {
		data, err := reader.read(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", reader.name, err))
			continue
		}
		if len(data) == 0 {
			return nil, errors.New("fpga file contains no samples")
		}
		return New(processedName(path), path, map[string][]float64{
			KeyData: movingAverage(data, fpgaWindow),
		}), nil
	}
	return nil, fmt.Errorf("fpga file unreadable: %w", errors.Join(errs...))
}

func readFPGABinary(raw []byte) ([]float64, error) {
	if looksLikeText(raw) {
		return nil, errors.New("content is text")
	}
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("length %d is not a multiple of 2", len(raw))
	}
	out := make([]float64, len(raw)/2)
	for i := range out {
		out[i] = float64(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return out, nil
}

// readDelimited parses numeric text; an empty sep splits on whitespace.
func readDelimited(raw []byte, sep string) ([]float64, error) {
	var out []float64
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var fields []string
		if sep == "" {
			fields = strings.Fields(text)
		} else {
			fields = strings.Split(text, sep)
		}
		for _, field := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			out = append(out, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func looksLikeText(raw []byte) bool {
	if !utf8.Valid(raw) {
		return false
	}
	for _, r := range string(raw) {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// movingAverage is numpy's convolve(data, ones(w)/w, mode="valid").
func movingAverage(data []float64, window int) []float64 {
	if len(data) < window {
		return append([]float64(nil), data...)
	}
	out := make([]float64, len(data)-window+1)
	for i := range out {
		out[i] = floats.Sum(data[i:i+window]) / float64(window)
	}
	return out
}
