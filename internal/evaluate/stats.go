package evaluate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Entry is one named statistic.
type Entry struct {
	Key   string
	Value any
}

// Stats is an insertion-ordered mapping of named scalars and strings. The zero
// value is empty and ready to use.
type Stats struct {
	entries []Entry
}

// Set stores value under key, replacing an existing entry in place.
func (s *Stats) Set(key string, value any) {
	for i := range s.entries {
		if s.entries[i].Key == key {
			s.entries[i].Value = value
			return
		}
	}
	s.entries = append(s.entries, Entry{Key: key, Value: value})
}

// Get returns the value stored under key.
func (s Stats) Get(key string) (any, bool) {
	for _, e := range s.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Has reports whether key is present.
func (s Stats) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Len is the number of entries.
func (s Stats) Len() int { return len(s.entries) }

// Keys lists keys in insertion order.
func (s Stats) Keys() []string {
	keys := make([]string, len(s.entries))
	for i, e := range s.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entries returns a copy of the entries in insertion order.
func (s Stats) Entries() []Entry {
	return append([]Entry(nil), s.entries...)
}

// Clone returns an independent copy.
func (s Stats) Clone() Stats {
	return Stats{entries: s.Entries()}
}

// Float returns a numeric entry as float64.
func (s Stats) Float(key string) (float64, bool) {
	v, ok := s.Get(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Int returns a numeric entry truncated to int.
func (s Stats) Int(key string) (int, bool) {
	f, ok := s.Float(key)
	return int(f), ok
}

// Text returns a string entry.
func (s Stats) Text(key string) (string, bool) {
	v, ok := s.Get(key)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// MarshalJSON encodes the stats as a JSON object preserving key order.
func (s Stats) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range s.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("stat %q: %w", e.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the document's key order.
// Numbers decode as float64.
func (s *Stats) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		s.entries = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("stats: expected object, got %v", tok)
	}
	s.entries = nil
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("stats: unexpected key %v", keyTok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("stats %q: %w", key, err)
		}
		s.Set(key, value)
	}
	_, err = dec.Token()
	return err
}

// Summary renders the one-line human summary of an evaluation.
func Summary(stats Stats) string {
	switch {
	case stats.Has(StatPercentSpaceCorrect):
		percent, _ := stats.Float(StatPercentSpaceCorrect)
		gap, _ := stats.Float(StatAvgTimeGap)
		shots, _ := stats.Int(StatNumShots)
		threshold, _ := stats.Float(StatDeviationThresholdPercent)
		return fmt.Sprintf("Space Correct: %.2f%%, Avg Time Gap: %.2f, Shots: %d, Threshold: %.1f%%",
			percent, gap, shots, threshold)
	case stats.Has(StatCreationGap):
		gap, _ := stats.Float(StatCreationGap)
		avg, _ := stats.Float(StatAvgCreationGap)
		history, _ := stats.Int(StatHistoryLength)
		parts := []string{
			fmt.Sprintf("Creation Gap: %.3fs", gap),
			fmt.Sprintf("Avg Gap: %.3fs", avg),
		}
		if deviation, ok := stats.Float(StatDeviationPercent); ok {
			parts = append(parts, fmt.Sprintf("Deviation: %.1f%%", deviation))
		}
		parts = append(parts, fmt.Sprintf("History: %d", history))
		return strings.Join(parts, ", ")
	case stats.Has(StatHistoryLength):
		history, _ := stats.Int(StatHistoryLength)
		return fmt.Sprintf("Creation History: %d (auto-accepted)", history)
	case stats.Has(StatShotNumber):
		shot, _ := stats.Int(StatShotNumber)
		match, _ := stats.Text(StatMatch)
		summary := fmt.Sprintf("Shot: %d, Match: %s", shot, match)
		if ref, ok := stats.Float(StatReferenceTime); ok {
			summary += fmt.Sprintf(", Reference Time: %.6f", ref)
		} else if ref, ok := stats.Text(StatReferenceTime); ok {
			summary += ", Reference Time: " + ref
		}
		return summary
	default:
		return "No statistics"
	}
}
