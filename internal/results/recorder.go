package results

import (
	"context"
	"encoding/json"
	"fmt"

	"labwatch/internal/evaluate"
	"labwatch/internal/sink"
)

// Recorder is a sink consumer that writes every message as a row.
type Recorder struct {
	store *Store
	runID string
}

// NewRecorder returns a Recorder tagging rows with runID.
func NewRecorder(store *Store, runID string) *Recorder {
	return &Recorder{store: store, runID: runID}
}

// Consume implements sink.Consumer.
func (r *Recorder) Consume(ctx context.Context, msg sink.Message) error {
	row, err := RowFromMessage(msg)
	if err != nil {
		return err
	}
	row.RunID = r.runID
	_, err = r.store.Record(ctx, row)
	return err
}

// RowFromMessage converts a sink message into a result row.
func RowFromMessage(msg sink.Message) (Row, error) {
	statsJSON, err := json.Marshal(msg.Stats)
	if err != nil {
		return Row{}, fmt.Errorf("encode stats: %w", err)
	}
	processor, _ := msg.Stats.Text(sink.StatProcessorType)
	row := Row{
		ExperimentNumber: msg.ExperimentNumber(),
		FileName:         msg.FileName(),
		Category:         msg.Category,
		Accepted:         msg.Accepted,
		Summary:          evaluate.Summary(msg.Stats),
		StatsJSON:        string(statsJSON),
		ProcessorType:    processor,
		CumulativeValue:  msg.CumulativeValue(),
		RecordedAt:       msg.Published,
	}
	if msg.Spectrum != nil {
		row.SpectrumBins = msg.Spectrum.Len()
	}
	return row, nil
}
