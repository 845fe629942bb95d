package results_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"labwatch/internal/evaluate"
	"labwatch/internal/results"
	"labwatch/internal/sink"
	"labwatch/internal/spectrum"
	"labwatch/internal/testsupport"
)

func sinkMessage(n, streak int, accepted bool) sink.Message {
	var stats evaluate.Stats
	stats.Set(evaluate.StatPercentSpaceCorrect, 100.0)
	stats.Set(sink.StatAccepted, accepted)
	stats.Set(sink.StatFileName, "processed_run.npz")
	stats.Set(sink.StatCumulativeValue, streak)
	stats.Set(sink.StatExperimentNumber, n)
	stats.Set(sink.StatProcessorType, "photon")
	return sink.Message{Category: "photon", Accepted: accepted, Stats: stats, Published: time.Now()}
}

func TestOpenCreatesSchemaOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := results.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if store.Path() != cfg.ResultsPath() {
		t.Fatalf("unexpected path %q", store.Path())
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	reopened, err := results.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	version, err := reopened.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if version != 2 {
		t.Fatalf("schema version = %d, want 2", version)
	}
}

func TestOpenPathAppliesPendingMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	store, err := results.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	if _, err := store.Record(context.Background(), results.Row{FileName: "old.bin", Category: "photon"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	_ = store.Close()

	if err := testsupport.SetResultsSchemaVersion(path, 1); err != nil {
		t.Fatalf("set schema version: %v", err)
	}
	store, err = results.OpenPath(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	version, err := store.SchemaVersion(context.Background())
	if err != nil || version != 2 {
		t.Fatalf("SchemaVersion = %d, %v; want 2", version, err)
	}
	rows, err := store.List(context.Background(), results.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 || rows[0].FileName != "old.bin" {
		t.Fatalf("expected existing row to survive migration, got %+v", rows)
	}
}

func TestRecorderWritesRows(t *testing.T) {
	store := testsupport.MustOpenResults(t, testsupport.NewConfig(t))
	ctx := context.Background()

	rec := results.NewRecorder(store, "run-1")
	msgs := []sink.Message{sinkMessage(1, 1, true), sinkMessage(2, 0, false)}
	msgs[0].Spectrum = &spectrum.Result{Frequencies: []float64{1, 2}, Magnitudes: []float64{0, 0}}
	for _, msg := range msgs {
		if err := rec.Consume(ctx, msg); err != nil {
			t.Fatalf("Consume: %v", err)
		}
	}
	if err := results.NewRecorder(store, "run-2").Consume(ctx, sinkMessage(1, 1, true)); err != nil {
		t.Fatalf("Consume: %v", err)
	}

	rows, err := store.List(ctx, results.ListOptions{RunID: "run-1"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	newest := rows[0]
	if newest.ExperimentNumber != 2 || newest.Accepted || newest.CumulativeValue != 0 {
		t.Fatalf("unexpected newest row %+v", newest)
	}
	oldest := rows[1]
	if oldest.SpectrumBins != 2 || oldest.ProcessorType != "photon" || oldest.RecordedAt.IsZero() {
		t.Fatalf("unexpected oldest row %+v", oldest)
	}
	if oldest.Summary == "" {
		t.Fatal("expected summary text")
	}
	var decoded evaluate.Stats
	if err := json.Unmarshal([]byte(oldest.StatsJSON), &decoded); err != nil {
		t.Fatalf("decode stats json: %v", err)
	}
	if got, _ := decoded.Int(sink.StatExperimentNumber); got != 1 {
		t.Fatalf("stats experiment_number = %d", got)
	}

	rejected, err := store.List(ctx, results.ListOptions{RejectedOnly: true})
	if err != nil {
		t.Fatalf("List rejected: %v", err)
	}
	if len(rejected) != 1 {
		t.Fatalf("expected 1 rejected row, got %d", len(rejected))
	}

	limited, err := store.List(ctx, results.ListOptions{Limit: 1})
	if err != nil || len(limited) != 1 || limited[0].RunID != "run-2" {
		t.Fatalf("unexpected limited list %+v err=%v", limited, err)
	}

	totals, err := store.Totals(ctx, "")
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if totals.Total != 3 || totals.Accepted != 2 {
		t.Fatalf("unexpected totals %+v", totals)
	}
}

func TestOpenPathRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	store, err := results.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	if _, err := store.Record(context.Background(), results.Row{FileName: "x", Category: "photon"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	_ = store.Close()

	if err := testsupport.SetResultsSchemaVersion(path, 99); err != nil {
		t.Fatalf("bump schema version: %v", err)
	}
	if _, err := results.OpenPath(path); !errors.Is(err, results.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}
