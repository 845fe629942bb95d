package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"labwatch/internal/artifact"
	"labwatch/internal/config"
	"labwatch/internal/evaluate"
	"labwatch/internal/logging"
	"labwatch/internal/pipeline"
	"labwatch/internal/queue"
	"labwatch/internal/sink"
	"labwatch/internal/testsupport"
)

type harness struct {
	cfg     *config.Config
	queue   *queue.Queue
	sink    *sink.Queue
	manager *pipeline.Manager
}

func newHarness(t *testing.T, registry *artifact.Registry, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	if registry == nil {
		var err error
		registry, err = pipeline.BuildRegistry(cfg)
		if err != nil {
			t.Fatalf("BuildRegistry: %v", err)
		}
	}
	evaluator, err := evaluate.NewEvaluator(cfg, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	q := queue.New()
	out := sink.NewQueue(64, logging.NewNop())
	m := pipeline.NewManager(cfg, registry, q, evaluator, out, logging.NewNop())
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(m.Stop)
	return &harness{cfg: cfg, queue: q, sink: out, manager: m}
}

func (h *harness) next(t *testing.T) sink.Message {
	t.Helper()
	select {
	case msg := <-h.sink.Messages():
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for sink message")
		return sink.Message{}
	}
}

func (h *harness) waitIdle(t *testing.T, dropped int) pipeline.Status {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		st := h.manager.Status()
		if st.QueueDepth == 0 && st.Dropped >= dropped {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("pipeline did not settle")
	return pipeline.Status{}
}

func TestRegularFilesYieldIncreasingStreak(t *testing.T) {
	h := newHarness(t, nil)
	for i := 1; i <= 5; i++ {
		path := filepath.Join(h.cfg.Paths.WatchDir, fmt.Sprintf("processed_run_%05d.npz", i))
		testsupport.WriteTimestampsNPZ(t, path, testsupport.UniformTimestamps(20, 1.0))
		if _, err := h.manager.Enqueue(path); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	var streaks, experiments []int
	for i := 0; i < 5; i++ {
		msg := h.next(t)
		if !msg.Accepted {
			t.Fatalf("message %d rejected: %v", i, evaluate.Summary(msg.Stats))
		}
		for _, key := range []string{sink.StatAccepted, sink.StatFileName, sink.StatCumulativeValue, sink.StatExperimentNumber, sink.StatProcessorType} {
			if !msg.Stats.Has(key) {
				t.Fatalf("message %d missing %q", i, key)
			}
		}
		streaks = append(streaks, msg.CumulativeValue())
		experiments = append(experiments, msg.ExperimentNumber())
	}
	want := []int{1, 2, 3, 4, 5}
	if diff := cmp.Diff(want, streaks); diff != "" {
		t.Fatalf("cumulative_value mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, experiments); diff != "" {
		t.Fatalf("experiment_number mismatch (-want +got):\n%s", diff)
	}

	st := h.manager.Status()
	if !st.Running || st.Score.TotalProcessed != 5 || st.Score.Streak != 5 {
		t.Fatalf("unexpected status %+v", st)
	}
	if st.LastArtifact != "processed_run_00005.npz" || !st.LastAccepted {
		t.Fatalf("unexpected last file in status %+v", st)
	}
}

func TestProducerFailureIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	registry := artifact.NewRegistry()
	failing := artifact.ProducerFunc(func(context.Context, string) (*artifact.Artifact, error) {
		calls.Add(1)
		return nil, errors.New("corrupt export")
	})
	if err := registry.Register("photon", failing, ".bin"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	h := newHarness(t, registry)

	path := filepath.Join(h.cfg.Paths.WatchDir, "bad.bin")
	testsupport.WriteFile(t, path, []byte{1})
	if _, err := h.manager.Enqueue(path); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	st := h.waitIdle(t, 1)

	// Give a retry, if there were one, several poll intervals to happen.
	time.Sleep(10 * h.cfg.PollTimeout())
	if got := calls.Load(); got != 1 {
		t.Fatalf("producer called %d times, want exactly 1", got)
	}
	if h.sink.Len() != 0 {
		t.Fatal("failed file must not publish a result")
	}
	if st.Score.TotalProcessed != 0 || st.LastError == "" {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestPanicIsContained(t *testing.T) {
	registry := artifact.NewRegistry()
	panicking := artifact.ProducerFunc(func(context.Context, string) (*artifact.Artifact, error) {
		panic("decoder bug")
	})
	if err := registry.Register("photon", panicking, ".bin"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := registry.Register("artifact", artifact.NPZProducer{}, ".npz"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	h := newHarness(t, registry)

	bad := filepath.Join(h.cfg.Paths.WatchDir, "bad.bin")
	testsupport.WriteFile(t, bad, []byte{1})
	good := filepath.Join(h.cfg.Paths.WatchDir, "good.npz")
	testsupport.WriteTimestampsNPZ(t, good, testsupport.UniformTimestamps(5, 1))
	for _, path := range []string{bad, good} {
		if _, err := h.manager.Enqueue(path); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	msg := h.next(t)
	if msg.FileName() != "good.npz" || msg.ExperimentNumber() != 1 {
		t.Fatalf("unexpected message after panic: %s #%d", msg.FileName(), msg.ExperimentNumber())
	}
	if st := h.manager.Status(); st.Dropped != 1 {
		t.Fatalf("expected one dropped file, got %+v", st)
	}
}

func TestShortSeriesIsRejectedAndResetsStreak(t *testing.T) {
	h := newHarness(t, nil)
	files := []struct {
		name string
		ts   []float64
	}{
		{"a.npz", testsupport.UniformTimestamps(10, 1)},
		{"b.npz", []float64{42}},
		{"c.npz", testsupport.UniformTimestamps(10, 1)},
	}
	for _, f := range files {
		path := filepath.Join(h.cfg.Paths.WatchDir, f.name)
		testsupport.WriteTimestampsNPZ(t, path, f.ts)
		if _, err := h.manager.Enqueue(path); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	var streaks []int
	for range files {
		streaks = append(streaks, h.next(t).CumulativeValue())
	}
	if diff := cmp.Diff([]int{1, 0, 1}, streaks); diff != "" {
		t.Fatalf("streak mismatch (-want +got):\n%s", diff)
	}
}

func TestSpectrumFollowsCategorySetting(t *testing.T) {
	h := newHarness(t, nil, testsupport.WithCategories(
		config.Category{Name: "scope", Extensions: []string{".npz"}, Producer: config.ProducerNPZ, Spectrum: true},
		config.Category{Name: "photon", Extensions: []string{".bin"}, Producer: config.ProducerPhoton},
	))

	npz := filepath.Join(h.cfg.Paths.WatchDir, "scope.npz")
	testsupport.WriteTimestampsNPZ(t, npz, testsupport.UniformTimestamps(64, 0.5))
	bin := filepath.Join(h.cfg.Paths.WatchDir, "photon.bin")
	ps := make([]uint64, 65)
	for i := range ps {
		ps[i] = uint64(i) * 1e12
	}
	testsupport.WritePhotonBinary(t, bin, ps)

	for _, path := range []string{npz, bin} {
		if _, err := h.manager.Enqueue(path); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	first, second := h.next(t), h.next(t)
	if first.Spectrum == nil || first.Spectrum.Len() == 0 {
		t.Fatal("expected spectrum for scope category")
	}
	if second.Spectrum != nil {
		t.Fatal("photon category should not carry a spectrum")
	}
	if got, _ := second.Stats.Text(sink.StatProcessorType); got != config.ProducerPhoton {
		t.Fatalf("processor_type = %q", got)
	}
}

func TestEnqueueRejectsUnknownFiles(t *testing.T) {
	h := newHarness(t, nil)
	if _, err := h.manager.Enqueue(filepath.Join(h.cfg.Paths.WatchDir, "missing.bin")); err == nil {
		t.Fatal("expected error for missing file")
	}
	other := filepath.Join(h.cfg.Paths.WatchDir, "notes.md")
	testsupport.WriteFile(t, other, []byte("x"))
	if _, err := h.manager.Enqueue(other); err == nil {
		t.Fatal("expected error for unregistered extension")
	}
}

func TestStopIsIdempotentAndStartTwiceFails(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.manager.Start(context.Background()); err == nil {
		t.Fatal("expected error starting twice")
	}
	h.manager.Stop()
	h.manager.Stop()
	if h.manager.Status().Running {
		t.Fatal("expected stopped manager")
	}
}

func TestInspect(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := filepath.Join(cfg.Paths.WatchDir, "gage_shot_00003.npz")
	testsupport.WriteTimestampsNPZ(t, path, testsupport.UniformTimestamps(16, 1))

	report, err := pipeline.Inspect(context.Background(), cfg, nil, path, logging.NewNop())
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if report.Category != "artifact" || report.Policy != "spacing" || !report.Result.Accepted {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Spectrum == nil {
		t.Fatal("expected spectrum")
	}
	if _, err := pipeline.Inspect(context.Background(), cfg, nil, filepath.Join(cfg.Paths.WatchDir, "x.md"), logging.NewNop()); err == nil {
		t.Fatal("expected error for unregistered file")
	}
}
