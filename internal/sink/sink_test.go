package sink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"labwatch/internal/evaluate"
	"labwatch/internal/logging"
)

func message(n int) Message {
	var stats evaluate.Stats
	stats.Set(StatExperimentNumber, n)
	return Message{Category: "photon", Stats: stats}
}

func drain(q *Queue) []int {
	var got []int
	for {
		select {
		case msg := <-q.Messages():
			got = append(got, msg.ExperimentNumber())
		default:
			return got
		}
	}
}

func TestQueuePreservesOrder(t *testing.T) {
	q := NewQueue(8, logging.NewNop())
	for i := 1; i <= 5; i++ {
		if !q.Publish(message(i)) {
			t.Fatalf("Publish(%d) refused", i)
		}
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4, 5}, drain(q)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestQueueDropsOldestWhenFull(t *testing.T) {
	q := NewQueue(3, logging.NewNop())
	done := make(chan struct{})
	go func() {
		for i := 1; i <= 5; i++ {
			q.Publish(message(i))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
	if diff := cmp.Diff([]int{3, 4, 5}, drain(q)); diff != "" {
		t.Fatalf("retained mismatch (-want +got):\n%s", diff)
	}
	if q.Dropped() != 2 {
		t.Fatalf("Dropped = %d, want 2", q.Dropped())
	}
}

func TestQueueClose(t *testing.T) {
	q := NewQueue(2, logging.NewNop())
	q.Publish(message(1))
	q.Close()
	q.Close()
	if q.Publish(message(2)) {
		t.Fatal("Publish after Close should be refused")
	}
	msg, ok := <-q.Messages()
	if !ok || msg.ExperimentNumber() != 1 {
		t.Fatalf("expected buffered message, got %+v ok=%v", msg, ok)
	}
	if _, ok := <-q.Messages(); ok {
		t.Fatal("expected closed channel")
	}
}

func TestFanoutDeliversToEveryConsumer(t *testing.T) {
	var mu sync.Mutex
	var first, second []int
	failing := ConsumerFunc(func(context.Context, Message) error { return errors.New("boom") })
	fan := NewFanout(logging.NewNop(),
		ConsumerFunc(func(_ context.Context, m Message) error {
			mu.Lock()
			first = append(first, m.ExperimentNumber())
			mu.Unlock()
			return nil
		}),
		failing,
		ConsumerFunc(func(_ context.Context, m Message) error {
			mu.Lock()
			second = append(second, m.ExperimentNumber())
			mu.Unlock()
			return nil
		}),
	)

	q := NewQueue(8, logging.NewNop())
	for i := 1; i <= 3; i++ {
		q.Publish(message(i))
	}
	q.Close()
	fan.Run(context.Background(), q.Messages())

	if diff := cmp.Diff([]int{1, 2, 3}, first); diff != "" {
		t.Fatalf("first consumer mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("second consumer mismatch (-want +got):\n%s", diff)
	}
}

func TestMessageFileNameFallsBackToArtifact(t *testing.T) {
	var m Message
	if m.FileName() != "" {
		t.Fatalf("expected empty name, got %q", m.FileName())
	}
	var stats evaluate.Stats
	stats.Set(StatFileName, "processed_a.npz")
	stats.Set(StatCumulativeValue, 4)
	m.Stats = stats
	if m.FileName() != "processed_a.npz" || m.CumulativeValue() != 4 {
		t.Fatalf("unexpected accessors: %q %d", m.FileName(), m.CumulativeValue())
	}
}
