package watcher

import (
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDebouncerDelaysCallback(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	start := time.Now()
	fired := make(chan time.Duration, 1)
	if !d.Schedule(func() { fired <- time.Since(start) }) {
		t.Fatal("Schedule refused")
	}
	select {
	case elapsed := <-fired:
		if elapsed < 25*time.Millisecond {
			t.Fatalf("callback fired early after %v", elapsed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("callback never fired")
	}
}

func TestDebouncerStopCancelsPending(t *testing.T) {
	d := NewDebouncer(time.Hour)
	var fired atomic.Int32
	for i := 0; i < 3; i++ {
		d.Schedule(func() { fired.Add(1) })
	}
	if d.Pending() != 3 {
		t.Fatalf("Pending = %d", d.Pending())
	}
	d.Stop()
	if d.Pending() != 0 {
		t.Fatalf("Pending after Stop = %d", d.Pending())
	}
	if fired.Load() != 0 {
		t.Fatal("cancelled callbacks must not run")
	}
	if d.Schedule(func() {}) {
		t.Fatal("Schedule after Stop should be refused")
	}
}

// Timers that fall due together are independent; delivery order is not part
// of the contract. This test pins completeness and deliberately does not
// assert order.
func TestDebouncerDoesNotGuaranteeOrder(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	defer d.Stop()

	const n = 50
	var (
		mu  sync.Mutex
		got []int
		wg  sync.WaitGroup
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		d.Schedule(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()

	inOrder := sort.IntsAreSorted(got)
	if !inOrder {
		t.Logf("callbacks delivered out of schedule order: %v", got)
	}
	sort.Ints(got)
	want := make([]int, n)
	for i := range want {
		want[i] = i
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("delivered set mismatch (-want +got):\n%s", diff)
	}
}
