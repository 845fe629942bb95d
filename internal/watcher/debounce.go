package watcher

import (
	"sync"
	"time"
)

// Debouncer runs callbacks after a fixed delay. Each Schedule call owns an
// independent timer; callbacks that fall due together run in no guaranteed
// order.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timers  map[uint64]*time.Timer
	next    uint64
	stopped bool
	wg      sync.WaitGroup
}

// NewDebouncer returns a Debouncer with the given delay.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay, timers: make(map[uint64]*time.Timer)}
}

// Delay is the configured delay.
func (d *Debouncer) Delay() time.Duration { return d.delay }

// Schedule runs fn once the delay elapses. It reports false after Stop.
func (d *Debouncer) Schedule(fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return false
	}
	id := d.next
	d.next++
	d.wg.Add(1)
	d.timers[id] = time.AfterFunc(d.delay, func() { d.fire(id, fn) })
	return true
}

func (d *Debouncer) fire(id uint64, fn func()) {
	d.mu.Lock()
	_, ok := d.timers[id]
	delete(d.timers, id)
	stopped := d.stopped
	d.mu.Unlock()
	if !ok {
		return
	}
	defer d.wg.Done()
	if !stopped {
		fn()
	}
}

// Pending is the number of scheduled callbacks that have not fired.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}

// Stop cancels pending callbacks and waits for running ones to return.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	for id, t := range d.timers {
		if t.Stop() {
			delete(d.timers, id)
			d.wg.Done()
		}
	}
	d.mu.Unlock()
	d.wg.Wait()
}
