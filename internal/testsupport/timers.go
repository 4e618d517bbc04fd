package testsupport

import (
	"sync"
	"time"
)

// Timers is a manual replacement for deferred callbacks. Callbacks run only
// when a test fires them.
type Timers struct {
	mu     sync.Mutex
	timers []*Timer
}

// Timer is one scheduled callback.
type Timer struct {
	Delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

// AfterFunc schedules fn and returns a stop function.
func (ts *Timers) AfterFunc(d time.Duration, fn func()) func() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	timer := &Timer{Delay: d, fn: fn}
	ts.timers = append(ts.timers, timer)
	return func() {
		ts.mu.Lock()
		defer ts.mu.Unlock()
		timer.stopped = true
	}
}

// Pending returns timers that were neither stopped nor fired.
func (ts *Timers) Pending() []*Timer {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	var out []*Timer
	for _, timer := range ts.timers {
		if !timer.stopped && !timer.fired {
			out = append(out, timer)
		}
	}
	return out
}

// Fire runs every pending timer scheduled with delay d. It returns how many ran.
func (ts *Timers) Fire(d time.Duration) int {
	n := 0
	for _, timer := range ts.Pending() {
		if timer.Delay != d {
			continue
		}
		ts.mu.Lock()
		timer.fired = true
		ts.mu.Unlock()
		timer.fn()
		n++
	}
	return n
}
