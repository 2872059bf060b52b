package search

import (
	"sync"
	"time"
)

// Throttler coalesces bursts of calls into at most one run per interval,
// with leading and trailing edges: the first trigger runs immediately, and a
// trigger arriving inside the quiet window is never dropped, it runs once
// when the window closes.
type Throttler struct {
	interval time.Duration
	fn       func()

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
}

func NewThrottler(interval time.Duration, fn func()) *Throttler {
	return &Throttler{interval: interval, fn: fn}
}

func (t *Throttler) Trigger() {
	t.mu.Lock()
	if t.timer != nil {
		t.pending = true
		t.mu.Unlock()
		return
	}
	t.timer = time.AfterFunc(t.interval, t.onTimer)
	t.mu.Unlock()

	t.fn()
}

func (t *Throttler) onTimer() {
	t.mu.Lock()
	if !t.pending {
		t.timer = nil
		t.mu.Unlock()
		return
	}
	t.pending = false
	t.timer = time.AfterFunc(t.interval, t.onTimer)
	t.mu.Unlock()

	t.fn()
}

// Stop cancels the quiet window and runs the trailing call right away if one
// is pending. Useful on shutdown so no write is lost.
func (t *Throttler) Stop() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	run := t.pending
	t.pending = false
	t.mu.Unlock()

	if run {
		t.fn()
	}
}
