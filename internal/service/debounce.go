package service

import (
	"sync"
	"time"
)

// Debouncer is a time-based lock: after Allow succeeds, further calls fail
// until the window has elapsed. Nothing blocks and nothing is queued.
type Debouncer struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time
	until  time.Time
}

// NewDebouncer returns a Debouncer with the given window.
// now defaults to time.Now when nil.
func NewDebouncer(window time.Duration, now func() time.Time) *Debouncer {
	if now == nil {
		now = time.Now
	}
	return &Debouncer{window: window, now: now}
}

// Allow reports whether a call may proceed and, if so, locks the window
// [now, now+window).
func (d *Debouncer) Allow() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.now()
	if t.Before(d.until) {
		return false
	}
	d.until = t.Add(d.window)
	return true
}
