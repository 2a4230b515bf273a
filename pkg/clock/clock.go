package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time and schedules single-shot callbacks.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc calls f once, after d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a scheduled callback.
type Timer interface {
	// Stop prevents the callback from firing. It returns false if the
	// callback already fired or was already stopped.
	Stop() bool
}

// New returns a Clock backed by the wall clock.
func New() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Every calls f repeatedly at the given interval on c, starting one interval
// from now. Stopping the returned Timer ends the repetition.
func Every(c Clock, interval time.Duration, f func()) Timer {
	r := &repeater{clock: c, interval: interval, fn: f}
	r.mu.Lock()
	r.next = c.AfterFunc(interval, r.fire)
	r.mu.Unlock()
	return r
}

type repeater struct {
	mu       sync.Mutex
	clock    Clock
	interval time.Duration
	fn       func()
	next     Timer
	stopped  bool
}

func (r *repeater) fire() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.fn()

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.stopped {
		r.next = r.clock.AfterFunc(r.interval, r.fire)
	}
}

func (r *repeater) Stop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return false
	}
	r.stopped = true
	if r.next != nil {
		r.next.Stop()
	}
	return true
}
