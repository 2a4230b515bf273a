package countdown

import (
	"errors"
	"sync"
	"time"

	"github.com/innerspark/emergency-go/pkg/clock"
)

// TickInterval is the cadence at which remaining time is reported.
const TickInterval = time.Second

// Countdown errors.
var (
	ErrInvalidDuration = errors.New("invalid countdown duration")
)

// Handle identifies one started countdown. The zero Handle is never active.
type Handle struct {
	id uint64
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool {
	return h.id == 0
}

// run is one started countdown.
type run struct {
	id         uint64
	deadline   time.Time
	lastReport int
	timer      clock.Timer
	onTick     func(remaining int)
	onComplete func()
}

// Timer runs at most one countdown at a time.
type Timer struct {
	clock clock.Clock
	loop  sync.Locker

	nextID uint64
	active *run
}

// New creates a countdown timer on clk. loop is the owner's turn lock; see the
// package documentation.
func New(clk clock.Clock, loop sync.Locker) *Timer {
	return &Timer{
		clock: clk,
		loop:  loop,
	}
}

// Start begins a countdown of the given number of seconds and returns its
// handle. Negative values are treated as zero. Any countdown already running
// on this Timer is cancelled first. The caller must hold the turn lock.
func (t *Timer) Start(seconds int, onTick func(remaining int), onComplete func()) Handle {
	if seconds < 0 {
		seconds = 0
	}

	t.cancelActive()

	t.nextID++
	r := &run{
		id:         t.nextID,
		deadline:   t.clock.Now().Add(time.Duration(seconds) * time.Second),
		lastReport: seconds,
		onTick:     onTick,
		onComplete: onComplete,
	}
	h := Handle{id: r.id}

	if seconds == 0 {
		if onComplete != nil {
			onComplete()
		}
		return h
	}

	t.active = r
	t.schedule(r, seconds)
	return h
}

// StartChecked is Start with validation of the duration.
func (t *Timer) StartChecked(seconds int, onTick func(remaining int), onComplete func()) (Handle, error) {
	if seconds < 0 {
		return Handle{}, ErrInvalidDuration
	}
	return t.Start(seconds, onTick, onComplete), nil
}

// Cancel stops the countdown identified by h. It returns false if h is not
// the running countdown. After Cancel returns, no callback of h fires.
// The caller must hold the turn lock.
func (t *Timer) Cancel(h Handle) bool {
	if t.active == nil || h.IsZero() || t.active.id != h.id {
		return false
	}
	t.cancelActive()
	return true
}

// Active reports whether a countdown is running. The caller must hold the
// turn lock.
func (t *Timer) Active() bool {
	return t.active != nil
}

// Remaining returns the whole seconds left on the running countdown, derived
// from its deadline, or 0 when none is running. The caller must hold the turn
// lock.
func (t *Timer) Remaining() int {
	if t.active == nil {
		return 0
	}
	return secondsUntil(t.active.deadline, t.clock.Now())
}

// cancelActive stops and forgets the running countdown, if any.
func (t *Timer) cancelActive() {
	if t.active == nil {
		return
	}
	if t.active.timer != nil {
		t.active.timer.Stop()
	}
	t.active = nil
}

// schedule arms the next tick for r, aligned to the moment the remaining
// whole seconds drop below remaining.
func (t *Timer) schedule(r *run, remaining int) {
	next := r.deadline.Add(-time.Duration(remaining-1) * TickInterval)
	delay := next.Sub(t.clock.Now())
	if delay < 0 {
		delay = 0
	}
	id := r.id
	r.timer = t.clock.AfterFunc(delay, func() { t.fire(id) })
}

// fire handles a scheduled tick for the countdown with the given id.
func (t *Timer) fire(id uint64) {
	t.loop.Lock()
	defer t.loop.Unlock()

	r := t.active
	if r == nil || r.id != id {
		return // cancelled or replaced
	}

	remaining := secondsUntil(r.deadline, t.clock.Now())
	if remaining <= 0 {
		t.active = nil
		if r.onComplete != nil {
			r.onComplete()
		}
		return
	}

	if remaining != r.lastReport {
		r.lastReport = remaining
		if r.onTick != nil {
			r.onTick(remaining)
		}
	}

	// The tick callback may have cancelled or replaced this countdown.
	if t.active == r {
		t.schedule(r, remaining)
	}
}

// secondsUntil returns the whole seconds from now until deadline, rounded up,
// never negative.
func secondsUntil(deadline, now time.Time) int {
	d := deadline.Sub(now)
	if d <= 0 {
		return 0
	}
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}
