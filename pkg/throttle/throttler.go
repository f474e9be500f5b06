// ABOUTME: Leading-edge-aware trailing throttle for outbound view updates
// ABOUTME: Single-slot mailbox: newer requests overwrite older ones, the latest is always sent
package throttle

import (
	"log"
	"sync"
	"time"
)

// DefaultInterval is the minimum spacing between outbound view updates
const DefaultInterval = 50 * time.Millisecond

// ViewUpdate is the payload of an audio.view.set request
type ViewUpdate struct {
	Zoom      float64
	OffsetSec float64
}

// SendFunc delivers an update to the transport
type SendFunc func(ViewUpdate) error

// Timer is a cancellable one-shot timer
type Timer interface {
	Stop() bool
}

// Clock abstracts time so tests can drive the throttle deterministically
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Option configures a Throttler
type Option func(*Throttler)

// WithClock replaces the wall clock
func WithClock(c Clock) Option {
	return func(t *Throttler) {
		t.clock = c
	}
}

// Throttler bounds outbound view updates to one per interval while guaranteeing
// the most recent request is eventually sent exactly once.
type Throttler struct {
	mu       sync.Mutex
	interval time.Duration
	clock    Clock
	send     SendFunc

	pending  *ViewUpdate
	timer    Timer
	timerGen uint64
	lastSent time.Time
	sent     int64
	stopped  bool
}

// New creates a throttler. A non-positive interval uses DefaultInterval.
func New(interval time.Duration, send SendFunc, opts ...Option) *Throttler {
	if interval <= 0 {
		interval = DefaultInterval
	}

	t := &Throttler{
		interval: interval,
		clock:    realClock{},
		send:     send,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Request records update as the pending value and sends it now if the
// interval has elapsed, otherwise arms the trailing timer.
func (t *Throttler) Request(update ViewUpdate) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return
	}

	t.pending = &update

	elapsed := t.clock.Now().Sub(t.lastSent)
	if elapsed >= t.interval {
		t.flushLocked()
		return
	}

	if t.timer == nil {
		t.timerGen++
		gen := t.timerGen
		t.timer = t.clock.AfterFunc(t.interval-elapsed, func() { t.fire(gen) })
	}
}

// fire runs when the trailing timer expires. A timer superseded by an
// immediate send must not flush a value that belongs to a newer timer.
func (t *Throttler) fire(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped || gen != t.timerGen || t.timer == nil {
		return
	}
	t.flushLocked()
}

func (t *Throttler) flushLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.pending == nil {
		return
	}

	update := *t.pending
	t.pending = nil
	t.lastSent = t.clock.Now()
	t.sent++

	if err := t.send(update); err != nil {
		log.Printf("View update send failed: %v", err)
	}
}

// SetInterval changes the spacing for subsequent sends. A non-positive
// interval uses DefaultInterval. An armed trailing timer keeps its deadline.
func (t *Throttler) SetInterval(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.interval = interval
}

// Interval returns the current spacing
func (t *Throttler) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}

// Pending returns the value waiting for the trailing timer, if any
func (t *Throttler) Pending() (ViewUpdate, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == nil {
		return ViewUpdate{}, false
	}
	return *t.pending, true
}

// Sent returns how many updates have been handed to the transport
func (t *Throttler) Sent() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sent
}

// Stop cancels the trailing timer and drops any pending update.
// Subsequent requests are ignored.
func (t *Throttler) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	t.pending = nil
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
