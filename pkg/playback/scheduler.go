// ABOUTME: Frame scheduler driving the playback loop
// ABOUTME: Ticks a callback at display rate until stopped or the callback declines
package playback

import (
	"sync"
	"time"
)

// DefaultFrameInterval approximates a 60Hz display refresh
const DefaultFrameInterval = time.Second / 60

// Scheduler runs a tick callback on its own goroutine. Start and Stop are
// idempotent, and Stop never waits for an in-flight tick.
type Scheduler struct {
	mu       sync.Mutex
	interval time.Duration
	tick     func() bool
	stop     chan struct{}
	running  bool
	gen      uint64
}

// NewScheduler creates a stopped scheduler. tick returning false stops it.
func NewScheduler(interval time.Duration, tick func() bool) *Scheduler {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Scheduler{
		interval: interval,
		tick:     tick,
	}
}

// Start begins ticking if not already running
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.gen++
	s.stop = make(chan struct{})
	go s.loop(s.gen, s.stop)
}

// Stop halts ticking if running
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stop)
	s.stop = nil
}

// Running reports whether the loop is active
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !s.tick() {
				s.finish(gen)
				return
			}
		}
	}
}

// finish marks a self-terminated loop as stopped unless a newer one replaced it
func (s *Scheduler) finish(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || !s.running {
		return
	}
	s.running = false
	close(s.stop)
	s.stop = nil
}
