// ABOUTME: Playback clock abstraction and a simulated wall-clock implementation
// ABOUTME: The clock is the local "audio element" the playhead follows
package playback

import (
	"errors"
	"math"
	"sync"
	"time"
)

// ErrNoSource is returned when playing a clock that has nothing loaded
var ErrNoSource = errors.New("no playback source loaded")

// Clock is a local playback position source
type Clock interface {
	// CurrentTime returns the playback position in seconds
	CurrentTime() float64
	// Duration returns the loaded media length in seconds, 0 when unknown
	Duration() float64
	// Paused reports whether playback is stopped, including after reaching the end
	Paused() bool
	// HasSource reports whether media is loaded
	HasSource() bool
	Play() error
	Pause()
	Seek(sec float64)
}

// Loader is implemented by clocks that can load a local media file
type Loader interface {
	Load(path string) error
}

// WallClock simulates a media element by advancing with wall time.
// It is used in headless mode and wherever no audio device is available.
type WallClock struct {
	mu        sync.Mutex
	now       func() time.Time
	duration  float64
	hasSource bool
	paused    bool
	position  float64
	startedAt time.Time
}

// WallClockOption configures a WallClock
type WallClockOption func(*WallClock)

// WithNow replaces time.Now, for tests
func WithNow(now func() time.Time) WallClockOption {
	return func(c *WallClock) {
		c.now = now
	}
}

// NewWallClock creates a paused clock with no source
func NewWallClock(opts ...WallClockOption) *WallClock {
	c := &WallClock{now: time.Now, paused: true}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load marks a source as present and rewinds. The path is not read; the
// duration comes from SetDuration.
func (c *WallClock) Load(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hasSource = true
	c.paused = true
	c.position = 0
	return nil
}

// SetDuration sets the media length in seconds
func (c *WallClock) SetDuration(sec float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if math.IsNaN(sec) || sec < 0 {
		sec = 0
	}
	c.duration = sec
}

func (c *WallClock) positionLocked() float64 {
	pos := c.position
	if !c.paused {
		pos += c.now().Sub(c.startedAt).Seconds()
	}
	if c.duration > 0 && pos > c.duration {
		pos = c.duration
	}
	return pos
}

// CurrentTime implements Clock
func (c *WallClock) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionLocked()
}

// Duration implements Clock
func (c *WallClock) Duration() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

// Paused implements Clock. A clock that has reached the end reports paused.
func (c *WallClock) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return true
	}
	if c.duration > 0 && c.positionLocked() >= c.duration {
		c.position = c.duration
		c.paused = true
		return true
	}
	return false
}

// HasSource implements Clock
func (c *WallClock) HasSource() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasSource
}

// Play implements Clock. Playing at the end restarts from the beginning.
func (c *WallClock) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasSource {
		return ErrNoSource
	}
	if !c.paused {
		return nil
	}
	if c.duration > 0 && c.position >= c.duration {
		c.position = 0
	}
	c.paused = false
	c.startedAt = c.now()
	return nil
}

// Pause implements Clock
func (c *WallClock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return
	}
	c.position = c.positionLocked()
	c.paused = true
}

// Seek implements Clock
func (c *WallClock) Seek(sec float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if math.IsNaN(sec) || sec < 0 {
		sec = 0
	}
	if c.duration > 0 && sec > c.duration {
		sec = c.duration
	}
	c.position = sec
	if !c.paused {
		c.startedAt = c.now()
	}
}
