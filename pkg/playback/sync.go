// ABOUTME: Keeps the waveform view aligned with local playback
// ABOUTME: Scrolls the view when the playhead nears an edge and refreshes the time label
package playback

import (
	"time"

	"github.com/wavescrub/wavescrub-go/pkg/throttle"
	"github.com/wavescrub/wavescrub-go/pkg/view"
)

// EdgePadding is the fraction of the view duration kept between the
// playhead and either edge before the view is recentred
const EdgePadding = 0.1

// Host is the view side the playback loop drives
type Host interface {
	// Mapper returns the current coordinate mapping
	Mapper() view.Mapper
	// RequestView schedules a throttled view update
	RequestView(update throttle.ViewUpdate)
	Redraw()
	SetTimeLabel(label string)
}

// Sync follows a Clock and keeps the playhead inside the view
type Sync struct {
	clock     Clock
	host      Host
	scheduler *Scheduler
}

// NewSync creates a playback sync. A non-positive interval uses DefaultFrameInterval.
func NewSync(clock Clock, host Host, interval time.Duration) *Sync {
	s := &Sync{
		clock: clock,
		host:  host,
	}
	s.scheduler = NewScheduler(interval, s.Tick)
	return s
}

// Clock returns the followed clock
func (s *Sync) Clock() Clock {
	return s.clock
}

// Running reports whether the frame loop is active
func (s *Sync) Running() bool {
	return s.scheduler.Running()
}

// Tick runs one frame. It returns false once playback is paused or ended.
func (s *Sync) Tick() bool {
	s.host.SetTimeLabel(TimeLabel(s.clock))
	if s.clock.Paused() {
		return false
	}
	s.EnsurePlayheadVisible()
	s.host.Redraw()
	return true
}

// EnsurePlayheadVisible requests a recentred view when the playhead is
// within EdgePadding of either edge or outside the view
func (s *Sync) EnsurePlayheadVisible() {
	m := s.host.Mapper()
	if !m.HasState() {
		return
	}
	viewDuration := m.ViewDuration()
	if viewDuration <= 0 {
		return
	}

	current := s.clock.CurrentTime()
	offset := m.Offset()
	padding := viewDuration * EdgePadding
	if current >= offset+padding && current <= offset+viewDuration-padding {
		return
	}

	next := m.ClampOffset(current - viewDuration*0.5)
	if next == offset {
		return
	}
	s.host.RequestView(throttle.ViewUpdate{Zoom: m.Zoom(), OffsetSec: next})
}

// OnPlay starts the frame loop
func (s *Sync) OnPlay() {
	s.scheduler.Start()
}

// OnPause stops the frame loop and refreshes the readout once
func (s *Sync) OnPause() {
	s.scheduler.Stop()
	s.host.SetTimeLabel(TimeLabel(s.clock))
	s.host.Redraw()
}

// Stop halts the frame loop without touching the host
func (s *Sync) Stop() {
	s.scheduler.Stop()
}
