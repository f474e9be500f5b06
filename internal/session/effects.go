// ABOUTME: Adapters connecting the gesture controller and playback sync to the session
// ABOUTME: effects runs with the session lock held; host never takes it
package session

import (
	"errors"

	"github.com/wavescrub/wavescrub-go/pkg/playback"
	"github.com/wavescrub/wavescrub-go/pkg/protocol"
	"github.com/wavescrub/wavescrub-go/pkg/throttle"
	"github.com/wavescrub/wavescrub-go/pkg/view"
)

// effects implements gesture.Effects. Callers hold s.mu.
type effects struct {
	s *Session
}

func (e effects) RequestView(u throttle.ViewUpdate) {
	e.s.throttler.Request(u)
}

func (e effects) SendSelect(sel view.Range) {
	e.s.send(protocol.TypeSelect, protocol.Select{Start: sel.Start, End: sel.End})
}

func (e effects) Seek(sec float64) {
	e.s.clock.Seek(sec)
	e.s.uiMu.Lock()
	e.s.timeLabel = playback.TimeLabel(e.s.clock)
	e.s.uiMu.Unlock()
	e.s.requestRedraw()
}

func (e effects) TogglePlayback() {
	if err := e.s.togglePlaybackLocked(); err != nil && !errors.Is(err, playback.ErrNoSource) {
		e.s.status = err.Error()
	}
}

func (e effects) Redraw() {
	e.s.requestRedraw()
}

// host implements playback.Host. It runs on the playback goroutine and only
// touches state guarded by uiMu or by its own locks.
type host struct {
	s *Session
}

func (h host) Mapper() view.Mapper {
	return h.s.store.Mapper(h.s.ViewportWidth())
}

func (h host) RequestView(u throttle.ViewUpdate) {
	h.s.throttler.Request(u)
}

func (h host) Redraw() {
	h.s.requestRedraw()
}

func (h host) SetTimeLabel(label string) {
	h.s.uiMu.Lock()
	defer h.s.uiMu.Unlock()
	h.s.timeLabel = label
}
