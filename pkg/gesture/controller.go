// ABOUTME: Pointer and keyboard gesture state machine for the waveform surface
// ABOUTME: Turns pointer input into pan, select, seek, zoom and playback intents
package gesture

import (
	"math"

	"github.com/wavescrub/wavescrub-go/pkg/throttle"
	"github.com/wavescrub/wavescrub-go/pkg/view"
)

const (
	// ClickThresholdPx is the largest drag still treated as a click-to-seek
	ClickThresholdPx = 3.0

	// ZoomInFactor and ZoomOutFactor scale the zoom per wheel notch
	ZoomInFactor  = 0.9
	ZoomOutFactor = 1.1

	// KeySpace is the key code that toggles playback
	KeySpace = "Space"
)

// Kind tags the active gesture
type Kind int

const (
	Idle Kind = iota
	Selecting
	Panning
)

func (k Kind) String() string {
	switch k {
	case Selecting:
		return "selecting"
	case Panning:
		return "panning"
	default:
		return "idle"
	}
}

// State is the active gesture. AnchorOffsetSec is only meaningful while panning.
type State struct {
	Kind            Kind
	AnchorPx        float64
	AnchorOffsetSec float64
}

// Effects receives the intents produced by gestures
type Effects interface {
	// RequestView schedules a throttled audio.view.set
	RequestView(update throttle.ViewUpdate)
	// SendSelect sends audio.select immediately
	SendSelect(selection view.Range)
	// Seek moves the local playback cursor
	Seek(sec float64)
	// TogglePlayback plays or pauses local playback
	TogglePlayback()
	// Redraw asks for a new render pass
	Redraw()
}

// Controller is the gesture state machine. It is not safe for concurrent use;
// the owning session serializes calls.
type Controller struct {
	store         *view.Store
	effects       Effects
	viewportWidth float64
	state         State
}

// NewController creates a controller bound to a store and an effects sink
func NewController(store *view.Store, effects Effects, viewportWidth float64) *Controller {
	return &Controller{
		store:         store,
		effects:       effects,
		viewportWidth: viewportWidth,
	}
}

// State returns the active gesture
func (c *Controller) State() State {
	return c.state
}

// SetViewportWidth updates the pointer-space width after a resize
func (c *Controller) SetViewportWidth(width float64) {
	c.viewportWidth = width
}

// ViewportWidth returns the pointer-space width
func (c *Controller) ViewportWidth() float64 {
	return c.viewportWidth
}

func (c *Controller) mapper() view.Mapper {
	return c.store.Mapper(c.viewportWidth)
}

// PointerDown starts a pan (shift held) or a selection
func (c *Controller) PointerDown(px float64, shift bool) {
	if shift {
		c.state = State{
			Kind:            Panning,
			AnchorPx:        px,
			AnchorOffsetSec: c.mapper().Offset(),
		}
		return
	}

	c.state = State{Kind: Selecting, AnchorPx: px}
	if c.store.ClearPreview() {
		c.effects.Redraw()
	}
}

// PointerMove streams pan updates or refreshes the local selection preview
func (c *Controller) PointerMove(px float64) {
	switch c.state.Kind {
	case Panning:
		m := c.mapper()
		if !m.HasState() {
			return
		}
		delta := m.PixelDeltaToSeconds(px - c.state.AnchorPx)
		c.effects.RequestView(throttle.ViewUpdate{
			Zoom:      m.Zoom(),
			OffsetSec: m.ClampOffset(c.state.AnchorOffsetSec - delta),
		})

	case Selecting:
		m := c.mapper()
		if !m.HasState() {
			return
		}
		c.store.SetPreview(view.NewRange(m.PixelToTime(c.state.AnchorPx), m.PixelToTime(px)))
		c.effects.Redraw()
	}
}

// PointerUp ends the active gesture. A selection drag shorter than
// ClickThresholdPx becomes a seek.
func (c *Controller) PointerUp(px float64) {
	prev := c.state
	c.state = State{}

	if prev.Kind != Selecting {
		return
	}

	c.store.ClearPreview()
	m := c.mapper()
	if !m.HasState() {
		return
	}

	if math.Abs(px-prev.AnchorPx) < ClickThresholdPx {
		c.effects.Seek(m.ClampTime(m.PixelToTime(px)))
		c.effects.Redraw()
		return
	}

	c.effects.SendSelect(view.NewRange(m.PixelToTime(prev.AnchorPx), m.PixelToTime(px)))
}

// PointerLeave abandons any gesture without sending anything
func (c *Controller) PointerLeave() {
	c.state = State{}
	c.store.ClearPreview()
	c.effects.Redraw()
}

// Wheel zooms around the pointer. Negative deltaY zooms in.
func (c *Controller) Wheel(px, deltaY float64) {
	m := c.mapper()
	if !m.HasState() {
		return
	}

	factor := ZoomOutFactor
	if deltaY < 0 {
		factor = ZoomInFactor
	}
	zoom := view.ClampZoom(m.Zoom() * factor)

	c.effects.RequestView(throttle.ViewUpdate{
		Zoom:      zoom,
		OffsetSec: m.AnchoredOffset(px, zoom),
	})
}

// DoubleClick fits the whole track into the viewport
func (c *Controller) DoubleClick() {
	m := c.mapper()
	if !m.HasState() {
		return
	}
	c.effects.RequestView(throttle.ViewUpdate{Zoom: m.FitZoom(), OffsetSec: 0})
}

// Key handles document-level keys. editable reports whether focus is inside
// a text control, in which case the key belongs to that control.
func (c *Controller) Key(code string, editable bool) bool {
	if code != KeySpace || editable {
		return false
	}
	c.effects.TogglePlayback()
	return true
}
