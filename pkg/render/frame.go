// ABOUTME: Frame description shared by the raster and terminal renderers
// ABOUTME: Computes overlay geometry for the selection and the playhead
package render

import (
	"math"

	"github.com/wavescrub/wavescrub-go/pkg/view"
)

// Frame is everything needed to draw one waveform pass
type Frame struct {
	Samples []float64
	Mapper  view.Mapper

	// Selection is the effective selection: the local preview when one is
	// active, otherwise the confirmed selection. Nil draws no overlay.
	Selection *view.Range

	// PlayheadSec is the local playback position. The playhead is only drawn
	// when PlaybackDuration is positive.
	PlayheadSec      float64
	PlaybackDuration float64

	// Label is drawn in the top-left corner when non-empty
	Label string
}

// Result reports what a render pass produced
type Result struct {
	HasWaveform bool
	Drawn       bool

	SelectionVisible bool
	SelectionLeft    float64
	SelectionRight   float64

	PlayheadVisible bool
	PlayheadX       float64
}

// ratio maps seconds to a fraction of the view, where [0, 1] is on screen
func (f Frame) ratio(sec float64) float64 {
	return f.Mapper.TimeToPixel(sec) / f.Mapper.ViewportWidth()
}

// SelectionSpan returns the selection overlay clipped to [0, width]. ok is
// false when there is no selection or it lies entirely off screen.
func (f Frame) SelectionSpan(width float64) (left, right float64, ok bool) {
	if f.Selection == nil || !f.Mapper.HasState() {
		return 0, 0, false
	}

	startX := f.ratio(f.Selection.Start) * width
	endX := f.ratio(f.Selection.End) * width
	left = math.Max(0, math.Min(startX, endX))
	right = math.Min(width, math.Max(startX, endX))

	if right <= 0 || left >= width || right <= left {
		return 0, 0, false
	}
	return left, right, true
}

// PlayheadPosition returns the playhead x for a surface of the given width
func (f Frame) PlayheadPosition(width float64) (float64, bool) {
	if !f.Mapper.HasState() || !(f.PlaybackDuration > 0) {
		return 0, false
	}
	if f.Mapper.ViewDuration() <= 0 {
		return 0, false
	}

	r := (f.PlayheadSec - f.Mapper.Offset()) / f.Mapper.ViewDuration()
	if r < 0 || r > 1 || math.IsNaN(r) {
		return 0, false
	}
	return r * width, true
}
