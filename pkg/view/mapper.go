// ABOUTME: Coordinate mapping between pixels, samples and seconds
// ABOUTME: Pure functions over a snapshot of state, chunk length and viewport width
package view

import "math"

// Mapper converts between viewport pixels and track time for one snapshot of the view.
// The zero value behaves as "no state": every conversion returns zero.
type Mapper struct {
	state      *AudioState
	chunkLen   int
	viewportPx float64
}

// NewMapper builds a mapper. state may be nil before the first audio.state arrives.
func NewMapper(state *AudioState, chunkLen int, viewportWidth float64) Mapper {
	return Mapper{
		state:      state,
		chunkLen:   chunkLen,
		viewportPx: viewportWidth,
	}
}

// HasState reports whether source metadata is available
func (m Mapper) HasState() bool {
	return m.state != nil
}

// SampleRate returns the source sample rate, falling back to 1
func (m Mapper) SampleRate() float64 {
	if m.state == nil || m.state.Source.SampleRate <= 0 {
		return 1
	}
	return m.state.Source.SampleRate
}

// Duration returns the track duration in seconds
func (m Mapper) Duration() float64 {
	if m.state == nil || m.state.Source.DurationSec < 0 {
		return 0
	}
	return m.state.Source.DurationSec
}

// Zoom returns the current samples-per-pixel, falling back to 1
func (m Mapper) Zoom() float64 {
	if m.state == nil || m.state.View.Zoom <= 0 {
		return 1
	}
	return m.state.View.Zoom
}

// Offset returns the left edge of the view in seconds
func (m Mapper) Offset() float64 {
	if m.state == nil {
		return 0
	}
	return m.state.View.OffsetSec
}

// ViewportWidth returns the pointer-space width, at least 1
func (m Mapper) ViewportWidth() float64 {
	return math.Max(1, m.viewportPx)
}

// ViewPixelCount is the number of server columns in the view. It is the chunk
// length when a chunk is present, otherwise the viewport width.
func (m Mapper) ViewPixelCount() float64 {
	if m.chunkLen > 0 {
		return float64(m.chunkLen)
	}
	return m.ViewportWidth()
}

// ViewDuration returns the visible time span for the current zoom
func (m Mapper) ViewDuration() float64 {
	if m.state == nil {
		return 0
	}
	return m.viewDurationAt(m.Zoom())
}

func (m Mapper) viewDurationAt(zoom float64) float64 {
	return m.ViewPixelCount() * zoom / m.SampleRate()
}

// PixelToTime maps a viewport pixel to seconds
func (m Mapper) PixelToTime(px float64) float64 {
	if m.state == nil {
		return 0
	}
	column := px / m.ViewportWidth() * m.ViewPixelCount()
	return m.Offset() + column*m.Zoom()/m.SampleRate()
}

// TimeToPixel maps seconds to a viewport pixel. The result may lie outside
// [0, width] for times that are off screen.
func (m Mapper) TimeToPixel(sec float64) float64 {
	if m.state == nil {
		return 0
	}
	column := (sec - m.Offset()) * m.SampleRate() / m.Zoom()
	return column / m.ViewPixelCount() * m.ViewportWidth()
}

// ClampOffset keeps the view window inside the track at the current zoom
func (m Mapper) ClampOffset(candidate float64) float64 {
	return m.clampOffsetFor(candidate, m.ViewDuration())
}

func (m Mapper) clampOffsetFor(candidate, viewDuration float64) float64 {
	if m.state == nil {
		return 0
	}
	maxOffset := math.Max(0, m.Duration()-viewDuration)
	return math.Min(maxOffset, math.Max(0, candidate))
}

// ClampTime clamps seconds into [0, duration]
func (m Mapper) ClampTime(sec float64) float64 {
	return math.Min(math.Max(0, sec), m.Duration())
}

// ClampZoom bounds a zoom request to the allowed range
func (m Mapper) ClampZoom(candidate float64) float64 {
	return ClampZoom(candidate)
}

// ClampZoom bounds a zoom request to [MinZoom, MaxZoom]. NaN maps to MinZoom.
func ClampZoom(candidate float64) float64 {
	if math.IsNaN(candidate) {
		return MinZoom
	}
	return math.Min(MaxZoom, math.Max(MinZoom, candidate))
}

// FitZoom returns the zoom that makes the whole track fill the viewport
func (m Mapper) FitZoom() float64 {
	totalSamples := m.Duration() * m.SampleRate()
	return ClampZoom(totalSamples / m.ViewportWidth())
}

// AnchoredOffset returns the offset that keeps the time under anchorPx fixed
// after switching to newZoom. The result is clamped for the new view duration.
func (m Mapper) AnchoredOffset(anchorPx, newZoom float64) float64 {
	if m.state == nil {
		return 0
	}
	anchorTime := m.PixelToTime(anchorPx)
	ratio := anchorPx / m.ViewportWidth()
	newDuration := m.viewDurationAt(newZoom)
	return m.clampOffsetFor(anchorTime-ratio*newDuration, newDuration)
}

// PixelDeltaToSeconds converts a horizontal pointer delta into a time delta
func (m Mapper) PixelDeltaToSeconds(deltaPx float64) float64 {
	if m.state == nil {
		return 0
	}
	return deltaPx / m.ViewportWidth() * m.ViewPixelCount() * m.Zoom() / m.SampleRate()
}
