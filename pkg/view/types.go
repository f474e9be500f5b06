// ABOUTME: Audio state type definitions mirrored from the server
// ABOUTME: Source metadata, view window, selection range, transforms and waveform chunks
package view

import (
	"encoding/json"
	"fmt"
	"math"
)

const (
	// MinZoom and MaxZoom bound the samples-per-pixel zoom level
	MinZoom = 1.0
	MaxZoom = 10000.0
)

// SourceMetadata describes the loaded track. It is replaced wholesale on every state.
type SourceMetadata struct {
	ID          string  `json:"id,omitempty"`
	Path        string  `json:"path,omitempty"`
	SampleRate  float64 `json:"sample_rate"`
	Channels    int     `json:"channels,omitempty"`
	DurationSec float64 `json:"duration_sec"`
}

// Range is a time span in seconds. On the wire it is a two element array.
type Range struct {
	Start float64
	End   float64
}

// NewRange returns a range with Start <= End regardless of argument order
func NewRange(a, b float64) Range {
	if a > b {
		a, b = b, a
	}
	return Range{Start: a, End: b}
}

// Duration returns the length of the range in seconds
func (r Range) Duration() float64 {
	return r.End - r.Start
}

// MarshalJSON encodes the range as [start, end]
func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{r.Start, r.End})
}

// UnmarshalJSON decodes a [start, end] pair, ordering it if reversed
func (r *Range) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("selection must be a [start, end] pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("selection must have 2 elements, got %d", len(pair))
	}
	*r = NewRange(pair[0], pair[1])
	return nil
}

// ViewState is the visible window into the track
type ViewState struct {
	Zoom      float64 `json:"zoom"`       // samples per pixel
	OffsetSec float64 `json:"offset_sec"` // left edge of the window
	Selection *Range  `json:"selection"`  // nil when nothing is selected
}

// Transform is a server-side waveform transform (gain, trim or fade)
type Transform struct {
	Type   string                 `json:"type"`
	Params map[string]interface{} `json:"params"`
}

// Transform types understood by the server
const (
	TransformGain = "gain"
	TransformTrim = "trim"
	TransformFade = "fade"
)

// Validate checks the transform type
func (t Transform) Validate() error {
	switch t.Type {
	case TransformGain, TransformTrim, TransformFade:
		return nil
	default:
		return fmt.Errorf("unknown transform type %q", t.Type)
	}
}

// Gain builds a gain transform of db decibels
func Gain(db float64) Transform {
	return Transform{Type: TransformGain, Params: map[string]interface{}{"db": db}}
}

// Trim builds a transform keeping the samples inside r
func Trim(r Range, sampleRate float64) Transform {
	return Transform{Type: TransformTrim, Params: map[string]interface{}{
		"start": int(math.Floor(r.Start * sampleRate)),
		"end":   int(math.Ceil(r.End * sampleRate)),
	}}
}

// Fade builds a fade over the first durationSec of the track. direction is
// "in" or "out".
func Fade(direction string, durationSec, sampleRate float64) Transform {
	return Transform{Type: TransformFade, Params: map[string]interface{}{
		"direction": direction,
		"duration":  int(math.Round(durationSec * sampleRate)),
	}}
}

// AudioState is the server-authoritative state for one loaded track
type AudioState struct {
	Source     SourceMetadata `json:"source"`
	View       ViewState      `json:"view"`
	Transforms []Transform    `json:"transforms,omitempty"`
}

// Clone returns a deep copy so callers can hold it without sharing the selection pointer
func (s AudioState) Clone() AudioState {
	out := s
	if s.View.Selection != nil {
		sel := *s.View.Selection
		out.View.Selection = &sel
	}
	if s.Transforms != nil {
		out.Transforms = make([]Transform, len(s.Transforms))
		copy(out.Transforms, s.Transforms)
	}
	return out
}

// WaveformChunk holds one peak per rendered column for the current view
type WaveformChunk struct {
	Samples  []float64 `json:"samples"`
	StartSec float64   `json:"start,omitempty"`
}

// Len returns the number of peaks in the chunk
func (c WaveformChunk) Len() int {
	return len(c.Samples)
}
