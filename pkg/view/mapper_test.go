// ABOUTME: Tests for pixel/time coordinate mapping
// ABOUTME: Covers clamping rules, round trips, fit-to-track and absent state defaults
package view

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testState(sampleRate, duration, zoom, offset float64) *AudioState {
	return &AudioState{
		Source: SourceMetadata{SampleRate: sampleRate, DurationSec: duration},
		View:   ViewState{Zoom: zoom, OffsetSec: offset},
	}
}

func TestClampZoom(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-5, 1},
		{0, 1},
		{0.5, 1},
		{1, 1},
		{551.25, 551.25},
		{10000, 10000},
		{25000, 10000},
		{math.Inf(1), 10000},
		{math.NaN(), 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampZoom(tt.in), "ClampZoom(%v)", tt.in)
	}
}

func TestClampOffset(t *testing.T) {
	// 200px at zoom 1 and 100Hz is a 2 second window into a 10 second track
	m := NewMapper(testState(100, 10, 1, 0), 0, 200)
	require.InDelta(t, 2.0, m.ViewDuration(), 1e-12)

	tests := []struct {
		in   float64
		want float64
	}{
		{-1, 0},
		{0, 0},
		{3, 3},
		{8, 8},
		{9, 8},
		{1e9, 8},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, m.ClampOffset(tt.in), 1e-12, "ClampOffset(%v)", tt.in)
	}
}

func TestClampOffsetViewLongerThanTrack(t *testing.T) {
	// 1000 columns at zoom 100 and 100Hz covers 1000s, track is only 10s
	m := NewMapper(testState(100, 10, 100, 0), 1000, 800)
	assert.Equal(t, 0.0, m.ClampOffset(5))
	assert.Equal(t, 0.0, m.ClampOffset(-5))
}

func TestPixelTimeRoundTrip(t *testing.T) {
	m := NewMapper(testState(48000, 600, 512, 2), 1024, 800)
	start := m.Offset()
	end := start + m.ViewDuration()

	for _, sec := range []float64{start, start + 0.001, 5.5, (start + end) / 2, end} {
		px := m.TimeToPixel(sec)
		assert.InDelta(t, sec, m.PixelToTime(px), 1e-9, "round trip for %v", sec)
	}

	assert.InDelta(t, 0.0, m.TimeToPixel(start), 1e-9)
	assert.InDelta(t, 800.0, m.TimeToPixel(end), 1e-9)
}

func TestViewPixelCountFallsBackToViewport(t *testing.T) {
	st := testState(44100, 10, 100, 0)

	withChunk := NewMapper(st, 2048, 800)
	assert.Equal(t, 2048.0, withChunk.ViewPixelCount())

	withoutChunk := NewMapper(st, 0, 800)
	assert.Equal(t, 800.0, withoutChunk.ViewPixelCount())
	assert.InDelta(t, 800*100/44100.0, withoutChunk.ViewDuration(), 1e-12)

	degenerate := NewMapper(st, 0, 0)
	assert.Equal(t, 1.0, degenerate.ViewPixelCount())
}

func TestFitZoom(t *testing.T) {
	m := NewMapper(testState(44100, 10, 512, 3), 0, 800)
	assert.InDelta(t, 551.25, m.FitZoom(), 1e-9)

	short := NewMapper(testState(44100, 0.001, 512, 0), 0, 800)
	assert.Equal(t, 1.0, short.FitZoom())

	long := NewMapper(testState(44100, 3600, 512, 0), 0, 800)
	assert.Equal(t, 10000.0, long.FitZoom())
}

func TestAnchoredOffsetKeepsTimeUnderPointer(t *testing.T) {
	st := testState(48000, 600, 512, 100)
	m := NewMapper(st, 1000, 500)

	for _, px := range []float64{0, 123, 250, 499} {
		for _, factor := range []float64{0.9, 1.1} {
			newZoom := ClampZoom(m.Zoom() * factor)
			offset := m.AnchoredOffset(px, newZoom)

			after := NewMapper(testState(48000, 600, newZoom, offset), 1000, 500)
			assert.InDelta(t, m.PixelToTime(px), after.PixelToTime(px), 1e-9,
				"anchor at px=%v factor=%v", px, factor)
		}
	}
}

func TestAnchoredOffsetClampsAtTrackStart(t *testing.T) {
	m := NewMapper(testState(100, 100, 1, 0), 100, 100)
	assert.Equal(t, 0.0, m.AnchoredOffset(50, 1.1))
}

func TestPixelDeltaToSeconds(t *testing.T) {
	m := NewMapper(testState(100, 100, 2, 10), 400, 200)
	// 200 viewport px cover 400 columns, 2 samples each at 100Hz = 8 seconds
	assert.InDelta(t, 8.0, m.PixelDeltaToSeconds(200), 1e-12)
	assert.InDelta(t, m.PixelToTime(150)-m.PixelToTime(50), m.PixelDeltaToSeconds(100), 1e-12)
}

func TestMapperWithoutState(t *testing.T) {
	var m Mapper

	assert.False(t, m.HasState())
	assert.Equal(t, 0.0, m.PixelToTime(100))
	assert.Equal(t, 0.0, m.TimeToPixel(3))
	assert.Equal(t, 0.0, m.ViewDuration())
	assert.Equal(t, 0.0, m.ClampOffset(12))
	assert.Equal(t, 0.0, m.ClampTime(12))
	assert.Equal(t, 0.0, m.AnchoredOffset(10, 2))
	assert.Equal(t, 0.0, m.PixelDeltaToSeconds(10))
	assert.Equal(t, 1.0, m.SampleRate())
	assert.Equal(t, 1.0, m.Zoom())
	assert.Equal(t, 1.0, m.FitZoom())
}

func TestZeroDurationAndSampleRate(t *testing.T) {
	m := NewMapper(testState(0, 0, 0, 0), 0, 800)

	assert.Equal(t, 1.0, m.SampleRate())
	assert.Equal(t, 1.0, m.Zoom())
	assert.Equal(t, 0.0, m.ClampOffset(4))
	assert.Equal(t, 1.0, m.FitZoom())
	assert.False(t, math.IsNaN(m.PixelToTime(400)))
}
