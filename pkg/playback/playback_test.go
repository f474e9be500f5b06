// ABOUTME: Tests for playback clocks, the frame scheduler and view follow logic
// ABOUTME: Uses an injected time source and a fake host to stay deterministic
package playback

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavescrub/wavescrub-go/pkg/throttle"
	"github.com/wavescrub/wavescrub-go/pkg/view"
)

type fakeNow struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeNow) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeNow) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0:00"},
		{5.9, "0:05"},
		{65, "1:05"},
		{600, "10:00"},
		{-3, "0:00"},
		{math.NaN(), "0:00"},
		{math.Inf(1), "0:00"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatTime(tt.in), "FormatTime(%v)", tt.in)
	}
}

func TestWallClockLifecycle(t *testing.T) {
	now := &fakeNow{t: time.Unix(1700000000, 0)}
	c := NewWallClock(WithNow(now.Now))

	assert.False(t, c.HasSource())
	assert.ErrorIs(t, c.Play(), ErrNoSource)
	assert.True(t, c.Paused())

	require.NoError(t, c.Load("track.mp3"))
	c.SetDuration(10)
	require.NoError(t, c.Play())
	assert.False(t, c.Paused())

	now.Advance(2500 * time.Millisecond)
	assert.InDelta(t, 2.5, c.CurrentTime(), 1e-9)
	assert.Equal(t, "0:02 / 0:10", TimeLabel(c))

	c.Pause()
	now.Advance(time.Second)
	assert.InDelta(t, 2.5, c.CurrentTime(), 1e-9)

	c.Seek(7)
	require.NoError(t, c.Play())
	now.Advance(5 * time.Second)
	assert.Equal(t, 10.0, c.CurrentTime())
	assert.True(t, c.Paused(), "reaching the end pauses")

	require.NoError(t, c.Play())
	assert.Equal(t, 0.0, c.CurrentTime(), "playing at the end restarts")

	c.Seek(-4)
	assert.Equal(t, 0.0, c.CurrentTime())
	c.Seek(40)
	assert.Equal(t, 10.0, c.CurrentTime())
}

type fakeHost struct {
	mu      sync.Mutex
	mapper  view.Mapper
	views   []throttle.ViewUpdate
	redraws int
	label   string
}

func (h *fakeHost) Mapper() view.Mapper {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mapper
}

func (h *fakeHost) RequestView(u throttle.ViewUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.views = append(h.views, u)
}

func (h *fakeHost) Redraw() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.redraws++
}

func (h *fakeHost) SetTimeLabel(label string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.label = label
}

// hostAt returns a host over a 100s track at 100Hz, zoom 1, 1000px wide,
// so the view spans 10 seconds starting at offset.
func hostAt(offset float64) *fakeHost {
	state := &view.AudioState{
		Source: view.SourceMetadata{SampleRate: 100, DurationSec: 100},
		View:   view.ViewState{Zoom: 1, OffsetSec: offset},
	}
	return &fakeHost{mapper: view.NewMapper(state, 0, 1000)}
}

func TestEnsurePlayheadVisible(t *testing.T) {
	tests := []struct {
		name     string
		offset   float64
		current  float64
		wantView bool
		want     float64
	}{
		{"inside view", 0, 5, false, 0},
		{"inside padding start", 10, 10.5, true, 5.5},
		{"near end", 0, 9.5, true, 4.5},
		{"past end", 0, 30, true, 25},
		{"clamped at track end", 80, 99, true, 90},
		{"clamped at track start", 10, 2, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := &fakeNow{t: time.Unix(0, 0)}
			clock := NewWallClock(WithNow(now.Now))
			require.NoError(t, clock.Load("x"))
			clock.SetDuration(100)
			clock.Seek(tt.current)

			host := hostAt(tt.offset)
			s := NewSync(clock, host, time.Hour)
			s.EnsurePlayheadVisible()

			if !tt.wantView {
				assert.Empty(t, host.views)
				return
			}
			require.Len(t, host.views, 1)
			assert.InDelta(t, tt.want, host.views[0].OffsetSec, 1e-9)
			assert.Equal(t, 1.0, host.views[0].Zoom)
		})
	}
}

func TestEnsurePlayheadVisibleSkipsNoOpRecentre(t *testing.T) {
	clock := NewWallClock()
	require.NoError(t, clock.Load("x"))
	clock.SetDuration(100)
	clock.Seek(99.5)

	host := hostAt(90)
	NewSync(clock, host, time.Hour).EnsurePlayheadVisible()
	assert.Empty(t, host.views, "already showing the end of the track")
}

func TestTickStopsWhenPaused(t *testing.T) {
	now := &fakeNow{t: time.Unix(0, 0)}
	clock := NewWallClock(WithNow(now.Now))
	require.NoError(t, clock.Load("x"))
	clock.SetDuration(100)

	host := hostAt(0)
	s := NewSync(clock, host, time.Hour)

	assert.False(t, s.Tick())
	assert.Equal(t, "0:00 / 1:40", host.label)
	assert.Equal(t, 0, host.redraws)

	require.NoError(t, clock.Play())
	now.Advance(3 * time.Second)
	assert.True(t, s.Tick())
	assert.Equal(t, "0:03 / 1:40", host.label)
	assert.Equal(t, 1, host.redraws)
}

func TestSchedulerStartStopIdempotent(t *testing.T) {
	ticks := make(chan struct{}, 100)
	s := NewScheduler(time.Millisecond, func() bool {
		ticks <- struct{}{}
		return true
	})

	s.Start()
	s.Start()
	assert.True(t, s.Running())

	select {
	case <-ticks:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler never ticked")
	}

	s.Stop()
	s.Stop()
	assert.False(t, s.Running())
}

func TestSchedulerStopsWhenTickDeclines(t *testing.T) {
	done := make(chan struct{})
	var once sync.Once
	s := NewScheduler(time.Millisecond, func() bool {
		once.Do(func() { close(done) })
		return false
	})

	s.Start()
	<-done
	require.Eventually(t, func() bool { return !s.Running() }, 2*time.Second, time.Millisecond)

	// It can be restarted afterwards
	s.Start()
	assert.True(t, s.Running())
	s.Stop()
}

func TestToStereo(t *testing.T) {
	mono := PCM{Samples: []int16{1, 2, 3}, SampleRate: 8000, Channels: 1}
	stereo := ToStereo(mono)
	assert.Equal(t, []int16{1, 1, 2, 2, 3, 3}, stereo.Samples)
	assert.Equal(t, 2, stereo.Channels)

	quad := PCM{Samples: []int16{1, 2, 3, 4, 5, 6, 7, 8}, SampleRate: 8000, Channels: 4}
	assert.Equal(t, []int16{1, 2, 5, 6}, ToStereo(quad).Samples)
}

func TestResample(t *testing.T) {
	in := PCM{Samples: []int16{0, 0, 100, 100, 200, 200, 300, 300}, SampleRate: 100, Channels: 2}

	same := Resample(in, 100)
	assert.Equal(t, in.Samples, same.Samples)

	up := Resample(in, 200)
	assert.Equal(t, 200, up.SampleRate)
	assert.Equal(t, []int16{0, 0, 50, 50, 100, 100, 150, 150, 200, 200, 250, 250}, up.Samples)

	down := Resample(in, 50)
	assert.Equal(t, []int16{0, 0, 200, 200}, down.Samples)
}

func TestScaleTo16(t *testing.T) {
	assert.Equal(t, int16(0x1234), scaleTo16(0x123456, 24))
	assert.Equal(t, int16(-2), scaleTo16(-1, 15))
	assert.Equal(t, int16(77), scaleTo16(77, 16))
}

func TestDecodeFileRejectsUnknownMedia(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("not audio"), 0o644))

	_, err := DecodeFile(path)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = DecodeFile(filepath.Join(t.TempDir(), "missing.mp3"))
	assert.Error(t, err)
}

func TestPCMReaderSeek(t *testing.T) {
	r := &pcmReader{data: []byte{1, 2, 3, 4, 5, 6}}

	buf := make([]byte, 4)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, int64(4), r.position())

	pos, err := r.Seek(-2, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(4), pos)

	_, err = r.Seek(-1, io.SeekStart)
	assert.Error(t, err)

	_, err = r.Seek(0, io.SeekStart)
	require.NoError(t, err)
	_, err = r.Seek(10, io.SeekCurrent)
	require.NoError(t, err)
	_, err = r.Read(buf)
	assert.Equal(t, io.EOF, err)
}

func TestPCMDuration(t *testing.T) {
	p := PCM{Samples: make([]int16, 800), SampleRate: 200, Channels: 2}
	assert.Equal(t, 400, p.Frames())
	assert.Equal(t, 2.0, p.Duration())
	assert.Equal(t, []byte{0xff, 0xff, 0x01, 0x00}, PCM{Samples: []int16{-1, 1}}.Bytes())
}
