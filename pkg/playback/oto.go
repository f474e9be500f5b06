// ABOUTME: Audio-device playback clock built on oto
// ABOUTME: Plays decoded PCM and reports position from bytes consumed by the device
package playback

import (
	"fmt"
	"io"
	"log"
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"
)

const (
	// DefaultOutputRate is the device rate used when none is configured
	DefaultOutputRate = 44100

	outputChannels = 2
	bytesPerSample = 2
)

// oto only allows one context per process, so every OtoClock shares it
var (
	otoMu   sync.Mutex
	otoCtx  *oto.Context
	otoRate int
)

func sharedContext(rate int) (*oto.Context, int, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if rate != otoRate {
			log.Printf("Warning: audio output already running at %dHz, ignoring requested %dHz", otoRate, rate)
		}
		return otoCtx, otoRate, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: outputChannels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	otoCtx = ctx
	otoRate = rate
	log.Printf("Audio output initialized: %dHz, %d channels", rate, outputChannels)
	return otoCtx, otoRate, nil
}

// pcmReader is a seekable byte source that remembers how far the player has read
type pcmReader struct {
	mu   sync.Mutex
	data []byte
	pos  int64
}

func (r *pcmReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pos >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += int64(n)
	return n, nil
}

func (r *pcmReader) Seek(offset int64, whence int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = r.pos + offset
	case io.SeekEnd:
		next = int64(len(r.data)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("negative seek position %d", next)
	}
	r.pos = next
	return next, nil
}

func (r *pcmReader) position() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos
}

// OtoClock plays local media through the system audio device
type OtoClock struct {
	mu         sync.Mutex
	outputRate int
	player     *oto.Player
	reader     *pcmReader
	rate       int
	duration   float64
}

// NewOtoClock creates a clock that opens the audio device on first load
func NewOtoClock(outputRate int) *OtoClock {
	if outputRate <= 0 {
		outputRate = DefaultOutputRate
	}
	return &OtoClock{outputRate: outputRate}
}

// Load decodes path and prepares it for playback, replacing any previous media
func (c *OtoClock) Load(path string) error {
	pcm, err := DecodeFile(path)
	if err != nil {
		return err
	}

	ctx, rate, err := sharedContext(c.outputRate)
	if err != nil {
		return err
	}

	pcm = Resample(ToStereo(pcm), rate)
	reader := &pcmReader{data: pcm.Bytes()}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.player != nil {
		if err := c.player.Close(); err != nil {
			log.Printf("Failed to close previous player: %v", err)
		}
	}
	c.player = ctx.NewPlayer(reader)
	c.reader = reader
	c.rate = rate
	c.duration = pcm.Duration()

	log.Printf("Loaded %s for playback: %.2fs", path, c.duration)
	return nil
}

func (c *OtoClock) bytesPerSecond() float64 {
	return float64(c.rate * outputChannels * bytesPerSample)
}

// CurrentTime implements Clock
func (c *OtoClock) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.player == nil || c.rate == 0 {
		return 0
	}
	played := c.reader.position() - int64(c.player.BufferedSize())
	if played < 0 {
		played = 0
	}
	return math.Min(c.duration, float64(played)/c.bytesPerSecond())
}

// Duration implements Clock
func (c *OtoClock) Duration() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

// Paused implements Clock. The player stops on its own at end of media.
func (c *OtoClock) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.player == nil || !c.player.IsPlaying()
}

// HasSource implements Clock
func (c *OtoClock) HasSource() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.player != nil
}

// Play implements Clock. Playing at the end restarts from the beginning.
func (c *OtoClock) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.player == nil {
		return ErrNoSource
	}
	if c.reader.position() >= int64(len(c.reader.data)) && c.player.BufferedSize() == 0 {
		if _, err := c.player.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("failed to rewind: %w", err)
		}
	}
	c.player.Play()
	return nil
}

// Pause implements Clock
func (c *OtoClock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.player != nil {
		c.player.Pause()
	}
}

// Seek implements Clock
func (c *OtoClock) Seek(sec float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.player == nil {
		return
	}
	sec = math.Max(0, math.Min(sec, c.duration))
	frame := int64(sec * float64(c.rate))
	offset := frame * outputChannels * bytesPerSample
	if _, err := c.player.Seek(offset, io.SeekStart); err != nil {
		log.Printf("Seek failed: %v", err)
	}
}

// Close releases the player. The shared device context stays open.
func (c *OtoClock) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.player == nil {
		return nil
	}
	err := c.player.Close()
	c.player = nil
	c.reader = nil
	return err
}
