// ABOUTME: Decodes local MP3 and FLAC files into interleaved 16-bit PCM
// ABOUTME: Feeds the audio-device clock; peaks for display still come from the server
package playback

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"
)

// ErrUnsupportedFormat is returned for media the local decoders cannot read
var ErrUnsupportedFormat = errors.New("unsupported media format")

// PCM is decoded interleaved signed 16-bit audio
type PCM struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames
func (p PCM) Frames() int {
	if p.Channels <= 0 {
		return 0
	}
	return len(p.Samples) / p.Channels
}

// Duration returns the length in seconds
func (p PCM) Duration() float64 {
	if p.SampleRate <= 0 {
		return 0
	}
	return float64(p.Frames()) / float64(p.SampleRate)
}

// DecodeFile reads a media file and decodes it by extension, falling back
// to sniffing the header
func DecodeFile(path string) (PCM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PCM{}, fmt.Errorf("failed to read media: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return DecodeMP3(bytes.NewReader(data))
	case ".flac":
		return DecodeFLAC(bytes.NewReader(data))
	}

	if bytes.HasPrefix(data, []byte("fLaC")) {
		return DecodeFLAC(bytes.NewReader(data))
	}
	if bytes.HasPrefix(data, []byte("ID3")) || (len(data) > 1 && data[0] == 0xff && data[1]&0xe0 == 0xe0) {
		return DecodeMP3(bytes.NewReader(data))
	}
	return PCM{}, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupportedFormat)
}

// DecodeMP3 decodes a whole MP3 stream. go-mp3 always produces stereo.
func DecodeMP3(r io.Reader) (PCM, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return PCM{}, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return PCM{}, fmt.Errorf("mp3 decode error: %w", err)
	}

	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}

	return PCM{Samples: samples, SampleRate: dec.SampleRate(), Channels: 2}, nil
}

// DecodeFLAC decodes a whole FLAC stream, scaling any bit depth to 16 bits
func DecodeFLAC(r io.Reader) (PCM, error) {
	stream, err := flac.New(r)
	if err != nil {
		return PCM{}, fmt.Errorf("failed to create flac decoder: %w", err)
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	bits := int(stream.Info.BitsPerSample)
	if channels == 0 {
		return PCM{}, fmt.Errorf("flac stream has no channels: %w", ErrUnsupportedFormat)
	}

	samples := make([]int16, 0, int(stream.Info.NSamples)*channels)
	for {
		f, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return PCM{}, fmt.Errorf("flac decode error: %w", err)
		}

		n := len(f.Subframes[0].Samples)
		for i := 0; i < n; i++ {
			for ch := 0; ch < channels; ch++ {
				samples = append(samples, scaleTo16(f.Subframes[ch].Samples[i], bits))
			}
		}
	}

	return PCM{Samples: samples, SampleRate: int(stream.Info.SampleRate), Channels: channels}, nil
}

func scaleTo16(sample int32, bits int) int16 {
	switch {
	case bits > 16:
		return int16(sample >> uint(bits-16))
	case bits < 16 && bits > 0:
		return int16(sample << uint(16-bits))
	default:
		return int16(sample)
	}
}

// ToStereo maps any channel layout onto two channels. Mono is duplicated,
// extra channels beyond the first two are dropped.
func ToStereo(p PCM) PCM {
	if p.Channels == 2 {
		return p
	}

	frames := p.Frames()
	out := make([]int16, frames*2)
	for i := 0; i < frames; i++ {
		left := p.Samples[i*p.Channels]
		right := left
		if p.Channels > 1 {
			right = p.Samples[i*p.Channels+1]
		}
		out[i*2] = left
		out[i*2+1] = right
	}
	return PCM{Samples: out, SampleRate: p.SampleRate, Channels: 2}
}

// Resample converts p to the target rate by linear interpolation
func Resample(p PCM, rate int) PCM {
	if rate <= 0 || p.SampleRate == rate || p.Frames() < 2 {
		return p
	}

	ch := p.Channels
	inFrames := p.Frames()
	ratio := float64(p.SampleRate) / float64(rate)
	outFrames := int(float64(inFrames) / ratio)
	out := make([]int16, 0, outFrames*ch)

	for pos := 0.0; ; pos += ratio {
		idx := int(pos)
		if idx >= inFrames-1 {
			break
		}
		frac := pos - float64(idx)
		for c := 0; c < ch; c++ {
			a := float64(p.Samples[idx*ch+c])
			b := float64(p.Samples[(idx+1)*ch+c])
			out = append(out, int16(a*(1-frac)+b*frac))
		}
	}

	return PCM{Samples: out, SampleRate: rate, Channels: ch}
}

// Bytes encodes the samples as little-endian 16-bit PCM
func (p PCM) Bytes() []byte {
	out := make([]byte, len(p.Samples)*2)
	for i, s := range p.Samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
