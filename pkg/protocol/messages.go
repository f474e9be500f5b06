// ABOUTME: Waveform protocol message definitions
// ABOUTME: Versioned JSON envelope plus typed payloads for every message type
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/wavescrub/wavescrub-go/pkg/view"
)

// ProtocolVersion is the only envelope version this client speaks
const ProtocolVersion = 1

// Outbound message types
const (
	TypeLoad           = "audio.load"
	TypeViewSet        = "audio.view.set"
	TypeSelect         = "audio.select"
	TypeTransformAdd   = "audio.transform.add"
	TypeTransformClear = "audio.transform.clear"
)

// Inbound message types
const (
	TypeState         = "audio.state"
	TypeWaveformChunk = "audio.waveform.chunk"
	TypeError         = "audio.error"

	// TypeStatus tags local connection status changes. It never goes on the wire.
	TypeStatus = "connection.status"
)

// Envelope is the top-level wire structure
type Envelope struct {
	V       int             `json:"v"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope wraps payload in a current-version envelope
func NewEnvelope(msgType string, payload interface{}) (Envelope, error) {
	if payload == nil {
		payload = struct{}{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode %s payload: %w", msgType, err)
	}
	return Envelope{V: ProtocolVersion, Type: msgType, Payload: raw}, nil
}

// Load asks the server to open a track by path
type Load struct {
	Path string `json:"path"`
}

// ViewSet changes the server-side view window
type ViewSet struct {
	Zoom      float64 `json:"zoom"`
	OffsetSec float64 `json:"offset_sec"`
}

// Select commits a selection range
type Select struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// TransformAdd appends a transform to the server-side chain
type TransformAdd struct {
	Transform view.Transform `json:"transform"`
}

// TransformClear drops every transform
type TransformClear struct{}

// ErrorPayload is a server-reported error
type ErrorPayload struct {
	Message string `json:"message"`
}

// DecodeState parses an audio.state payload
func DecodeState(raw json.RawMessage) (view.AudioState, error) {
	var st view.AudioState
	if err := json.Unmarshal(raw, &st); err != nil {
		return view.AudioState{}, fmt.Errorf("failed to parse %s: %w", TypeState, err)
	}
	return st, nil
}

// DecodeChunk parses an audio.waveform.chunk payload
func DecodeChunk(raw json.RawMessage) (view.WaveformChunk, error) {
	var chunk view.WaveformChunk
	if err := json.Unmarshal(raw, &chunk); err != nil {
		return view.WaveformChunk{}, fmt.Errorf("failed to parse %s: %w", TypeWaveformChunk, err)
	}
	return chunk, nil
}

// DecodeError parses an audio.error payload
func DecodeError(raw json.RawMessage) (ErrorPayload, error) {
	var e ErrorPayload
	if err := json.Unmarshal(raw, &e); err != nil {
		return ErrorPayload{}, fmt.Errorf("failed to parse %s: %w", TypeError, err)
	}
	return e, nil
}
