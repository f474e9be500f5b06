// ABOUTME: Client-side store for the confirmed audio state and local selection preview
// ABOUTME: Remote state always wins and clears any in-progress preview
package view

import "sync"

// Store holds the latest server-confirmed state, the current waveform chunk
// and the optimistic selection preview shown during a drag.
type Store struct {
	mu      sync.RWMutex
	state   *AudioState
	chunk   WaveformChunk
	preview *Range
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{}
}

// ApplyState replaces the mirrored state and drops the selection preview
func (s *Store) ApplyState(state AudioState) {
	st := state.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = &st
	s.preview = nil
}

// ApplyChunk replaces the current waveform chunk
func (s *Store) ApplyChunk(chunk WaveformChunk) {
	samples := make([]float64, len(chunk.Samples))
	copy(samples, chunk.Samples)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunk = WaveformChunk{Samples: samples, StartSec: chunk.StartSec}
}

// ClearChunk drops the waveform so stale peaks are never drawn against a new load
func (s *Store) ClearChunk() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunk = WaveformChunk{}
}

// State returns a copy of the confirmed state
func (s *Store) State() (AudioState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return AudioState{}, false
	}
	return s.state.Clone(), true
}

// HasState reports whether any state has been received
func (s *Store) HasState() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state != nil
}

// Chunk returns the current waveform chunk. The samples slice must not be modified.
func (s *Store) Chunk() WaveformChunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chunk
}

// SetPreview records the selection shown during a drag
func (s *Store) SetPreview(r Range) {
	r = NewRange(r.Start, r.End)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.preview = &r
}

// ClearPreview drops the selection preview. It reports whether one existed.
func (s *Store) ClearPreview() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	had := s.preview != nil
	s.preview = nil
	return had
}

// Preview returns the in-progress selection, if any
func (s *Store) Preview() (Range, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.preview == nil {
		return Range{}, false
	}
	return *s.preview, true
}

// Selection returns the selection to display: the preview while dragging,
// otherwise the confirmed selection.
func (s *Store) Selection() (Range, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.preview != nil {
		return *s.preview, true
	}
	if s.state != nil && s.state.View.Selection != nil {
		return *s.state.View.Selection, true
	}
	return Range{}, false
}

// Mapper returns a coordinate mapper for the current snapshot
func (s *Store) Mapper(viewportWidth float64) Mapper {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st *AudioState
	if s.state != nil {
		cp := s.state.Clone()
		st = &cp
	}
	return NewMapper(st, len(s.chunk.Samples), viewportWidth)
}
