// ABOUTME: View model package for waveform scrubbing
// ABOUTME: Defines audio state, coordinate mapping and the client-side state store
// Package view holds the client's mirror of the server-authoritative audio state.
//
// It provides:
//   - AudioState: source metadata, view window and active transforms
//   - Mapper: pure conversions between pixels, samples and seconds
//   - Store: the latest confirmed state plus the local selection preview
//
// A Mapper is total. When no state has been received yet every conversion
// returns zero, so callers only need to check for state presence once.
//
// Example:
//
//	store := view.NewStore()
//	store.ApplyState(state)
//	m := store.Mapper(800)
//	t := m.PixelToTime(400)
package view
