// ABOUTME: Gesture state machine package
// ABOUTME: Maps pointer, wheel and key input to view intents
// Package gesture interprets raw pointer input on the waveform surface.
//
// A Controller is always in one of three states: Idle, Selecting or Panning.
// Shift-drag pans the view through throttled view updates. A plain drag shows a
// local selection preview and commits it with a single audio.select on release.
// A press and release closer than ClickThresholdPx seeks local playback instead.
//
// Example:
//
//	c := gesture.NewController(store, effects, 800)
//	c.PointerDown(100, false)
//	c.PointerMove(240)
//	c.PointerUp(240) // effects.SendSelect is called once
package gesture
