// ABOUTME: Local playback package
// ABOUTME: Playback clocks, the frame scheduler and view follow logic
// Package playback keeps local audio playback and the waveform view in step.
//
// A Clock is the local position source. WallClock simulates one from wall
// time; OtoClock decodes MP3 or FLAC files and plays them on the audio device.
// Sync runs a frame loop while the clock plays, refreshing the time label and
// recentring the view through the throttler whenever the playhead approaches
// an edge.
//
// Example:
//
//	clock := playback.NewWallClock()
//	s := playback.NewSync(clock, host, playback.DefaultFrameInterval)
//	if err := clock.Play(); err == nil {
//	    s.OnPlay()
//	}
package playback
