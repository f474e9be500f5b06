// ABOUTME: View update throttling package
// ABOUTME: Rate-limits audio.view.set messages with last-value-wins coalescing
// Package throttle bounds the rate of outbound view-change messages.
//
// View state is idempotent and last-value-wins, so intermediate requests inside a
// throttle window are dropped rather than queued. At most one update is pending at
// any time and at most one trailing timer is armed.
//
// Example:
//
//	t := throttle.New(throttle.DefaultInterval, func(u throttle.ViewUpdate) error {
//	    return channel.Send(protocol.TypeViewSet, protocol.ViewSet{Zoom: u.Zoom, OffsetSec: u.OffsetSec})
//	})
//	t.Request(throttle.ViewUpdate{Zoom: 512, OffsetSec: 3.5})
package throttle
