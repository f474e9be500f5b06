// ABOUTME: Time label formatting for the playback readout
// ABOUTME: Renders seconds as m:ss and pairs current/total positions
package playback

import (
	"fmt"
	"math"
)

// FormatTime renders seconds as m:ss. Non-finite input renders as 0:00.
func FormatTime(sec float64) string {
	if math.IsNaN(sec) || math.IsInf(sec, 0) {
		return "0:00"
	}
	if sec < 0 {
		sec = 0
	}
	minutes := int(math.Floor(sec / 60))
	remainder := int(math.Floor(math.Mod(sec, 60)))
	return fmt.Sprintf("%d:%02d", minutes, remainder)
}

// TimeLabel renders "current / total" for a clock
func TimeLabel(c Clock) string {
	return FormatTime(c.CurrentTime()) + " / " + FormatTime(c.Duration())
}
