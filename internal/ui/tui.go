// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program with mouse tracking for the waveform surface
package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wavescrub/wavescrub-go/internal/session"
)

// NewModel creates a TUI model bound to a session
func NewModel(s *session.Session) Model {
	return Model{
		session: s,
		now:     time.Now,
	}
}

// Run creates the program. Cell motion tracking reports drags while a
// button is held, which is all the gestures need.
func Run(s *session.Session) *tea.Program {
	return tea.NewProgram(NewModel(s), tea.WithAltScreen(), tea.WithMouseCellMotion())
}
