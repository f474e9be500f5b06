// ABOUTME: Bubbletea model for the waveform scrubber TUI
// ABOUTME: Maps terminal mouse and key events onto session gestures and intents
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wavescrub/wavescrub-go/internal/session"
	"github.com/wavescrub/wavescrub-go/internal/version"
	"github.com/wavescrub/wavescrub-go/pkg/gesture"
	"github.com/wavescrub/wavescrub-go/pkg/view"
)

const (
	// DoubleClickWindow is the longest gap between two releases that still
	// counts as a double click
	DoubleClickWindow = 400 * time.Millisecond

	// GainStepDB is applied by the gain keys
	GainStepDB = 3.0

	// FadeSeconds is the length of the fade keys
	FadeSeconds = 1.0

	headerRows = 1
	footerRows = 3
)

type promptKind int

const (
	promptNone promptKind = iota
	promptLoad
	promptUpload
)

func (p promptKind) label() string {
	switch p {
	case promptLoad:
		return "Load path: "
	case promptUpload:
		return "Upload file: "
	default:
		return ""
	}
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5ad1ff"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#c0c0c0"))
	onlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5fd75f"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffaf5f"))
)

// Model represents the TUI state
type Model struct {
	session *session.Session
	now     func() time.Time

	// Dimensions
	width  int
	height int

	// Pointer
	pressed      bool
	lastRelease  time.Time
	lastReleaseX int

	// Prompt
	prompt promptKind
	input  string
	notice string
}

// redrawMsg is delivered when the session asks for a new frame
type redrawMsg struct{}

// actionDoneMsg reports the result of a load or upload run off the event loop
type actionDoneMsg struct {
	what string
	err  error
}

// Init subscribes to session redraws
func (m Model) Init() tea.Cmd {
	return waitForRedraw(m.session.Redraws())
}

func waitForRedraw(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return redrawMsg{}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg), nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.session.SetViewportWidth(float64(msg.Width))
	case redrawMsg:
		return m, waitForRedraw(m.session.Redraws())
	case actionDoneMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("%s: %v", msg.what, msg.err)
		} else {
			m.notice = ""
		}
	}

	return m, nil
}

func (m Model) waveRows() int {
	rows := m.height - headerRows - footerRows
	if rows < 1 {
		return 1
	}
	return rows
}

func (m Model) inWave(y int) bool {
	return y >= headerRows && y < headerRows+m.waveRows()
}

// handleMouse turns terminal mouse events into pointer gestures. Shift or
// alt held on press pans; many terminals reserve shift+drag for selection.
func (m Model) handleMouse(msg tea.MouseMsg) Model {
	px := float64(msg.X)
	inside := m.inWave(msg.Y)

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		if inside {
			m.session.Wheel(px, -1)
		}

	case msg.Button == tea.MouseButtonWheelDown:
		if inside {
			m.session.Wheel(px, 1)
		}

	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if !inside {
			return m
		}
		m.pressed = true
		m.session.PointerDown(px, msg.Shift || msg.Alt)

	case msg.Action == tea.MouseActionMotion:
		if !m.pressed {
			return m
		}
		if !inside {
			m.pressed = false
			m.session.PointerLeave()
			return m
		}
		m.session.PointerMove(px)

	case msg.Action == tea.MouseActionRelease:
		if !m.pressed {
			return m
		}
		m.pressed = false
		m.session.PointerUp(px)

		now := m.now()
		if !m.lastRelease.IsZero() && now.Sub(m.lastRelease) <= DoubleClickWindow && abs(msg.X-m.lastReleaseX) <= 1 {
			m.session.DoubleClick()
			m.lastRelease = time.Time{}
		} else {
			m.lastRelease = now
			m.lastReleaseX = msg.X
		}
	}

	return m
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.prompt != promptNone {
		return m.handlePromptKey(msg)
	}

	center := float64(m.width) / 2
	m.notice = ""

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case " ":
		m.session.Key(gesture.KeySpace, false)
	case "f":
		m.session.FitToTrack()
	case "+", "=":
		m.session.Wheel(center, -1)
	case "-", "_":
		m.session.Wheel(center, 1)
	case "esc":
		m.pressed = false
		m.session.PointerLeave()
	case "o":
		m.prompt, m.input = promptLoad, ""
	case "u":
		m.prompt, m.input = promptUpload, ""
	case "g":
		m.addTransform(view.Gain(GainStepDB))
	case "G":
		m.addTransform(view.Gain(-GainStepDB))
	case "[", "]":
		direction := "in"
		if msg.String() == "]" {
			direction = "out"
		}
		if snap := m.session.Snapshot(); snap.HasState {
			m.addTransform(view.Fade(direction, FadeSeconds, snap.State.Source.SampleRate))
		}
	case "t":
		snap := m.session.Snapshot()
		if !snap.HasState || snap.State.View.Selection == nil {
			m.notice = "Select a range to trim"
			return m, nil
		}
		m.addTransform(view.Trim(*snap.State.View.Selection, snap.State.Source.SampleRate))
	case "c":
		if err := m.session.ClearTransforms(); err != nil {
			m.notice = err.Error()
		}
	}

	return m, nil
}

func (m *Model) addTransform(t view.Transform) {
	if err := m.session.AddTransform(t); err != nil {
		m.notice = err.Error()
	}
}

// handlePromptKey edits the path prompt. Focus is inside a text field, so
// space is offered to the gesture layer as editable and typed when refused.
func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.prompt, m.input = promptNone, ""
		return m, nil
	case tea.KeyEnter:
		kind, input := m.prompt, m.input
		m.prompt, m.input = promptNone, ""
		return m, m.submit(kind, input)
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
		return m, nil
	case tea.KeySpace:
		if !m.session.Key(gesture.KeySpace, true) {
			m.input += " "
		}
		return m, nil
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	}
	return m, nil
}

func (m Model) submit(kind promptKind, input string) tea.Cmd {
	s := m.session
	switch kind {
	case promptLoad:
		return func() tea.Msg {
			return actionDoneMsg{what: "Load", err: s.Load(input)}
		}
	case promptUpload:
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			_, err := s.Upload(ctx, input)
			return actionDoneMsg{what: "Upload", err: err}
		}
	}
	return nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	snap := m.session.Snapshot()
	var b strings.Builder

	b.WriteString(m.renderHeader(snap))
	b.WriteByte('\n')
	b.WriteString(m.renderWaveform(snap))
	b.WriteByte('\n')
	b.WriteString(m.renderLabels(snap))
	b.WriteByte('\n')
	b.WriteString(faintStyle.Render(fit(m.helpText(), m.width)))
	b.WriteByte('\n')
	b.WriteString(m.renderPrompt())

	return b.String()
}

func (m Model) renderHeader(snap session.Snapshot) string {
	dot := statusStyle.Render("○")
	if snap.Connected {
		dot = onlineStyle.Render("●")
	}
	title := titleStyle.Render(version.Product)
	source := ""
	if snap.HasState && snap.State.Source.Path != "" {
		source = "  " + faintStyle.Render(snap.State.Source.Path)
	}
	return fmt.Sprintf("%s %s %s%s", title, dot, statusStyle.Render(snap.Status), source)
}

func (m Model) renderWaveform(snap session.Snapshot) string {
	rows := m.waveRows()
	if !snap.HasWaveform {
		lines := make([]string, rows)
		lines[rows/2] = lipgloss.PlaceHorizontal(m.width, lipgloss.Center, faintStyle.Render("No waveform"))
		return strings.Join(lines, "\n")
	}
	out, _ := m.session.RenderTerminal(m.width, rows)
	return out
}

func (m Model) renderLabels(snap session.Snapshot) string {
	left := snap.SelectionLabel
	right := snap.TimeLabel
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return fit(left+" "+right, m.width)
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) helpText() string {
	return "drag:select  shift/alt+drag:pan  click:seek  wheel/+/-:zoom  f:fit  space:play  " +
		"g/G:gain  t:trim  [/]:fade  c:clear  o:open  u:upload  q:quit"
}

func (m Model) renderPrompt() string {
	if m.prompt != promptNone {
		return m.prompt.label() + m.input + "█"
	}
	if m.notice != "" {
		return noticeStyle.Render(fit(m.notice, m.width))
	}
	return ""
}

// fit truncates s to width display cells
func fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
