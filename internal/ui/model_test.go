// ABOUTME: Tests for the TUI model
// ABOUTME: Feeds mouse and key messages and checks the protocol traffic they cause
package ui

import (
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wavescrub/wavescrub-go/internal/session"
	"github.com/wavescrub/wavescrub-go/pkg/protocol"
	"github.com/wavescrub/wavescrub-go/pkg/throttle"
	"github.com/wavescrub/wavescrub-go/pkg/view"
)

type recordingTransport struct {
	mu    sync.Mutex
	types []string
	last  map[string]interface{}
}

func (r *recordingTransport) Send(msgType string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, msgType)
	if r.last == nil {
		r.last = make(map[string]interface{})
	}
	r.last[msgType] = payload
	return nil
}

func (r *recordingTransport) count(msgType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.types {
		if t == msgType {
			n++
		}
	}
	return n
}

// hourClock pushes every throttled view update out immediately
type hourClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *hourClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Hour)
	return c.now
}

type idleTimer struct{}

func (idleTimer) Stop() bool { return false }

func (c *hourClock) AfterFunc(time.Duration, func()) throttle.Timer { return idleTimer{} }

func newTestModel(t *testing.T) (Model, *session.Session, *recordingTransport) {
	t.Helper()
	tr := &recordingTransport{}
	s := session.New(session.Config{
		Transport:     tr,
		ViewportWidth: 80,
		ThrottleClock: &hourClock{},
	})
	t.Cleanup(s.Close)

	m := NewModel(s)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(Model), s, tr
}

func loadTrack(s *session.Session) {
	s.HandleState(view.AudioState{
		Source: view.SourceMetadata{SampleRate: 100, DurationSec: 10},
		View:   view.ViewState{Zoom: 1},
	})
	s.HandleChunk(view.WaveformChunk{Samples: make([]float64, 80)})
}

func mouse(m Model, x, y int, action tea.MouseAction, button tea.MouseButton) Model {
	updated, _ := m.Update(tea.MouseMsg{X: x, Y: y, Action: action, Button: button})
	return updated.(Model)
}

func TestNewModel(t *testing.T) {
	m, s, _ := newTestModel(t)

	if m.width != 80 || m.height != 24 {
		t.Errorf("expected 80x24, got %dx%d", m.width, m.height)
	}
	if s.ViewportWidth() != 80 {
		t.Errorf("expected viewport width 80, got %v", s.ViewportWidth())
	}
	if m.prompt != promptNone {
		t.Error("expected no prompt initially")
	}
	if m.waveRows() != 20 {
		t.Errorf("expected 20 waveform rows, got %d", m.waveRows())
	}
}

func TestViewBeforeSize(t *testing.T) {
	tr := &recordingTransport{}
	s := session.New(session.Config{Transport: tr})
	defer s.Close()

	if got := NewModel(s).View(); got != "Loading..." {
		t.Errorf("expected Loading..., got %q", got)
	}
}

func TestViewShowsEmptyState(t *testing.T) {
	m, _, _ := newTestModel(t)

	out := m.View()
	if !strings.Contains(out, "No waveform") {
		t.Error("expected empty waveform notice")
	}
	if !strings.Contains(out, "No selection") {
		t.Error("expected selection label")
	}
}

func TestGesturesWithoutStateSendNothing(t *testing.T) {
	m, _, tr := newTestModel(t)

	m = mouse(m, 10, 5, tea.MouseActionPress, tea.MouseButtonLeft)
	m = mouse(m, 40, 5, tea.MouseActionMotion, tea.MouseButtonLeft)
	m = mouse(m, 40, 5, tea.MouseActionRelease, tea.MouseButtonNone)
	mouse(m, 40, 5, tea.MouseActionPress, tea.MouseButtonWheelUp)

	if len(tr.types) != 0 {
		t.Errorf("expected no messages, got %v", tr.types)
	}
}

func TestDragSendsSelect(t *testing.T) {
	m, s, tr := newTestModel(t)
	loadTrack(s)

	m = mouse(m, 10, 5, tea.MouseActionPress, tea.MouseButtonLeft)
	m = mouse(m, 30, 5, tea.MouseActionMotion, tea.MouseButtonLeft)

	if _, ok := s.Store().Preview(); !ok {
		t.Error("expected a local selection preview while dragging")
	}
	if tr.count(protocol.TypeSelect) != 0 {
		t.Error("select must not be sent before release")
	}

	mouse(m, 30, 5, tea.MouseActionRelease, tea.MouseButtonNone)

	if tr.count(protocol.TypeSelect) != 1 {
		t.Fatalf("expected one select, got %d", tr.count(protocol.TypeSelect))
	}
	sel := tr.last[protocol.TypeSelect].(protocol.Select)
	if sel.Start != 0.1 || sel.End != 0.3 {
		t.Errorf("expected selection 0.1..0.3, got %v..%v", sel.Start, sel.End)
	}
}

func TestLeavingSurfaceAbandonsDrag(t *testing.T) {
	m, s, tr := newTestModel(t)
	loadTrack(s)

	m = mouse(m, 10, 5, tea.MouseActionPress, tea.MouseButtonLeft)
	m = mouse(m, 30, 23, tea.MouseActionMotion, tea.MouseButtonLeft)
	mouse(m, 30, 5, tea.MouseActionRelease, tea.MouseButtonNone)

	if tr.count(protocol.TypeSelect) != 0 {
		t.Error("expected no select after leaving the surface")
	}
	if _, ok := s.Store().Preview(); ok {
		t.Error("expected preview cleared")
	}
}

func TestWheelRequestsView(t *testing.T) {
	m, s, tr := newTestModel(t)
	loadTrack(s)

	mouse(m, 40, 5, tea.MouseActionPress, tea.MouseButtonWheelDown)

	if tr.count(protocol.TypeViewSet) != 1 {
		t.Errorf("expected one view update, got %d", tr.count(protocol.TypeViewSet))
	}
}

func TestDoubleClickFits(t *testing.T) {
	m, s, tr := newTestModel(t)
	loadTrack(s)

	base := time.Unix(1700000000, 0)
	now := base
	m.now = func() time.Time { return now }

	m = mouse(m, 20, 5, tea.MouseActionPress, tea.MouseButtonLeft)
	m = mouse(m, 20, 5, tea.MouseActionRelease, tea.MouseButtonNone)
	now = base.Add(200 * time.Millisecond)
	m = mouse(m, 20, 5, tea.MouseActionPress, tea.MouseButtonLeft)
	mouse(m, 20, 5, tea.MouseActionRelease, tea.MouseButtonNone)

	if tr.count(protocol.TypeViewSet) != 1 {
		t.Fatalf("expected one fit request, got %d", tr.count(protocol.TypeViewSet))
	}
	vs := tr.last[protocol.TypeViewSet].(protocol.ViewSet)
	// 1000 samples over 80 columns
	if vs.Zoom != 12.5 || vs.OffsetSec != 0 {
		t.Errorf("expected fit zoom 12.5 at 0, got %v at %v", vs.Zoom, vs.OffsetSec)
	}
}

func TestSlowClicksDoNotFit(t *testing.T) {
	m, s, tr := newTestModel(t)
	loadTrack(s)

	base := time.Unix(1700000000, 0)
	now := base
	m.now = func() time.Time { return now }

	m = mouse(m, 20, 5, tea.MouseActionPress, tea.MouseButtonLeft)
	m = mouse(m, 20, 5, tea.MouseActionRelease, tea.MouseButtonNone)
	now = base.Add(time.Second)
	m = mouse(m, 20, 5, tea.MouseActionPress, tea.MouseButtonLeft)
	mouse(m, 20, 5, tea.MouseActionRelease, tea.MouseButtonNone)

	if tr.count(protocol.TypeViewSet) != 0 {
		t.Errorf("expected no fit request, got %d", tr.count(protocol.TypeViewSet))
	}
}

func TestLoadPrompt(t *testing.T) {
	m, _, tr := newTestModel(t)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("o")})
	m = updated.(Model)
	if m.prompt != promptLoad {
		t.Fatal("expected load prompt")
	}

	for _, msg := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("my")},
		{Type: tea.KeySpace, Runes: []rune(" ")},
		{Type: tea.KeyRunes, Runes: []rune("song.wavx")},
		{Type: tea.KeyBackspace},
	} {
		updated, _ = m.Update(msg)
		m = updated.(Model)
	}
	if m.input != "my song.wav" {
		t.Fatalf("expected input %q, got %q", "my song.wav", m.input)
	}

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	if m.prompt != promptNone {
		t.Error("expected prompt closed after enter")
	}
	if cmd == nil {
		t.Fatal("expected a load command")
	}

	done, ok := cmd().(actionDoneMsg)
	if !ok || done.err != nil {
		t.Fatalf("expected successful load, got %#v", done)
	}
	if tr.count(protocol.TypeLoad) != 1 {
		t.Errorf("expected one load, got %d", tr.count(protocol.TypeLoad))
	}
	if got := tr.last[protocol.TypeLoad].(protocol.Load).Path; got != "my song.wav" {
		t.Errorf("expected path %q, got %q", "my song.wav", got)
	}
}

func TestEscapeCancelsPrompt(t *testing.T) {
	m, _, tr := newTestModel(t)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("u")})
	updated, _ = updated.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x.flac")})
	updated, cmd := updated.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)

	if m.prompt != promptNone || m.input != "" {
		t.Error("expected prompt cleared")
	}
	if cmd != nil {
		t.Error("expected no command on escape")
	}
	if len(tr.types) != 0 {
		t.Errorf("expected no messages, got %v", tr.types)
	}
}

func TestTransformKeys(t *testing.T) {
	m, s, tr := newTestModel(t)
	loadTrack(s)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("t")})
	m = updated.(Model)
	if m.notice == "" {
		t.Error("expected a notice when trimming without a selection")
	}

	for _, key := range []string{"g", "G", "[", "]", "c"} {
		updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
		m = updated.(Model)
	}

	if got := tr.count(protocol.TypeTransformAdd); got != 4 {
		t.Errorf("expected 4 transforms, got %d", got)
	}
	if got := tr.count(protocol.TypeTransformClear); got != 1 {
		t.Errorf("expected 1 clear, got %d", got)
	}
}

func TestQuitKey(t *testing.T) {
	m, _, _ := newTestModel(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestFitFunction(t *testing.T) {
	tests := []struct {
		input    string
		width    int
		expected string
	}{
		{"short", 10, "short"},
		{"this is longer than allowed", 10, "this is..."},
		{"abcde", 4, "a..."},
		{"abcde", 3, "abc"},
		{"abc", 0, ""},
	}

	for _, tt := range tests {
		if got := fit(tt.input, tt.width); got != tt.expected {
			t.Errorf("fit(%q, %d) = %q, expected %q", tt.input, tt.width, got, tt.expected)
		}
	}
}
