// ABOUTME: Session state coordinating the view store, gestures, throttling and playback
// ABOUTME: Reduces inbound protocol messages and turns user intents into outbound messages
package session

import (
	"context"
	"errors"
	"fmt"
	"image/draw"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wavescrub/wavescrub-go/pkg/gesture"
	"github.com/wavescrub/wavescrub-go/pkg/playback"
	"github.com/wavescrub/wavescrub-go/pkg/protocol"
	"github.com/wavescrub/wavescrub-go/pkg/render"
	"github.com/wavescrub/wavescrub-go/pkg/throttle"
	"github.com/wavescrub/wavescrub-go/pkg/upload"
	"github.com/wavescrub/wavescrub-go/pkg/view"
)

// Status strings shown to the operator
const (
	StatusConnecting   = "Connecting"
	StatusConnected    = "Connected"
	StatusDisconnected = "Disconnected"
	StatusError        = "Error"
	StatusLoading      = "Loading…"
	StatusStreaming    = "Streaming…"
	StatusReady        = "Ready"
	StatusUploading    = "Uploading…"
	StatusEnterPath    = "Enter a path"
	StatusChooseFile   = "Choose a file"
	StatusNoPlayback   = "Upload audio to play"
	StatusUploadFailed = "Upload failed"
)

var (
	// ErrNoPath is returned when loading without a path
	ErrNoPath = errors.New("no path given")
	// ErrNotConnected is returned when waiting for data that cannot arrive
	ErrNotConnected = errors.New("not connected to waveform server")
	// ErrNoUploader is returned when uploading without an upload client
	ErrNoUploader = errors.New("no upload client configured")
)

// Transport sends protocol messages. protocol.Channel implements it.
type Transport interface {
	Send(msgType string, payload interface{}) error
}

// Uploader sends local files to the server. upload.Client implements it.
type Uploader interface {
	Upload(ctx context.Context, filePath string) (upload.Result, error)
	Resolve(ref string) (string, error)
}

// MediaFetcher downloads served media for local playback. upload.Cache implements it.
type MediaFetcher interface {
	Fetch(ctx context.Context, mediaURL string) (string, error)
}

// durationSetter is implemented by clocks that learn their length from the server
type durationSetter interface {
	SetDuration(sec float64)
}

// Config holds session collaborators
type Config struct {
	// ID names the session on the wire. Empty generates a random UUID.
	ID               string
	Transport        Transport
	Clock            playback.Clock
	Uploader         Uploader
	Media            MediaFetcher
	ViewportWidth    float64
	ThrottleInterval time.Duration
	ThrottleClock    throttle.Clock
	FrameInterval    time.Duration
	// ShowTimeLabel draws the playback time onto raster renders
	ShowTimeLabel bool
}

// Snapshot is a consistent copy of everything a UI needs to draw
type Snapshot struct {
	Status         string
	SelectionLabel string
	TimeLabel      string
	Connected      bool
	Playing        bool
	HasState       bool
	HasWaveform    bool
	State          view.AudioState
	Gesture        gesture.State
}

// Session is the single coordinating object for one operator. Lock order is
// mu, then the throttler, then the transport.
type Session struct {
	ID string

	mu          sync.Mutex
	store       *view.Store
	throttler   *throttle.Throttler
	gestures    *gesture.Controller
	sync        *playback.Sync
	clock       playback.Clock
	transport   Transport
	uploader    Uploader
	media       MediaFetcher
	status      string
	connected   bool
	autoFitNext bool
	showLabel   bool

	// awaiting counts load and view requests the server has not yet answered
	// with a chunk or an error. It is bumped from the throttler, so no lock.
	awaiting atomic.Int64

	// uiMu guards fields read from the playback goroutine. It is never held
	// while acquiring mu.
	uiMu          sync.Mutex
	viewportWidth float64
	timeLabel     string

	redraw   chan struct{}
	renderer *render.Renderer
	terminal *render.TerminalRenderer
}

// New creates a session. A nil Clock uses a simulated WallClock.
func New(cfg Config) *Session {
	if cfg.Clock == nil {
		cfg.Clock = playback.NewWallClock()
	}
	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = 800
	}
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}

	s := &Session{
		ID:            cfg.ID,
		store:         view.NewStore(),
		clock:         cfg.Clock,
		transport:     cfg.Transport,
		uploader:      cfg.Uploader,
		media:         cfg.Media,
		status:        StatusConnecting,
		showLabel:     cfg.ShowTimeLabel,
		viewportWidth: cfg.ViewportWidth,
		redraw:        make(chan struct{}, 1),
		renderer:      render.NewRenderer(),
		terminal:      render.NewTerminalRenderer(),
	}
	s.timeLabel = playback.TimeLabel(cfg.Clock)

	var opts []throttle.Option
	if cfg.ThrottleClock != nil {
		opts = append(opts, throttle.WithClock(cfg.ThrottleClock))
	}
	s.throttler = throttle.New(cfg.ThrottleInterval, s.sendView, opts...)
	s.gestures = gesture.NewController(s.store, effects{s}, cfg.ViewportWidth)
	s.sync = playback.NewSync(cfg.Clock, host{s}, cfg.FrameInterval)

	log.Printf("Session %s created", s.ID)
	return s
}

// Store exposes the view store
func (s *Session) Store() *view.Store {
	return s.store
}

// Clock returns the playback clock
func (s *Session) Clock() playback.Clock {
	return s.clock
}

// Redraws signals whenever the surface should be repainted. Signals coalesce.
func (s *Session) Redraws() <-chan struct{} {
	return s.redraw
}

func (s *Session) requestRedraw() {
	select {
	case s.redraw <- struct{}{}:
	default:
	}
}

func (s *Session) sendView(u throttle.ViewUpdate) error {
	if err := s.transport.Send(protocol.TypeViewSet, protocol.ViewSet{Zoom: u.Zoom, OffsetSec: u.OffsetSec}); err != nil {
		return err
	}
	s.awaiting.Add(1)
	return nil
}

// answered marks the oldest outstanding request as answered
func (s *Session) answered() {
	for {
		n := s.awaiting.Load()
		if n <= 0 || s.awaiting.CompareAndSwap(n, n-1) {
			return
		}
	}
}

func (s *Session) sendLoadLocked(path string) {
	if err := s.transport.Send(protocol.TypeLoad, protocol.Load{Path: path}); err != nil {
		log.Printf("Failed to send %s: %v", protocol.TypeLoad, err)
		return
	}
	s.awaiting.Add(1)
}

func (s *Session) send(msgType string, payload interface{}) {
	if err := s.transport.Send(msgType, payload); err != nil {
		log.Printf("Failed to send %s: %v", msgType, err)
	}
}

// HandleState applies an authoritative audio.state
func (s *Session) HandleState(st view.AudioState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.ApplyState(st)
	if s.status == StatusLoading {
		s.status = StatusStreaming
	}
	if ds, ok := s.clock.(durationSetter); ok {
		ds.SetDuration(st.Source.DurationSec)
	}
	if s.autoFitNext {
		s.autoFitNext = false
		s.gestures.DoubleClick()
	}
	s.requestRedraw()
}

// HandleChunk applies an audio.waveform.chunk
func (s *Session) HandleChunk(chunk view.WaveformChunk) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.answered()
	s.store.ApplyChunk(chunk)
	s.status = StatusReady
	s.requestRedraw()
}

// HandleError surfaces an audio.error without touching state or chunk
func (s *Session) HandleError(e protocol.ErrorPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Printf("Server error: %s", e.Message)
	s.answered()
	s.status = e.Message
	if s.status == "" {
		s.status = StatusError
	}
	s.requestRedraw()
}

// HandleStatus records a connection state change
func (s *Session) HandleStatus(st protocol.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch st {
	case protocol.StatusConnected:
		s.connected = true
		s.status = StatusConnected
	case protocol.StatusDisconnected:
		s.connected = false
		s.status = StatusDisconnected
	}
	s.requestRedraw()
}

// Load asks the server to open path. When path also exists locally and the
// clock can load files, it is prepared for local playback.
func (s *Session) Load(path string) error {
	path = strings.TrimSpace(path)

	s.mu.Lock()
	if path == "" {
		s.status = StatusEnterPath
		s.mu.Unlock()
		s.requestRedraw()
		return ErrNoPath
	}
	s.store.ClearChunk()
	s.autoFitNext = true
	s.sendLoadLocked(path)
	s.status = StatusLoading
	s.mu.Unlock()
	s.requestRedraw()

	if loader, ok := s.clock.(playback.Loader); ok {
		if _, err := os.Stat(path); err == nil {
			if err := loader.Load(path); err != nil {
				log.Printf("Local playback unavailable for %s: %v", path, err)
			}
		}
	}
	return nil
}

// Upload sends a local file to the server, fetches the served copy for
// playback and then loads it. Network calls run without holding the lock.
func (s *Session) Upload(ctx context.Context, filePath string) (upload.Result, error) {
	filePath = strings.TrimSpace(filePath)

	s.mu.Lock()
	if filePath == "" {
		s.status = StatusChooseFile
		s.mu.Unlock()
		s.requestRedraw()
		return upload.Result{}, upload.ErrNoFile
	}
	if s.uploader == nil {
		s.mu.Unlock()
		return upload.Result{}, ErrNoUploader
	}
	s.store.ClearChunk()
	s.autoFitNext = true
	s.status = StatusUploading
	s.mu.Unlock()
	s.requestRedraw()

	res, err := s.uploader.Upload(ctx, filePath)
	if err != nil {
		s.mu.Lock()
		s.status = uploadStatus(err)
		s.mu.Unlock()
		s.requestRedraw()
		return upload.Result{}, fmt.Errorf("upload %s: %w", filePath, err)
	}

	if res.URL != "" {
		s.prepareMedia(ctx, res.URL)
	}

	s.mu.Lock()
	s.sendLoadLocked(res.Path)
	s.status = StatusLoading
	s.mu.Unlock()
	s.requestRedraw()
	return res, nil
}

func uploadStatus(err error) string {
	var upErr *upload.Error
	if errors.As(err, &upErr) && upErr.Detail != "" {
		return upErr.Detail
	}
	return StatusUploadFailed
}

// prepareMedia downloads the served media and loads it into the clock
func (s *Session) prepareMedia(ctx context.Context, mediaURL string) {
	loader, ok := s.clock.(playback.Loader)
	if !ok {
		return
	}

	local := ""
	if s.media != nil {
		abs, err := s.uploader.Resolve(mediaURL)
		if err != nil {
			log.Printf("Cannot resolve media url %s: %v", mediaURL, err)
			return
		}
		local, err = s.media.Fetch(ctx, abs)
		if err != nil {
			log.Printf("Media download failed: %v", err)
			return
		}
	}

	if err := loader.Load(local); err != nil {
		log.Printf("Local playback unavailable: %v", err)
		return
	}
	s.uiMu.Lock()
	s.timeLabel = playback.TimeLabel(s.clock)
	s.uiMu.Unlock()
}

// AddTransform appends a transform to the server-side chain
func (s *Session) AddTransform(t view.Transform) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return s.transport.Send(protocol.TypeTransformAdd, protocol.TransformAdd{Transform: t})
}

// ClearTransforms drops every server-side transform
func (s *Session) ClearTransforms() error {
	return s.transport.Send(protocol.TypeTransformClear, protocol.TransformClear{})
}

// TogglePlayback plays or pauses local playback
func (s *Session) TogglePlayback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.togglePlaybackLocked()
}

func (s *Session) togglePlaybackLocked() error {
	if !s.clock.HasSource() {
		s.status = StatusNoPlayback
		s.requestRedraw()
		return playback.ErrNoSource
	}

	if s.clock.Paused() {
		if err := s.clock.Play(); err != nil {
			log.Printf("Play failed: %v", err)
			return err
		}
		s.sync.OnPlay()
		return nil
	}

	s.clock.Pause()
	s.sync.OnPause()
	return nil
}

// Seek moves local playback to sec, clamped to the track
func (s *Session) Seek(sec float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	effects{s}.Seek(s.store.Mapper(s.ViewportWidth()).ClampTime(sec))
}

// FitToTrack zooms out to show the whole track
func (s *Session) FitToTrack() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gestures.DoubleClick()
}

// PointerDown forwards a press at px
func (s *Session) PointerDown(px float64, shift bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gestures.PointerDown(px, shift)
}

// PointerMove forwards pointer motion
func (s *Session) PointerMove(px float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gestures.PointerMove(px)
}

// PointerUp forwards a release
func (s *Session) PointerUp(px float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gestures.PointerUp(px)
}

// PointerLeave forwards the pointer leaving the surface
func (s *Session) PointerLeave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gestures.PointerLeave()
}

// Wheel forwards a wheel notch at px
func (s *Session) Wheel(px, deltaY float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gestures.Wheel(px, deltaY)
}

// DoubleClick forwards a double click
func (s *Session) DoubleClick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gestures.DoubleClick()
}

// Key forwards a key press and reports whether it was consumed
func (s *Session) Key(code string, editable bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gestures.Key(code, editable)
}

// SetViewportWidth updates the pointer-space width after a resize
func (s *Session) SetViewportWidth(width float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.uiMu.Lock()
	s.viewportWidth = width
	s.uiMu.Unlock()
	s.gestures.SetViewportWidth(width)
	s.requestRedraw()
}

// SetThrottleInterval changes the spacing of outbound view updates
func (s *Session) SetThrottleInterval(d time.Duration) {
	s.throttler.SetInterval(d)
}

// ViewportWidth returns the pointer-space width
func (s *Session) ViewportWidth() float64 {
	s.uiMu.Lock()
	defer s.uiMu.Unlock()
	return s.viewportWidth
}

// SelectionLabel describes the effective selection
func (s *Session) SelectionLabel() string {
	sel, ok := s.store.Selection()
	if !ok {
		return "No selection"
	}
	return fmt.Sprintf("Selection: %.3fs → %.3fs", sel.Start, sel.End)
}

// TimeLabel returns the last playback readout
func (s *Session) TimeLabel() string {
	s.uiMu.Lock()
	defer s.uiMu.Unlock()
	return s.timeLabel
}

// Snapshot copies the session for display
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, hasState := s.store.State()
	return Snapshot{
		Status:         s.status,
		SelectionLabel: s.SelectionLabel(),
		TimeLabel:      s.TimeLabel(),
		Connected:      s.connected,
		Playing:        !s.clock.Paused(),
		HasState:       hasState,
		HasWaveform:    s.store.Chunk().Len() > 0,
		State:          st,
		Gesture:        s.gestures.State(),
	}
}

func (s *Session) frame() render.Frame {
	var sel *view.Range
	if r, ok := s.store.Selection(); ok {
		sel = &r
	}
	f := render.Frame{
		Samples:          s.store.Chunk().Samples,
		Mapper:           s.store.Mapper(s.ViewportWidth()),
		Selection:        sel,
		PlayheadSec:      s.clock.CurrentTime(),
		PlaybackDuration: s.clock.Duration(),
	}
	if s.showLabel {
		f.Label = s.TimeLabel()
	}
	return f
}

// Render paints the waveform onto dst
func (s *Session) Render(dst draw.Image) render.Result {
	return s.renderer.Render(dst, s.frame())
}

// RenderTerminal paints the waveform as cols x rows of text
func (s *Session) RenderTerminal(cols, rows int) (string, render.Result) {
	return s.terminal.Render(s.frame(), cols, rows)
}

// Run applies inbound messages from ch in arrival order until ctx ends
func (s *Session) Run(ctx context.Context, ch *protocol.Channel) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch.Inbound:
			s.HandleInbound(msg)
		}
	}
}

// HandleInbound dispatches one inbound message to its reducer
func (s *Session) HandleInbound(msg protocol.Inbound) {
	switch msg.Type {
	case protocol.TypeState:
		s.HandleState(msg.State)
	case protocol.TypeWaveformChunk:
		s.HandleChunk(msg.Chunk)
	case protocol.TypeError:
		s.HandleError(msg.Err)
	case protocol.TypeStatus:
		s.HandleStatus(msg.Status)
	default:
		log.Printf("Ignoring inbound message of type %s", msg.Type)
	}
}

// WaitForWaveform blocks until the chunk on screen answers the latest view or
// ctx ends. It consumes redraw signals, so only one waiter should use it.
func (s *Session) WaitForWaveform(ctx context.Context) error {
	for {
		if s.waveformSettled() {
			return nil
		}
		select {
		case <-ctx.Done():
			s.mu.Lock()
			connected := s.connected
			s.mu.Unlock()
			if !connected {
				return ErrNotConnected
			}
			return fmt.Errorf("waiting for waveform: %w", ctx.Err())
		case <-s.redraw:
		}
	}
}

// waveformSettled reports whether a chunk is present, no auto-fit is due and
// every load and view request has been answered
func (s *Session) waveformSettled() bool {
	s.mu.Lock()
	fitDue := s.autoFitNext
	s.mu.Unlock()
	if fitDue || s.store.Chunk().Len() == 0 || s.awaiting.Load() > 0 {
		return false
	}
	_, pending := s.throttler.Pending()
	return !pending
}

// Close stops background timers
func (s *Session) Close() {
	s.throttler.Stop()
	s.sync.Stop()
	log.Printf("Session %s closed", s.ID)
}
