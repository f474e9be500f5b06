// ABOUTME: WebSocket channel for the waveform protocol
// ABOUTME: Queues outbound messages while disconnected, reconnects, and routes inbound messages
package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wavescrub/wavescrub-go/pkg/view"
)

const (
	// DefaultPath is the websocket endpoint on the waveform server
	DefaultPath = "/ws/audio"

	DefaultMinBackoff = 250 * time.Millisecond
	DefaultMaxBackoff = 5 * time.Second
)

// ErrClosed is returned when sending on a closed channel
var ErrClosed = errors.New("channel closed")

// Status is a connection state change reported on the Inbound channel
type Status int

const (
	StatusConnecting Status = iota
	StatusConnected
	StatusDisconnected
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "Connecting"
	case StatusConnected:
		return "Connected"
	default:
		return "Disconnected"
	}
}

// Config holds channel configuration
type Config struct {
	ServerAddr string
	Path       string
	SessionID  string
	MinBackoff time.Duration
	MaxBackoff time.Duration
	Dialer     *websocket.Dialer
	// Header is sent with every handshake
	Header http.Header
}

// Inbound is one message for the consumer. Type selects which field is set.
type Inbound struct {
	Type   string
	State  view.AudioState
	Chunk  view.WaveformChunk
	Err    ErrorPayload
	Status Status
}

// Channel is a self-reconnecting websocket connection to the waveform server.
// Messages sent while disconnected are queued and flushed in order on connect.
type Channel struct {
	config Config
	mu     sync.Mutex
	conn   *websocket.Conn

	// Inbound carries server messages and status changes in arrival order
	Inbound chan Inbound

	queue     []Envelope
	connected bool
	closed    bool
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	startOnce sync.Once
}

// NewChannel creates a channel. Call Start to begin connecting.
func NewChannel(config Config) *Channel {
	if config.Path == "" {
		config.Path = DefaultPath
	}
	if config.MinBackoff <= 0 {
		config.MinBackoff = DefaultMinBackoff
	}
	if config.MaxBackoff < config.MinBackoff {
		config.MaxBackoff = DefaultMaxBackoff
	}
	if config.Dialer == nil {
		config.Dialer = websocket.DefaultDialer
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Channel{
		config:  config,
		Inbound: make(chan Inbound, 64),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// URL returns the websocket URL the channel dials
func (c *Channel) URL() string {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: c.config.Path}
	if c.config.SessionID != "" {
		u.RawQuery = url.Values{"session": {c.config.SessionID}}.Encode()
	}
	return u.String()
}

// Start launches the connect/read loop
func (c *Channel) Start() {
	c.startOnce.Do(func() {
		go c.run()
	})
}

// run connects, reads until the connection drops, and reconnects with backoff
func (c *Channel) run() {
	defer close(c.done)

	backoff := c.config.MinBackoff
	for {
		if c.ctx.Err() != nil {
			return
		}

		c.emitStatus(StatusConnecting)
		conn, err := c.dial()
		if err != nil {
			log.Printf("Connect to %s failed: %v (retrying in %v)", c.config.ServerAddr, err, backoff)
			c.emitStatus(StatusDisconnected)
			if !c.sleep(backoff) {
				return
			}
			backoff *= 2
			if backoff > c.config.MaxBackoff {
				backoff = c.config.MaxBackoff
			}
			continue
		}
		backoff = c.config.MinBackoff

		if err := c.attach(conn); err != nil {
			log.Printf("Flushing queued messages failed: %v", err)
			c.detach(conn)
			c.emitStatus(StatusDisconnected)
			continue
		}
		c.emitStatus(StatusConnected)

		c.readMessages(conn)

		c.detach(conn)
		c.emitStatus(StatusDisconnected)
		if !c.sleep(c.config.MinBackoff) {
			return
		}
	}
}

func (c *Channel) dial() (*websocket.Conn, error) {
	target := c.URL()
	log.Printf("Connecting to %s", target)

	conn, _, err := c.config.Dialer.DialContext(c.ctx, target, c.config.Header)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	return conn, nil
}

// attach makes conn current and flushes the queue under the same lock,
// so nothing sent concurrently can overtake queued messages
func (c *Channel) attach(conn *websocket.Conn) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		conn.Close()
		return ErrClosed
	}

	for len(c.queue) > 0 {
		if err := conn.WriteJSON(c.queue[0]); err != nil {
			conn.Close()
			return err
		}
		c.queue = c.queue[1:]
	}

	c.conn = conn
	c.connected = true
	log.Printf("Connected to %s", c.config.ServerAddr)
	return nil
}

func (c *Channel) detach(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == conn {
		c.conn = nil
		c.connected = false
	}
	conn.Close()
}

func (c *Channel) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-c.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Send delivers a message, or queues it when disconnected. A failed write
// re-queues the message and drops the connection so the loop reconnects.
func (c *Channel) Send(msgType string, payload interface{}) error {
	env, err := NewEnvelope(msgType, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	if !c.connected {
		c.queue = append(c.queue, env)
		return nil
	}

	if err := c.conn.WriteJSON(env); err != nil {
		log.Printf("Write failed, queueing %s: %v", msgType, err)
		c.queue = append(c.queue, env)
		c.connected = false
		c.conn.Close()
		c.conn = nil
	}
	return nil
}

// Pending returns how many messages wait for a connection
func (c *Channel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// readMessages reads and routes incoming messages until the connection fails
func (c *Channel) readMessages(conn *websocket.Conn) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil {
				log.Printf("Read error: %v", err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			log.Printf("Ignoring non-text websocket message type: %d", messageType)
			continue
		}
		c.handleJSONMessage(data)
	}
}

// handleJSONMessage routes one envelope to the matching inbound channel
func (c *Channel) handleJSONMessage(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("Failed to parse JSON message: %v", err)
		return
	}

	if env.V != ProtocolVersion {
		log.Printf("Dropping %s message with unsupported version %d", env.Type, env.V)
		return
	}

	switch env.Type {
	case TypeState:
		st, err := DecodeState(env.Payload)
		if err != nil {
			log.Printf("%v", err)
			return
		}
		c.deliver(Inbound{Type: TypeState, State: st})

	case TypeWaveformChunk:
		chunk, err := DecodeChunk(env.Payload)
		if err != nil {
			log.Printf("%v", err)
			return
		}
		c.deliver(Inbound{Type: TypeWaveformChunk, Chunk: chunk})

	case TypeError:
		e, err := DecodeError(env.Payload)
		if err != nil {
			log.Printf("%v", err)
			return
		}
		c.deliver(Inbound{Type: TypeError, Err: e})

	default:
		log.Printf("Unknown message type: %s", env.Type)
	}
}

func (c *Channel) emitStatus(s Status) {
	c.deliver(Inbound{Type: TypeStatus, Status: s})
}

// deliver blocks until the consumer takes msg or the channel is closed
func (c *Channel) deliver(msg Inbound) {
	select {
	case c.Inbound <- msg:
	case <-c.ctx.Done():
	}
}

// IsConnected returns connection status
func (c *Channel) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close stops reconnecting, closes the connection and drops queued messages
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.connected = false
	c.queue = nil
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	c.cancel()

	started := true
	c.startOnce.Do(func() { started = false })
	if started {
		<-c.done
	}
	log.Printf("Connection closed")
}
