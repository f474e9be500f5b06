// ABOUTME: mDNS discovery of waveform servers on the local network
// ABOUTME: Browses for _wavescrub._tcp and reports each server address once
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service advertised by waveform servers
const ServiceType = "_wavescrub._tcp"

// ErrNoServer is returned when browsing ends without a result
var ErrNoServer = errors.New("no waveform server found")

// Config holds discovery configuration
type Config struct {
	Service string
	Domain  string
	// QueryTimeout bounds a single mDNS query round
	QueryTimeout time.Duration
}

// ServerInfo describes a discovered server
type ServerInfo struct {
	Name string
	Host string
	Port int
	// Path is the websocket path from the TXT record, if advertised
	Path string
}

// Addr returns host:port
func (s ServerInfo) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type queryFunc func(*mdns.QueryParam) error

// Manager handles mDNS browsing
type Manager struct {
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
	servers chan *ServerInfo
	query   queryFunc

	mu   sync.Mutex
	seen map[string]bool
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	if config.Service == "" {
		config.Service = ServiceType
	}
	if config.Domain == "" {
		config.Domain = "local"
	}
	if config.QueryTimeout <= 0 {
		config.QueryTimeout = 3 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
		servers: make(chan *ServerInfo, 10),
		query:   mdns.Query,
		seen:    make(map[string]bool),
	}
}

// Browse searches for servers until Stop is called
func (m *Manager) Browse() {
	go m.browseLoop()
}

// browseLoop repeats queries so late-starting servers are still found
func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		entries := make(chan *mdns.ServiceEntry, 10)
		done := make(chan struct{})

		go func() {
			defer close(done)
			for entry := range entries {
				m.handleEntry(entry)
			}
		}()

		params := &mdns.QueryParam{
			Service: m.config.Service,
			Domain:  m.config.Domain,
			Timeout: m.config.QueryTimeout,
			Entries: entries,
		}

		if err := m.query(params); err != nil {
			log.Printf("mDNS query failed: %v", err)
		}
		close(entries)
		<-done

		select {
		case <-m.ctx.Done():
			return
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (m *Manager) handleEntry(entry *mdns.ServiceEntry) {
	if entry == nil || entry.AddrV4 == nil || entry.Port == 0 {
		return
	}

	server := &ServerInfo{
		Name: entry.Name,
		Host: entry.AddrV4.String(),
		Port: entry.Port,
		Path: txtValue(entry.InfoFields, "path"),
	}

	m.mu.Lock()
	dup := m.seen[server.Addr()]
	m.seen[server.Addr()] = true
	m.mu.Unlock()
	if dup {
		return
	}

	log.Printf("Discovered server: %s at %s", server.Name, server.Addr())

	select {
	case m.servers <- server:
	case <-m.ctx.Done():
	}
}

func txtValue(fields []string, key string) string {
	prefix := key + "="
	for _, f := range fields {
		if strings.HasPrefix(f, prefix) {
			return strings.TrimPrefix(f, prefix)
		}
	}
	return ""
}

// Servers returns the channel of discovered servers
func (m *Manager) Servers() <-chan *ServerInfo {
	return m.servers
}

// Stop stops the discovery manager
func (m *Manager) Stop() {
	m.cancel()
}

// Discover browses until the first server appears or timeout passes
func Discover(ctx context.Context, config Config, timeout time.Duration) (*ServerInfo, error) {
	return discover(ctx, NewManager(config), timeout)
}

func discover(ctx context.Context, m *Manager, timeout time.Duration) (*ServerInfo, error) {
	defer m.Stop()
	m.Browse()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case server := <-m.Servers():
		return server, nil
	case <-timer.C:
		return nil, fmt.Errorf("browse %s for %v: %w", m.config.Service, timeout, ErrNoServer)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
