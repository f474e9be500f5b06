// ABOUTME: Tests for mDNS discovery
// ABOUTME: Drives the browse loop with a scripted query function
package discovery

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/hashicorp/mdns"
)

func scriptedQuery(entries ...*mdns.ServiceEntry) queryFunc {
	return func(p *mdns.QueryParam) error {
		for _, e := range entries {
			p.Entries <- e
		}
		return nil
	}
}

func TestNewManagerDefaults(t *testing.T) {
	mgr := NewManager(Config{})
	defer mgr.Stop()

	if mgr.config.Service != ServiceType {
		t.Errorf("Expected service %q, got %q", ServiceType, mgr.config.Service)
	}
	if mgr.config.Domain != "local" {
		t.Errorf("Expected domain local, got %q", mgr.config.Domain)
	}
	if mgr.config.QueryTimeout <= 0 {
		t.Error("Expected a positive query timeout")
	}
}

func TestDiscoverReturnsFirstServer(t *testing.T) {
	mgr := NewManager(Config{})
	mgr.query = scriptedQuery(&mdns.ServiceEntry{
		Name:       "studio._wavescrub._tcp.local.",
		AddrV4:     net.IPv4(192, 168, 1, 20),
		Port:       8000,
		InfoFields: []string{"version=1", "path=/ws/audio"},
	})

	server, err := discover(context.Background(), mgr, time.Second)
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}
	if server.Addr() != "192.168.1.20:8000" {
		t.Errorf("Expected 192.168.1.20:8000, got %s", server.Addr())
	}
	if server.Path != "/ws/audio" {
		t.Errorf("Expected path /ws/audio, got %q", server.Path)
	}
}

func TestDuplicateAndIncompleteEntriesAreSkipped(t *testing.T) {
	mgr := NewManager(Config{})
	defer mgr.Stop()

	entry := &mdns.ServiceEntry{Name: "a", AddrV4: net.IPv4(10, 0, 0, 1), Port: 9000}
	mgr.handleEntry(entry)
	mgr.handleEntry(entry)
	mgr.handleEntry(&mdns.ServiceEntry{Name: "no-addr", Port: 9000})
	mgr.handleEntry(nil)

	if got := len(mgr.servers); got != 1 {
		t.Errorf("Expected 1 server, got %d", got)
	}
}

func TestDiscoverTimesOut(t *testing.T) {
	mgr := NewManager(Config{QueryTimeout: 10 * time.Millisecond})
	mgr.query = scriptedQuery()

	_, err := discover(context.Background(), mgr, 50*time.Millisecond)
	if !errors.Is(err, ErrNoServer) {
		t.Errorf("Expected ErrNoServer, got %v", err)
	}
}

func TestDiscoverHonorsContext(t *testing.T) {
	mgr := NewManager(Config{})
	mgr.query = scriptedQuery()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := discover(ctx, mgr, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestTxtValue(t *testing.T) {
	fields := []string{"version=1", "path=/ws/audio"}
	if got := txtValue(fields, "path"); got != "/ws/audio" {
		t.Errorf("Expected /ws/audio, got %q", got)
	}
	if got := txtValue(fields, "missing"); got != "" {
		t.Errorf("Expected empty, got %q", got)
	}
}
