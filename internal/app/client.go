// ABOUTME: Client application orchestration
// ABOUTME: Resolves the server, builds playback, upload and transport, and runs the session
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/wavescrub/wavescrub-go/internal/config"
	"github.com/wavescrub/wavescrub-go/internal/discovery"
	"github.com/wavescrub/wavescrub-go/internal/session"
	"github.com/wavescrub/wavescrub-go/internal/version"
	"github.com/wavescrub/wavescrub-go/pkg/playback"
	"github.com/wavescrub/wavescrub-go/pkg/protocol"
	"github.com/wavescrub/wavescrub-go/pkg/upload"
)

// ErrNoServer is returned when no address is configured and discovery is off
var ErrNoServer = errors.New("no server address and discovery disabled")

// Options tweak how the client is built
type Options struct {
	// ShowTimeLabel draws the playback time onto raster renders
	ShowTimeLabel bool
	// ConfigPath is watched for live changes when set
	ConfigPath string
	// Overrides is reapplied to every reloaded config, so command-line
	// flags keep winning over the file
	Overrides func(*config.Config)
}

// Client owns every long-lived component of one operator session
type Client struct {
	config  *config.Config
	opts    Options
	session *session.Session
	channel *protocol.Channel
	clock   playback.Clock
	cache   *upload.Cache
	watcher *config.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a client. Call Start to connect.
func New(cfg *config.Config, opts Options) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config: cfg,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start resolves the server and starts the transport and session pump
func (c *Client) Start(ctx context.Context) error {
	if err := c.resolveServer(ctx); err != nil {
		return err
	}

	c.clock = c.newClock()

	var uploader session.Uploader
	var media session.MediaFetcher
	if base := c.config.UploadBaseURL(); base != "" {
		up, err := upload.NewClient(base, &http.Client{Timeout: 5 * time.Minute})
		if err != nil {
			log.Printf("Uploads disabled: %v", err)
		} else {
			up.UserAgent = version.UserAgent()
			uploader = up

			cache, err := upload.NewCache(c.config.Cache.Dir, nil)
			if err != nil {
				log.Printf("Media cache disabled: %v", err)
			} else {
				c.cache = cache
				media = cache
			}
		}
	}

	sessionID := uuid.New().String()
	c.channel = protocol.NewChannel(protocol.Config{
		ServerAddr: c.config.Server.Addr,
		Path:       c.config.Server.WSPath,
		SessionID:  sessionID,
		Header:     http.Header{"User-Agent": {version.UserAgent()}},
	})

	c.session = session.New(session.Config{
		ID:               sessionID,
		Transport:        c.channel,
		Clock:            c.clock,
		Uploader:         uploader,
		Media:            media,
		ViewportWidth:    float64(c.config.View.Width),
		ThrottleInterval: c.config.ThrottleInterval(),
		FrameInterval:    c.config.FrameInterval(),
		ShowTimeLabel:    c.opts.ShowTimeLabel,
	})

	log.Printf("%s %s session %s -> %s", version.Product, version.Version, sessionID, c.channel.URL())

	if c.opts.ConfigPath != "" {
		w, err := config.Watch(c.opts.ConfigPath, c.applyLive)
		if err != nil {
			log.Printf("Config watching disabled: %v", err)
		} else {
			c.watcher = w
		}
	}

	c.channel.Start()
	go func() {
		defer close(c.done)
		c.session.Run(c.ctx, c.channel)
	}()
	return nil
}

// resolveServer fills in the server address from mDNS when none is set
func (c *Client) resolveServer(ctx context.Context) error {
	if c.config.Server.Addr != "" {
		return nil
	}
	if !c.config.Discovery.Enabled {
		return ErrNoServer
	}

	log.Printf("Starting server discovery...")
	server, err := discovery.Discover(ctx, discovery.Config{}, c.config.DiscoveryTimeout())
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	c.config.Server.Addr = server.Addr()
	if server.Path != "" {
		c.config.Server.WSPath = server.Path
	}
	log.Printf("Discovered server at %s", c.config.Server.Addr)
	return nil
}

// applyLive takes the settings that can change without reconnecting
func (c *Client) applyLive(cfg *config.Config) {
	if c.opts.Overrides != nil {
		c.opts.Overrides(cfg)
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("Ignoring reloaded config: %v", err)
		return
	}
	log.Printf("View update interval now %v", cfg.ThrottleInterval())
	c.session.SetThrottleInterval(cfg.ThrottleInterval())
}

func (c *Client) newClock() playback.Clock {
	if c.config.Playback.Device == config.DeviceOto {
		return playback.NewOtoClock(c.config.Playback.OutputRate)
	}
	return playback.NewWallClock()
}

// Session returns the running session. It is nil before Start.
func (c *Client) Session() *session.Session {
	return c.session
}

// Stop shuts everything down in reverse order of creation
func (c *Client) Stop() {
	c.cancel()

	if c.watcher != nil {
		if err := c.watcher.Close(); err != nil {
			log.Printf("Closing config watcher failed: %v", err)
		}
	}

	if c.session != nil {
		<-c.done
		c.session.Close()
	}

	if c.channel != nil {
		c.channel.Close()
	}

	if closer, ok := c.clock.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Printf("Closing playback failed: %v", err)
		}
	}

	if c.cache != nil {
		if err := c.cache.Cleanup(); err != nil {
			log.Printf("Media cache cleanup failed: %v", err)
		}
	}
}
