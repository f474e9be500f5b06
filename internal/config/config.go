// ABOUTME: Client configuration with defaults, TOML/YAML file loading and validation
// ABOUTME: Command-line flags are applied on top of the loaded values by main
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Playback devices
const (
	DeviceOto  = "oto"
	DeviceWall = "wall"
)

// Config is the full client configuration
type Config struct {
	Server    ServerConfig    `toml:"server" yaml:"server"`
	View      ViewConfig      `toml:"view" yaml:"view"`
	Playback  PlaybackConfig  `toml:"playback" yaml:"playback"`
	Discovery DiscoveryConfig `toml:"discovery" yaml:"discovery"`
	Log       LogConfig       `toml:"log" yaml:"log"`
	Cache     CacheConfig     `toml:"cache" yaml:"cache"`
}

// ServerConfig locates the waveform server
type ServerConfig struct {
	Addr string `toml:"addr" yaml:"addr"`
	// HTTPURL is the base URL for uploads. Empty derives http://Addr.
	HTTPURL string `toml:"http_url" yaml:"http_url"`
	WSPath  string `toml:"ws_path" yaml:"ws_path"`
}

// ViewConfig sizes the surface and the view update rate
type ViewConfig struct {
	Width      int `toml:"width" yaml:"width"`
	Height     int `toml:"height" yaml:"height"`
	ThrottleMs int `toml:"throttle_ms" yaml:"throttle_ms"`
}

// PlaybackConfig selects the local playback clock
type PlaybackConfig struct {
	Device     string `toml:"device" yaml:"device"`
	OutputRate int    `toml:"output_rate" yaml:"output_rate"`
	FrameHz    int    `toml:"frame_hz" yaml:"frame_hz"`
}

// DiscoveryConfig controls mDNS browsing when no server address is set
type DiscoveryConfig struct {
	Enabled    bool `toml:"enabled" yaml:"enabled"`
	TimeoutSec int  `toml:"timeout_sec" yaml:"timeout_sec"`
}

// LogConfig sets the log destination
type LogConfig struct {
	File string `toml:"file" yaml:"file"`
}

// CacheConfig sets where served media is downloaded
type CacheConfig struct {
	Dir string `toml:"dir" yaml:"dir"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			WSPath: "/ws/audio",
		},
		View: ViewConfig{
			Width:      800,
			Height:     200,
			ThrottleMs: 50,
		},
		Playback: PlaybackConfig{
			Device:     DeviceOto,
			OutputRate: 44100,
			FrameHz:    60,
		},
		Discovery: DiscoveryConfig{
			Enabled:    true,
			TimeoutSec: 10,
		},
		Log: LogConfig{
			File: "wavescrub.log",
		},
	}
}

// Load reads path over the defaults. The format follows the extension:
// .yaml and .yml are YAML, anything else is TOML. An empty path returns defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml config: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parse toml config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	var errs []error

	if c.View.Width < 2 {
		errs = append(errs, fmt.Errorf("view.width must be at least 2, got %d", c.View.Width))
	}
	if c.View.Height < 2 {
		errs = append(errs, fmt.Errorf("view.height must be at least 2, got %d", c.View.Height))
	}
	if c.View.ThrottleMs <= 0 {
		errs = append(errs, fmt.Errorf("view.throttle_ms must be positive, got %d", c.View.ThrottleMs))
	}
	if c.Playback.Device != DeviceOto && c.Playback.Device != DeviceWall {
		errs = append(errs, fmt.Errorf("playback.device must be %q or %q, got %q", DeviceOto, DeviceWall, c.Playback.Device))
	}
	if c.Playback.OutputRate <= 0 {
		errs = append(errs, fmt.Errorf("playback.output_rate must be positive, got %d", c.Playback.OutputRate))
	}
	if c.Playback.FrameHz <= 0 || c.Playback.FrameHz > 240 {
		errs = append(errs, fmt.Errorf("playback.frame_hz must be in 1..240, got %d", c.Playback.FrameHz))
	}
	if c.Discovery.TimeoutSec < 0 {
		errs = append(errs, fmt.Errorf("discovery.timeout_sec must not be negative, got %d", c.Discovery.TimeoutSec))
	}
	if c.Server.WSPath != "" && !strings.HasPrefix(c.Server.WSPath, "/") {
		errs = append(errs, fmt.Errorf("server.ws_path must start with /, got %q", c.Server.WSPath))
	}

	return errors.Join(errs...)
}

// ThrottleInterval returns the view update spacing
func (c *Config) ThrottleInterval() time.Duration {
	return time.Duration(c.View.ThrottleMs) * time.Millisecond
}

// FrameInterval returns the playback loop period
func (c *Config) FrameInterval() time.Duration {
	if c.Playback.FrameHz <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.Playback.FrameHz)
}

// DiscoveryTimeout returns how long to browse for a server
func (c *Config) DiscoveryTimeout() time.Duration {
	return time.Duration(c.Discovery.TimeoutSec) * time.Second
}

// UploadBaseURL returns the HTTP base for uploads and media
func (c *Config) UploadBaseURL() string {
	if c.Server.HTTPURL != "" {
		return strings.TrimRight(c.Server.HTTPURL, "/")
	}
	if c.Server.Addr == "" {
		return ""
	}
	return "http://" + c.Server.Addr
}
