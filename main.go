// ABOUTME: Entry point for the WaveScrub waveform client
// ABOUTME: Parses CLI flags over the config file and starts the TUI or headless client
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wavescrub/wavescrub-go/internal/app"
	"github.com/wavescrub/wavescrub-go/internal/config"
	"github.com/wavescrub/wavescrub-go/internal/session"
	"github.com/wavescrub/wavescrub-go/internal/ui"
	"github.com/wavescrub/wavescrub-go/internal/version"
)

var (
	configPath = flag.String("config", "", "Config file (TOML, or YAML by .yaml/.yml extension)")
	serverAddr = flag.String("server", "", "Waveform server host:port (skip mDNS)")
	httpURL    = flag.String("http", "", "Upload base URL (default: http://<server>)")
	logFile    = flag.String("log-file", "", "Log file path (default from config: wavescrub.log)")
	noTUI      = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	streamLogs = flag.Bool("stream-logs", false, "Alias for -no-tui")
	noAudio    = flag.Bool("no-audio", false, "Simulate playback instead of using the audio device")
	throttleMs = flag.Int("throttle-ms", 0, "Minimum spacing of view updates in milliseconds")
	loadPath   = flag.String("load", "", "Server-side path to load on start")
	uploadFile = flag.String("upload", "", "Local file to upload and load on start")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Determine if we should use TUI or streaming logs
	useTUI := !(*noTUI || *streamLogs)

	// Set up logging
	f, err := os.OpenFile(cfg.Log.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		// Streaming logs mode: log to both stdout and file
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	log.Printf("Starting %s %s", version.Product, version.Version)
	if !useTUI {
		log.Printf("Logging to: %s", cfg.Log.File)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := app.New(cfg, app.Options{ConfigPath: *configPath, Overrides: applyFlags})
	if err := client.Start(ctx); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer client.Stop()

	s := client.Session()
	go startupActions(ctx, s)

	if useTUI {
		prog := ui.Run(s)
		go func() {
			<-ctx.Done()
			prog.Quit()
		}()
		if _, err := prog.Run(); err != nil {
			log.Printf("TUI error: %v", err)
		}
	} else {
		statusLogLoop(ctx, s)
	}

	log.Printf("Client stopped")
}

// applyFlags overrides config values with flags given on the command line
func applyFlags(cfg *config.Config) {
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "server":
			cfg.Server.Addr = *serverAddr
		case "http":
			cfg.Server.HTTPURL = *httpURL
		case "log-file":
			cfg.Log.File = *logFile
		case "no-audio":
			if *noAudio {
				cfg.Playback.Device = config.DeviceWall
			}
		case "throttle-ms":
			cfg.View.ThrottleMs = *throttleMs
		}
	})
}

// startupActions runs the -upload and -load flags once the client is up
func startupActions(ctx context.Context, s *session.Session) {
	if *uploadFile != "" {
		if _, err := s.Upload(ctx, *uploadFile); err != nil {
			log.Printf("Upload failed: %v", err)
		}
		return
	}
	if *loadPath != "" {
		if err := s.Load(*loadPath); err != nil {
			log.Printf("Load failed: %v", err)
		}
	}
}

// statusLogLoop logs status and selection changes until ctx ends
func statusLogLoop(ctx context.Context, s *session.Session) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var last session.Snapshot
	for {
		select {
		case <-ctx.Done():
			log.Printf("Shutdown signal received")
			return
		case <-ticker.C:
			snap := s.Snapshot()
			if snap.Status != last.Status {
				log.Printf("Status: %s", snap.Status)
			}
			if snap.SelectionLabel != last.SelectionLabel {
				log.Printf("%s", snap.SelectionLabel)
			}
			if snap.HasState && (snap.State.View.Zoom != last.State.View.Zoom || snap.State.View.OffsetSec != last.State.View.OffsetSec) {
				log.Printf("View: zoom=%.2f offset=%.3fs", snap.State.View.Zoom, snap.State.View.OffsetSec)
			}
			last = snap
		}
	}
}
