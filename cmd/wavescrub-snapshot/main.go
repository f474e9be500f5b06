// ABOUTME: Headless snapshot tool: loads a track and writes the first waveform frame as PNG
// ABOUTME: Useful for checking a server without a terminal UI
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"time"

	"github.com/wavescrub/wavescrub-go/internal/app"
	"github.com/wavescrub/wavescrub-go/internal/config"
)

var (
	configPath = flag.String("config", "", "Config file (TOML or YAML)")
	serverAddr = flag.String("server", "", "Waveform server host:port (skip mDNS)")
	loadPath   = flag.String("load", "", "Server-side path to load")
	uploadFile = flag.String("upload", "", "Local file to upload instead of -load")
	output     = flag.String("o", "waveform.png", "Output PNG path")
	width      = flag.Int("width", 0, "Image width (default from config)")
	height     = flag.Int("height", 0, "Image height (default from config)")
	timeout    = flag.Duration("timeout", 15*time.Second, "How long to wait for the waveform")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	if *loadPath == "" && *uploadFile == "" {
		fmt.Fprintln(os.Stderr, "usage: wavescrub-snapshot -server host:port (-load path | -upload file) [-o out.png]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *serverAddr != "" {
		cfg.Server.Addr = *serverAddr
	}
	if *width > 0 {
		cfg.View.Width = *width
	}
	if *height > 0 {
		cfg.View.Height = *height
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, cfg, snapshotJob{LoadPath: *loadPath, UploadFile: *uploadFile, Output: *output}); err != nil {
		cancel()
		log.Fatal(err)
	}
}

// snapshotJob names the track to open and where the PNG goes
type snapshotJob struct {
	LoadPath   string
	UploadFile string
	Output     string
}

// run opens the track, waits for its waveform and writes the PNG. The client
// is stopped on every return path.
func run(ctx context.Context, cfg *config.Config, job snapshotJob) error {
	cfg.Playback.Device = config.DeviceWall
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	client := app.New(cfg, app.Options{ShowTimeLabel: true})
	if err := client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer client.Stop()

	s := client.Session()
	if job.UploadFile != "" {
		if _, err := s.Upload(ctx, job.UploadFile); err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}
	} else if err := s.Load(job.LoadPath); err != nil {
		return fmt.Errorf("load failed: %w", err)
	}

	if err := s.WaitForWaveform(ctx); err != nil {
		return fmt.Errorf("no waveform: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, cfg.View.Width, cfg.View.Height))
	res := s.Render(img)
	log.Printf("Rendered %dx%d (selection=%v playhead=%v): %s",
		cfg.View.Width, cfg.View.Height, res.SelectionVisible, res.PlayheadVisible, s.Snapshot().SelectionLabel)

	if err := writePNG(job.Output, img); err != nil {
		return fmt.Errorf("failed to write %s: %w", job.Output, err)
	}
	log.Printf("Wrote %s", job.Output)
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
