// ABOUTME: Media cache that downloads uploaded audio for local playback
// ABOUTME: Files are keyed by a hash of their URL so repeat loads hit the disk
package upload

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache manages media downloads
type Cache struct {
	dir    string
	client *http.Client
	sf     singleflight.Group

	mu          sync.Mutex
	currentPath string
}

// NewCache creates a media cache in dir, or a temp directory when dir is empty
func NewCache(dir string, httpClient *http.Client) (*Cache, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "wavescrub-media")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Cache{
		dir:    dir,
		client: httpClient,
	}, nil
}

// Dir returns the cache directory
func (c *Cache) Dir() string {
	return c.dir
}

// Fetch downloads mediaURL into the cache and returns the local path.
// Concurrent fetches of the same URL share one download.
func (c *Cache) Fetch(ctx context.Context, mediaURL string) (string, error) {
	if mediaURL == "" {
		return "", nil
	}

	hash := sha256.Sum256([]byte(mediaURL))
	cachePath := filepath.Join(c.dir, fmt.Sprintf("%x%s", hash[:8], mediaExtension(mediaURL)))

	v, err, _ := c.sf.Do(cachePath, func() (any, error) {
		if _, err := os.Stat(cachePath); err == nil {
			log.Printf("Media cache hit: %s", cachePath)
			return cachePath, nil
		}
		return cachePath, c.download(ctx, mediaURL, cachePath)
	})
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.currentPath = v.(string)
	c.mu.Unlock()
	return cachePath, nil
}

func (c *Cache) download(ctx context.Context, mediaURL, cachePath string) error {
	log.Printf("Downloading media: %s", mediaURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build media request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("media download failed: HTTP %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(c.dir, "download-*")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save media: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save media: %w", err)
	}
	if err := os.Rename(tmp.Name(), cachePath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to store media: %w", err)
	}

	log.Printf("Media saved: %s", cachePath)
	return nil
}

// CurrentPath returns the most recently fetched file
func (c *Cache) CurrentPath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentPath
}

// mediaExtension keeps the URL's extension so decoders can pick a format
func mediaExtension(mediaURL string) string {
	u, err := url.Parse(mediaURL)
	if err != nil {
		return ""
	}
	return filepath.Ext(u.Path)
}

// Cleanup removes the cache directory
func (c *Cache) Cleanup() error {
	return os.RemoveAll(c.dir)
}
