// ABOUTME: HTTP client for uploading local audio files to the waveform server
// ABOUTME: Streams a multipart form and decodes the {path, url} reply or error detail
package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// UploadPath is the server endpoint accepting multipart uploads
const UploadPath = "/api/audio/upload"

// ErrNoFile is returned when no file was chosen
var ErrNoFile = errors.New("no file chosen")

// Result is the server's description of an accepted upload
type Result struct {
	// Path is the server-side path to pass to audio.load
	Path string `json:"path"`
	// URL serves the uploaded media for local playback
	URL string `json:"url"`
}

// Error is a rejected upload. Its message is the server's detail text.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	return e.Detail
}

// Client uploads files to one server
type Client struct {
	base   *url.URL
	client *http.Client

	// UserAgent is sent on uploads when set
	UserAgent string
}

// NewClient creates an upload client for a server base URL such as
// http://localhost:8000. A nil httpClient uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid server url %q: scheme and host required", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{base: base, client: httpClient}, nil
}

// Resolve turns a possibly relative media URL into an absolute one
func (c *Client) Resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid media url: %w", err)
	}
	return c.base.ResolveReference(u).String(), nil
}

// Upload sends filePath as the "file" field of a multipart form
func (c *Client) Upload(ctx context.Context, filePath string) (Result, error) {
	if strings.TrimSpace(filePath) == "" {
		return Result{}, ErrNoFile
	}

	f, err := os.Open(filePath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		part, err := form.CreateFormFile("file", filepath.Base(filePath))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, f); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(form.Close())
	}()

	endpoint := c.base.ResolveReference(&url.URL{Path: UploadPath}).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		pr.Close()
		return Result{}, fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	log.Printf("Uploading %s to %s", filepath.Base(filePath), endpoint)
	resp, err := c.client.Do(req)
	if err != nil {
		pr.Close()
		return Result{}, fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Result
		Detail json.RawMessage `json:"detail"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, &Error{StatusCode: resp.StatusCode, Detail: detailText(body.Detail)}
	}
	if decodeErr != nil {
		return Result{}, fmt.Errorf("failed to parse upload response: %w", decodeErr)
	}

	log.Printf("Upload accepted: path=%s url=%s", body.Path, body.URL)
	return body.Result, nil
}

// detailText extracts a string detail, falling back to a generic message
func detailText(raw json.RawMessage) string {
	var s string
	if len(raw) > 0 && json.Unmarshal(raw, &s) == nil && s != "" {
		return s
	}
	return "Upload failed"
}
