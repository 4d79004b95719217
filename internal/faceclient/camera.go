package faceclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"smartcampus/internal/recognition"
)

// ErrNoCamera is returned when no snapshot URL is configured.
var ErrNoCamera = recognition.ErrNoCamera

// Camera fetches still frames from an IP camera's snapshot endpoint.
type Camera struct {
	URL  string
	HTTP *http.Client
}

// NewCamera returns a camera reading from snapshotURL.
func NewCamera(snapshotURL string) *Camera {
	return &Camera{URL: snapshotURL, HTTP: &http.Client{Timeout: 5 * time.Second}}
}

// Frame downloads one JPEG snapshot.
func (c *Camera) Frame(ctx context.Context) ([]byte, error) {
	if c == nil || c.URL == "" {
		return nil, fmt.Errorf("%w: %w", recognition.ErrRecognizerUnavailable, ErrNoCamera)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: camera request failed: %w", recognition.ErrRecognizerUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: camera returned %s", recognition.ErrRecognizerUnavailable, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read camera frame: %w", recognition.ErrRecognizerUnavailable, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: camera returned empty frame", recognition.ErrInvalidFrame)
	}
	return data, nil
}
