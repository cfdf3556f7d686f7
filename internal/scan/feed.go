package scan

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxFrameSize = 20 << 20 // 20 MB

// HTTPFrameGrabber fetches single JPEG snapshots over HTTP, the interface
// most classroom IP cameras expose alongside their video stream.
type HTTPFrameGrabber struct {
	client *http.Client
}

func NewHTTPFrameGrabber(timeout time.Duration) *HTTPFrameGrabber {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPFrameGrabber{
		client: &http.Client{Timeout: timeout},
	}
}

// Grab fetches one frame from the camera's snapshot URL.
func (g *HTTPFrameGrabber) Grab(ctx context.Context, cameraURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cameraURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid camera URL: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("camera returned status %d", resp.StatusCode)
	}

	frame, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}
	if len(frame) == 0 {
		return nil, fmt.Errorf("camera returned an empty frame")
	}
	return frame, nil
}
