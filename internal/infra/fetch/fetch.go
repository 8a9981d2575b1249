// Package fetch retrieves remote bytes (product photos, font files) over HTTP.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"time"
)

// ErrTooLarge signals a body above the configured cap.
var ErrTooLarge = errors.New("response body too large")

// Client downloads bytes with a per-call timeout and a size cap.
type Client struct {
	HTTP     *http.Client
	Timeout  time.Duration
	MaxBytes int64
}

// New returns a Client; zero values fall back to 10s and 20 MiB.
func New(timeout time.Duration, maxBytes int64) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = 20 << 20
	}
	return &Client{
		HTTP:     &http.Client{},
		Timeout:  timeout,
		MaxBytes: maxBytes,
	}
}

// Get downloads url. Only http and https are accepted.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	parsed, err := neturl.ParseRequestURI(url)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("fetch %q: must be an http or https url", url)
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", url, err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %q: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("fetch %q: read body: %w", url, err)
	}
	if int64(len(body)) > c.MaxBytes {
		return nil, fmt.Errorf("fetch %q: %w (limit %d bytes)", url, ErrTooLarge, c.MaxBytes)
	}
	return body, nil
}
