// Package backend is the HTTP client for the key-value document store that
// all channel state lives in. The store speaks plain HTTP verbs against
// hierarchical "*.json" paths; a missing document reads as JSON null.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// Rate limiting: the poll loop alone generates a few requests per
	// second per surface; the burst absorbs a full tick of traffic.
	rateLimit = 10
	rateBurst = 20

	// Retry configuration for transient failures. Kept short: the poll
	// loop retries on its own cadence, this only papers over blips inside
	// a single call.
	maxRetries   = 2
	initialDelay = 100 * time.Millisecond
	maxDelay     = 400 * time.Millisecond
)

// ErrUnavailable marks a transient transport or server failure. Callers
// check it with errors.Is and keep polling.
var ErrUnavailable = errors.New("backend unavailable")

// Client performs rate-limited JSON document operations against the store.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// NewClient creates a store client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:     baseURL,
		rateLimiter: rate.NewLimiter(rate.Limit(rateLimit), rateBurst),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// GetJSON reads the document at path into out. A missing document (404 or
// JSON null) leaves out at its zero value and returns nil.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	body, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if len(body) == 0 || bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// PutJSON replaces the document at path.
func (c *Client) PutJSON(ctx context.Context, path string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	_, err = c.doRequest(ctx, http.MethodPut, path, payload)
	return err
}

// PatchJSON merges value into the document at path (merge-insert of the
// top-level keys; existing siblings are preserved).
func (c *Client) PatchJSON(ctx context.Context, path string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	_, err = c.doRequest(ctx, http.MethodPatch, path, payload)
	return err
}

// Delete removes the document at path. Deleting an absent document is not
// an error.
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, path, nil)
	return err
}

// doRequest performs one HTTP round trip with rate limiting and bounded
// retry on transient failures.
func (c *Client) doRequest(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	fullURL := c.baseURL + path

	var lastErr error
	delay := initialDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxRetries && ctx.Err() == nil {
				delay = sleepBackoff(ctx, delay)
				continue
			}
			break
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			// Missing documents read as null.
			return nil, nil
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if readErr != nil {
				return nil, fmt.Errorf("read response: %w", readErr)
			}
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			if attempt < maxRetries && ctx.Err() == nil {
				delay = sleepBackoff(ctx, delay)
				continue
			}
		default:
			return nil, fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
		}
		break
	}

	return nil, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, lastErr)
}

// sleepBackoff waits for delay (or context cancellation) and returns the
// next delay, capped.
func sleepBackoff(ctx context.Context, delay time.Duration) time.Duration {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
	next := delay * 2
	if next > maxDelay {
		next = maxDelay
	}
	return next
}
