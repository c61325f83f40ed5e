package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Upstream error bodies are kept short in logs and error messages
const maxErrorBodySize = 2048

// Client is a thin JSON HTTP helper shared by the aggregator and platform
// clients. It owns request construction, latency logging and limited
// error-body capture; base URLs and auth headers belong to the callers.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// UpstreamError carries the status and a truncated body of a non-2xx
// upstream response
type UpstreamError struct {
	Status int
	URL    string
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned HTTP %d for %s: %s", e.Status, e.URL, e.Body)
}

// NewClient creates a JSON HTTP helper with the given timeout
func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// DoJSON performs a request with an optional JSON body and decodes a JSON
// response into out (skipped when out is nil). Extra headers are applied
// after Content-Type.
func (c *Client) DoJSON(ctx context.Context, method, url string, body interface{}, headers map[string]string, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	latencyMs := int(time.Since(startTime).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		truncated := make([]byte, maxErrorBodySize)
		n, _ := io.ReadFull(resp.Body, truncated)
		c.logger.Warn("Upstream call failed",
			zap.String("method", method),
			zap.String("url", url),
			zap.Int("http_status", resp.StatusCode),
			zap.Int("latency_ms", latencyMs),
		)
		return &UpstreamError{
			Status: resp.StatusCode,
			URL:    url,
			Body:   string(truncated[:n]),
		}
	}

	c.logger.Debug("Upstream call succeeded",
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("http_status", resp.StatusCode),
		zap.Int("latency_ms", latencyMs),
	)

	if out == nil {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}
