// Package agent is the HTTP client for the automation agent running inside a
// sandbox. The agent's API is an external contract: GET /health for
// readiness, POST /heartbeat for liveness, POST /execute for streamed command
// execution, and POST /stop to abort an in-flight execution.
package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/surfbox-dev/surfbox/internal/logging"
)

// requestTimeout bounds the non-streaming calls. Heartbeats in particular
// must fail fast so the failure counter reflects reality.
const requestTimeout = 5 * time.Second

// Client talks to one sandbox's agent over its published API port.
type Client struct {
	http *resty.Client
}

// NewClient creates a Client for an agent published on the given loopback port.
func NewClient(apiPort int) *Client {
	return NewClientForURL(fmt.Sprintf("http://127.0.0.1:%d", apiPort))
}

// NewClientForURL creates a Client against an explicit base URL.
func NewClientForURL(baseURL string) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout)
	return &Client{http: httpClient}
}

// Health performs a single readiness probe.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/health")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("agent health check returned %s", resp.Status())
	}
	return nil
}

// WaitHealthy polls /health until it succeeds or the attempt budget is
// exhausted. Individual probe failures are expected during startup and are
// absorbed; only exhaustion surfaces.
func (c *Client) WaitHealthy(ctx context.Context, attempts int, interval time.Duration) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = c.Health(ctx); lastErr == nil {
			logging.Debug("agent healthy", "attempt", i+1)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return fmt.Errorf("agent not healthy after %d attempts: %w", attempts, lastErr)
}

// Heartbeat sends a liveness keep-alive.
func (c *Client) Heartbeat(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Post("/heartbeat")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("agent heartbeat returned %s", resp.Status())
	}
	return nil
}

// ExecChunk is one streamed execution event. Stream is "stdout" or "stderr"
// for output chunks; the final chunk carries ExitCode instead.
type ExecChunk struct {
	Stream   string `json:"stream,omitempty"`
	Data     string `json:"data,omitempty"`
	ExitCode *int   `json:"exitCode,omitempty"`
}

// Execute runs a command inside the sandbox, invoking onChunk for every
// streamed output chunk, and returns the terminal exit code. Cancelling the
// context aborts the stream.
func (c *Client) Execute(ctx context.Context, command string, onChunk func(ExecChunk)) (int, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetBody(map[string]string{"command": command}).
		Post("/execute")
	if err != nil {
		return -1, err
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() >= 400 {
		return -1, fmt.Errorf("agent execute returned %s", resp.Status())
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var chunk ExecChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return -1, fmt.Errorf("malformed execute chunk: %w", err)
		}
		if chunk.ExitCode != nil {
			return *chunk.ExitCode, nil
		}
		if onChunk != nil {
			onChunk(chunk)
		}
	}
	if err := scanner.Err(); err != nil {
		return -1, err
	}
	return -1, fmt.Errorf("execute stream ended without an exit code")
}

// Stop requests a best-effort abort of the in-flight execution.
func (c *Client) Stop(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Post("/stop")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("agent stop returned %s", resp.Status())
	}
	return nil
}
