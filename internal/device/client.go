package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zenevo/shirodhara/internal/logging"
)

const (
	// DefaultBaseURL is the device's address on its own access point
	DefaultBaseURL = "http://192.168.4.1"

	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 5 * time.Second

	// HealthPath is the read endpoint
	HealthPath = "/api/health"

	// UpdatePath is the single write endpoint
	UpdatePath = "/api/update"

	// maxBodySize bounds how much of a response is read
	maxBodySize = 64 << 10
)

// Client is an HTTP client for the device's local API.
// It performs no retries; retry policy belongs to the caller.
type Client struct {
	// BaseURL is the base URL for the device (e.g., "http://192.168.4.1")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	logger *zap.Logger
}

// NewClient creates a new device client for baseURL.
// An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zap.NewNop(),
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetTransport replaces the HTTP transport, keeping the timeout.
// The network associator uses this to route requests over the device link.
func (c *Client) SetTransport(rt http.RoundTripper) {
	c.HTTPClient = &http.Client{Timeout: c.HTTPClient.Timeout, Transport: rt}
}

// SetLogger sets the logger used for request tracing
func (c *Client) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c.logger = logger
}

// GetHealth fetches the current device health snapshot.
func (c *Client) GetHealth(ctx context.Context) (*HealthSnapshot, error) {
	const op = "health"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+HealthPath, nil)
	if err != nil {
		return nil, newUnreachable(op, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(op, req)
	if err != nil {
		return nil, err
	}

	var health HealthSnapshot
	if err := json.Unmarshal(body, &health); err != nil {
		return nil, newMalformed(op, "failed to parse health response", err)
	}
	if err := health.Validate(); err != nil {
		return nil, newMalformed(op, "invalid health response", err)
	}

	return &health, nil
}

// SendCommand posts cmd to the device. A successful Ack only means the
// device accepted the request.
func (c *Client) SendCommand(ctx context.Context, cmd Command) (*Ack, error) {
	op := cmd.Name()

	payload, err := EncodeCommand(cmd)
	if err != nil {
		return nil, newMalformed(op, "failed to encode command", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+UpdatePath, bytes.NewReader(payload))
	if err != nil {
		return nil, newUnreachable(op, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	body, err := c.do(op, req)
	if err != nil {
		return nil, err
	}

	ack := &Ack{}
	if len(bytes.TrimSpace(body)) == 0 {
		return ack, nil
	}
	if err := json.Unmarshal(body, ack); err != nil {
		return nil, newMalformed(op, "failed to parse update response", err)
	}
	return ack, nil
}

// SetParameters is a convenience wrapper around SendCommand
func (c *Client) SetParameters(ctx context.Context, duration, temperature int) (*Ack, error) {
	return c.SendCommand(ctx, SetParameters{Duration: duration, Temperature: temperature})
}

// Start is a convenience wrapper around SendCommand
func (c *Client) Start(ctx context.Context) (*Ack, error) {
	return c.SendCommand(ctx, Start{})
}

// Stop is a convenience wrapper around SendCommand
func (c *Client) Stop(ctx context.Context) (*Ack, error) {
	return c.SendCommand(ctx, Stop{})
}

// do executes req and returns the body of a 2xx response.
func (c *Client) do(op string, req *http.Request) ([]byte, error) {
	start := time.Now()

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		devErr := newUnreachable(op, fmt.Sprintf("%s %s failed", req.Method, req.URL.Path), err)
		logging.LogDeviceRequest(c.logger, req.Method, req.URL.Path, 0, time.Since(start), devErr)
		return nil, devErr
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		devErr := newUnreachable(op, "failed to read response body", err)
		logging.LogDeviceRequest(c.logger, req.Method, req.URL.Path, resp.StatusCode, time.Since(start), devErr)
		return nil, devErr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		devErr := newRejected(op, resp.StatusCode, string(body))
		logging.LogDeviceRequest(c.logger, req.Method, req.URL.Path, resp.StatusCode, time.Since(start), devErr)
		return nil, devErr
	}

	logging.LogDeviceRequest(c.logger, req.Method, req.URL.Path, resp.StatusCode, time.Since(start), nil)
	return body, nil
}
