package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	pathHealth = "/healthz"
	pathGaze   = "/gaze"

	maxErrorBody = 512
)

// ErrNoData is returned when a teacher polls before any student data exists.
var ErrNoData = errors.New("no gaze data to aggregate")

// Client wraps http.Client with the aggregator's routes.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Health checks the service liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathHealth, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// Submit posts one student batch and returns the round-trip latency.
func (c *Client) Submit(ctx context.Context, b Batch) (time.Duration, error) {
	var ack struct {
		Result string `json:"result"`
	}
	return c.post(ctx, b, &ack)
}

// Aggregate asks for the clustered aggregate as a teacher.
func (c *Client) Aggregate(ctx context.Context) (AggregateResult, time.Duration, error) {
	var out AggregateResult
	took, err := c.post(ctx, map[string]string{"role": "teacher"}, &out)
	return out, took, err
}

func (c *Client) post(ctx context.Context, body, out any) (time.Duration, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pathGaze, bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return time.Since(start), err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	took := time.Since(start)
	if err != nil {
		return took, fmt.Errorf("failed to read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnprocessableEntity:
		return took, ErrNoData
	default:
		if len(payload) > maxErrorBody {
			payload = payload[:maxErrorBody]
		}
		return took, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(payload))
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return took, fmt.Errorf("failed to decode response: %w", err)
	}
	return took, nil
}
