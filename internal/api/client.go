package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrDaemonUnavailable reports that no daemon answered at the configured bind address.
var ErrDaemonUnavailable = errors.New("daemon unavailable")

// Client talks to the daemon HTTP API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient builds a client for a host:port bind address or a full base URL.
func NewClient(bind, token string) *Client {
	base := strings.TrimRight(strings.TrimSpace(bind), "/")
	if base != "" && !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL:    base,
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// RunNow asks the daemon to start a run. A refusal is returned as a response,
// not an error.
func (c *Client) RunNow(ctx context.Context) (RunNowResponse, error) {
	var resp RunNowResponse
	status, err := c.do(ctx, http.MethodPost, "/api/run-now", &resp)
	if err != nil {
		return RunNowResponse{}, err
	}
	if status != http.StatusOK && status != http.StatusAccepted && status != http.StatusConflict {
		return RunNowResponse{}, fmt.Errorf("run-now: unexpected status %d", status)
	}
	return resp, nil
}

// Cancel asks the daemon to abort the in-flight run. It reports false when
// no run was active.
func (c *Client) Cancel(ctx context.Context) (bool, error) {
	var resp map[string]string
	status, err := c.do(ctx, http.MethodPost, "/api/cancel", &resp)
	if err != nil {
		if status == http.StatusConflict {
			return false, nil
		}
		return false, err
	}
	switch status {
	case http.StatusAccepted, http.StatusOK:
		return true, nil
	case http.StatusConflict:
		return false, nil
	default:
		return false, fmt.Errorf("cancel: unexpected status %d", status)
	}
}

// Status fetches the current manager status.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var resp StatusResponse
	status, err := c.do(ctx, http.MethodGet, "/api/status", &resp)
	if err != nil {
		return StatusResponse{}, err
	}
	if status != http.StatusOK {
		return StatusResponse{}, fmt.Errorf("status: unexpected status %d", status)
	}
	return resp, nil
}

// Runs fetches run history, newest first.
func (c *Client) Runs(ctx context.Context, limit int, states ...string) ([]RunEntry, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	for _, state := range states {
		if trimmed := strings.TrimSpace(state); trimmed != "" {
			query.Add("state", trimmed)
		}
	}
	path := "/api/runs"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var resp RunsResponse
	status, err := c.do(ctx, http.MethodGet, path, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("runs: unexpected status %d", status)
	}
	return resp.Runs, nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) (int, error) {
	if c.baseURL == "" {
		return 0, fmt.Errorf("%w: api bind not configured", ErrDaemonUnavailable)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDaemonUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return resp.StatusCode, errors.New("daemon rejected the api token")
	}
	if len(body) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		var apiErr ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return resp.StatusCode, errors.New(apiErr.Error)
		}
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}
