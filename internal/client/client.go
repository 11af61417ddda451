// Package client talks to a running Asha server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"asha/internal/responder"
	"asha/internal/server"
)

// Client calls the Asha HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for baseURL, e.g. http://localhost:8000 or
// https://host/api. A zero timeout means 3 minutes.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Ask sends a message with the prior conversation lines.
func (c *Client) Ask(ctx context.Context, message string, history []string) (responder.Reply, error) {
	if history == nil {
		history = []string{}
	}
	var out server.AskResponse
	err := c.do(ctx, http.MethodPost, "/ask", server.AskRequest{Message: message, History: history}, &out)
	if err != nil {
		return out.Response, err
	}
	return out.Response, nil
}

// Suggestions returns the starter prompts.
func (c *Client) Suggestions(ctx context.Context) ([]string, error) {
	var out server.SuggestionsResponse
	if err := c.do(ctx, http.MethodPost, "/suggestions", nil, &out); err != nil {
		return nil, err
	}
	return out.Suggestions, nil
}

// StageSuggestions returns the question bank for a career stage such as
// "beginner", "mid-career" or "advanced".
func (c *Client) StageSuggestions(ctx context.Context, stage string) ([]string, error) {
	var out server.SuggestionsResponse
	if err := c.do(ctx, http.MethodGet, "/suggestions?stage="+url.QueryEscape(stage), nil, &out); err != nil {
		return nil, err
	}
	return out.Suggestions, nil
}

// Health returns nil when the server reports ok.
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return err
	}
	if out.Status != "ok" {
		return fmt.Errorf("server unhealthy: status %q", out.Status)
	}
	return nil
}

// do sends body as JSON and decodes the reply into out. On a non-2xx status
// out is still decoded when possible, so callers can read a fallback reply.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	decodeErr := json.Unmarshal(data, out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &apiErr)
		if apiErr.Error == "" {
			apiErr.Error = strings.TrimSpace(string(data))
		}
		return &StatusError{Code: resp.StatusCode, Message: apiErr.Error}
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	return nil
}

// StatusError is a non-2xx reply.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}
