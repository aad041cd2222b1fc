// Package remote is an HTTP client for a session-store API served by another funnel
// instance (or any service speaking the same /api/quiz-session contract).
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/funnel/internal/logging"
	"github.com/aretw0/funnel/pkg/domain"
)

// SessionPath is the route of the session-store API.
const SessionPath = "/api/quiz-session"

// Client implements ports.SessionStore and ports.SessionReader over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the default transport.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithLogger configures a logger for the Client.
func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type createResponse struct {
	ID string `json:"id"`
}

type updateRequest struct {
	ID string `json:"id"`
	domain.SessionUpdate
}

// Create posts the campaign parameters and returns the new session ID.
func (c *Client) Create(ctx context.Context, utm domain.UTM) (string, error) {
	var out createResponse
	if err := c.do(ctx, http.MethodPost, SessionPath, utm, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("session store returned no id")
	}
	return out.ID, nil
}

// Update patches a session record.
func (c *Client) Update(ctx context.Context, id string, update domain.SessionUpdate) error {
	return c.do(ctx, http.MethodPatch, SessionPath, updateRequest{ID: id, SessionUpdate: update}, nil)
}

// Get fetches a session record.
func (c *Client) Get(ctx context.Context, id string) (*domain.RemoteSession, error) {
	var rec domain.RemoteSession
	if err := c.do(ctx, http.MethodGet, SessionPath+"/"+url.PathEscape(id), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
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
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("session store request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrSessionNotFound
	case resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Debug("Session store rejected request", "method", method, "status", resp.StatusCode)
		return fmt.Errorf("session store %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
