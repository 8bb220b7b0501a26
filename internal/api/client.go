package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnauthorized is returned when the backend rejects the bearer token.
var ErrUnauthorized = errors.New("unauthorized")

// TokenSource provides the current bearer token ("" when logged out).
type TokenSource interface {
	Token() string
}

// Error is a backend failure response. Message is the backend's
// human-readable `message` field, surfaced verbatim to the user.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// Options tune a Client beyond its required fields.
type Options struct {
	HTTPClient      *http.Client
	MutationTimeout time.Duration // applied to mutating calls; default 10s
	OnUnauthorized  func()        // invoked once per 401 response
}

// Client is the dashboard's REST client for the pharmacy backend. Every
// request carries the current bearer token; a 401 triggers the configured
// unauthorized hook (typically the auth store's Logout).
type Client struct {
	baseURL         string
	httpc           *http.Client
	tokens          TokenSource
	mutationTimeout time.Duration
	onUnauthorized  func()
}

// NewClient creates a Client for the given base URL (including the /api
// prefix).
func NewClient(baseURL string, tokens TokenSource, opts Options) *Client {
	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = &http.Client{}
	}
	timeout := opts.MutationTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		httpc:           httpc,
		tokens:          tokens,
		mutationTimeout: timeout,
		onUnauthorized:  opts.OnUnauthorized,
	}
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// do issues one request. A non-nil body is JSON-encoded; a non-nil out is
// JSON-decoded from the response. Mutating calls get the mutation timeout.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if method != http.MethodGet {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.mutationTimeout)
		defer cancel()
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.tokens.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		var envelope struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
			apiErr.Message = envelope.Message
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
