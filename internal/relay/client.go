package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseBytes int64 = 1 << 20 // 1 MiB

// Credential is the session material the backend returns on auth success.
type Credential struct {
	Access  string          `json:"access"`
	Refresh string          `json:"refresh,omitempty"`
	User    json.RawMessage `json:"user,omitempty"`
}

// Client relays constructed payloads to the remote commerce backend.
type Client struct {
	baseURL      string
	client       *http.Client
	formFallback bool
}

// Option configures the Client during construction.
type Option func(*Client)

// WithFormFallback enables the one-shot form-urlencoded retry for relays
// that opt in via PostWithFallback. Sign-up relays never retry: account
// creation is not idempotent on the backend.
func WithFormFallback(enabled bool) Option {
	return func(c *Client) {
		c.formFallback = enabled
	}
}

// NewClient constructs a relay client for the given backend base URL.
// An empty base URL is allowed; every call then fails with ErrNotConfigured.
func NewClient(baseURL string, client *http.Client, opts ...Option) *Client {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Post relays the payload as JSON and decodes the backend's session
// credential. A non-2xx response yields a *BackendError; the call is never
// retried.
func (c *Client) Post(ctx context.Context, path string, payload any) (*Credential, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode relay payload: %w", err)
	}

	return c.send(ctx, path, bytes.NewReader(body), "application/json")
}

// PostWithFallback behaves like Post, but when the backend rejects the JSON
// attempt and the fallback policy is enabled, it retries exactly once with
// the same fields form-url-encoded. The error of a failed retry reflects the
// second attempt, not the first. Transport failures are never retried.
func (c *Client) PostWithFallback(ctx context.Context, path string, payload any, form url.Values) (*Credential, error) {
	cred, err := c.Post(ctx, path, payload)
	if err == nil {
		return cred, nil
	}

	var backendErr *BackendError
	if !c.formFallback || form == nil || !errors.As(err, &backendErr) {
		return nil, err
	}

	return c.send(ctx, path, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

// Forward relays a request body verbatim and returns the backend's status and
// body untouched. Used for pass-through routes whose responses the gateway
// does not reshape.
func (c *Client) Forward(ctx context.Context, method, path string, body []byte, bearer string) (int, []byte, error) {
	if c.baseURL == "" {
		return 0, nil, ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create backend request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("call backend: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read backend response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}

func (c *Client) send(ctx context.Context, path string, body io.Reader, contentType string) (*Credential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create backend request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call backend: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read backend response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &BackendError{Status: resp.StatusCode, Body: respBody}
	}

	var cred Credential
	if err := json.Unmarshal(respBody, &cred); err != nil {
		return nil, fmt.Errorf("decode backend response: %w", err)
	}

	return &cred, nil
}
