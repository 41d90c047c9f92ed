// Package api implements the HTTP client for the platform's REST surface.
// Every endpoint answers with the same success/data/error envelope; the
// client normalizes transport failures, envelope failures, and expired
// sessions into typed errors.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/enone-pay/enone/internal/notification"
	"github.com/enone-pay/enone/internal/session"
)

var (
	// ErrAuthRequired reports a call that needs a bearer token while none
	// is stored.
	ErrAuthRequired = errors.New("authentication required")

	// ErrSessionExpired reports a 401 or 403 on any call but login. The
	// client has already cleared the token and sent the user to login;
	// callers should stop their flow quietly.
	ErrSessionExpired = errors.New("session expired")
)

// loginPath is exempt from session-expiry interception so that wrong
// credentials surface as a normal error instead of a silent redirect.
const loginPath = "/api/auth/login"

// CallOptions shape a single request.
type CallOptions struct {
	// Method defaults to GET without a body and POST with one.
	Method string

	// Body is marshalled as the JSON request body when non-nil.
	Body any

	// Auth attaches the stored bearer token.
	Auth bool

	// Idempotent attaches a fresh Idempotency-Key header.
	Idempotent bool
}

// Client calls the platform API.
type Client struct {
	baseURL string
	http    *http.Client
	store   *session.Store
	nav     notification.Navigator
	logger  *slog.Logger
}

// New constructs a client. baseURL carries the platform prefix, for example
// http://localhost:8080/enone.
func New(baseURL string, store *session.Store, nav notification.Navigator, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		store:   store,
		nav:     nav,
		logger:  logger,
	}
}

// SetHTTPClient swaps the underlying transport, mainly for tests.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.http = hc
}

// Call performs a request against path and returns the decoded envelope. A
// successful envelope on a 2xx status returns nil error; anything else
// returns a *Error, ErrSessionExpired, or a transport error.
func (c *Client) Call(ctx context.Context, path string, opts CallOptions) (Envelope, error) {
	method := opts.Method
	if method == "" {
		if opts.Body != nil {
			method = http.MethodPost
		} else {
			method = http.MethodGet
		}
	}

	var body io.Reader
	if opts.Body != nil {
		payload, err := json.Marshal(opts.Body)
		if err != nil {
			return Envelope{}, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return Envelope{}, fmt.Errorf("build request: %w", err)
	}
	if opts.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if opts.Idempotent {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}
	if opts.Auth {
		tok, ok, err := c.store.Token(ctx)
		if err != nil {
			return Envelope{}, fmt.Errorf("read token: %w", err)
		}
		if !ok || tok == "" {
			return Envelope{}, ErrAuthRequired
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Envelope{}, fmt.Errorf("call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Envelope{}, fmt.Errorf("read response: %w", err)
	}

	if (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) && path != loginPath {
		return Envelope{}, c.expireSession(ctx, path, resp.StatusCode)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// Non-JSON body: trust the status line, keeping the raw text as
		// the failure message when the server sent one.
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return Envelope{Success: true, Data: raw}, nil
		}
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return Envelope{}, &Error{Status: resp.StatusCode, Message: msg}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && env.Success {
		return env, nil
	}
	return env, &Error{Status: resp.StatusCode, Code: env.Code, Message: env.Reason(resp.StatusCode)}
}

// CallData performs Call and decodes the data payload into out. A nil out
// discards the payload.
func (c *Client) CallData(ctx context.Context, path string, opts CallOptions, out any) error {
	env, err := c.Call(ctx, path, opts)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return env.Decode(out)
}

// expireSession clears the stored token and sends the user back to login.
func (c *Client) expireSession(ctx context.Context, path string, status int) error {
	if c.logger != nil {
		c.logger.Warn("session expired", "path", path, "status", status)
	}
	if err := c.store.ClearToken(ctx); err != nil && c.logger != nil {
		c.logger.Error("clear token", "error", err)
	}
	if c.nav != nil {
		c.nav.GoTo(notification.PageLogin)
	}
	return ErrSessionExpired
}
