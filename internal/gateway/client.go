// Package gateway is the single chokepoint for every outbound call to the
// upstream API. It attaches credentials, enforces the transport timeout and
// normalizes every outcome, success or failure, into one response envelope.
package gateway

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

	"log/slog"

	"github.com/google/uuid"

	"github.com/meridian-logistics/backoffice/internal/session"
)

// DefaultTimeout is the fixed upper bound on any call. Exceeding it is
// treated like any other transport failure.
const DefaultTimeout = 30 * time.Second

const (
	headerAuthorization = "Authorization"
	// headerLegacyAuth carries the same token under the pre-migration name
	// for backward compatibility with older upstream deployments.
	headerLegacyAuth   = "X-Auth-Token"
	headerVisitorToken = "X-Visitor-Token"
	// headerOriginHint is a diagnostic header attached unconditionally. Its
	// value is a constant placeholder; a network-sourced geolocation hint is
	// an optional no-op by design.
	headerOriginHint = "X-Origin-Hint"
	headerRequestID  = "X-Request-ID"

	originHintPlaceholder = "unresolved"
)

// CredentialSource provides a synchronous read of the current tokens. The
// session store implements it; Refresh on the store rotates tokens live.
type CredentialSource interface {
	Credentials() session.Credentials
}

// Config collects the gateway dependencies.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	Credentials CredentialSource
	Notifier    Notifier
	Logger      *slog.Logger
}

// Client issues normalized calls against the upstream API.
type Client struct {
	base     string
	http     *http.Client
	creds    CredentialSource
	notifier Notifier
	logger   *slog.Logger
}

// NewClient constructs a Client from config, applying defaults.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, errors.New("gateway: base url required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("gateway: parse base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		base:     base,
		http:     &http.Client{Timeout: timeout},
		creds:    cfg.Credentials,
		notifier: notifier,
		logger:   logger,
	}, nil
}

// RequestOption customizes a single call.
type RequestOption func(*http.Request)

// WithHeader sets an extra header on the outgoing request.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// Get issues a read. Domain-level failures on reads raise a user-facing
// notification centrally here; mutations never do.
func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*Envelope, error) {
	return c.do(ctx, http.MethodGet, path, nil, opts...)
}

func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*Envelope, error) {
	return c.do(ctx, http.MethodPost, path, body, opts...)
}

func (c *Client) Put(ctx context.Context, path string, body any, opts ...RequestOption) (*Envelope, error) {
	return c.do(ctx, http.MethodPut, path, body, opts...)
}

func (c *Client) Patch(ctx context.Context, path string, body any, opts ...RequestOption) (*Envelope, error) {
	return c.do(ctx, http.MethodPatch, path, body, opts...)
}

func (c *Client) Delete(ctx context.Context, path string, body any, opts ...RequestOption) (*Envelope, error) {
	return c.do(ctx, http.MethodDelete, path, body, opts...)
}

func (c *Client) do(ctx context.Context, method, path string, body any, opts ...RequestOption) (*Envelope, error) {
	isRead := method == http.MethodGet
	correlation := uuid.NewString()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("gateway: encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+"/"+strings.TrimLeft(path, "/"), reader)
	if err != nil {
		return nil, fmt.Errorf("gateway: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerRequestID, correlation)
	c.attachHeaders(req)
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// Caller-driven cancellation propagates as-is so obsoleted
			// requests never feed stale state.
			return nil, ctx.Err()
		}
		msg := transportMessage(err)
		if isRead {
			c.notifier.Notify(KindWarning, "offline", "no network connection")
		}
		c.logger.Warn("gateway transport failure",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", msg))
		return &Envelope{
			Online:        false,
			Err:           true,
			Message:       msg,
			Request:       body,
			CorrelationID: correlation,
		}, nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Envelope{
			Online:        false,
			StatusCode:    resp.StatusCode,
			Err:           true,
			Message:       err.Error(),
			Request:       body,
			CorrelationID: correlation,
		}, nil
	}

	parsed, objectBody := parseBody(raw)

	switch {
	case resp.StatusCode == statusSessionExpired && strings.Contains(strings.ToLower(parsed.Message), SessionExpiredMarker):
		return nil, ErrSessionExpired
	case resp.StatusCode == http.StatusNotFound:
		c.notifier.Notify(KindWarning, "not found", messageOr(parsed.Message, "the requested record does not exist"))
		return nil, ErrNotFound
	}

	if !objectBody {
		if isRead {
			c.notifier.Notify(KindError, "error", "unexpected server response")
		}
		c.logger.Error("gateway protocol violation",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode))
		return nil, ErrMalformedPayload
	}

	env := &Envelope{
		Online:        true,
		StatusCode:    resp.StatusCode,
		Data:          json.RawMessage(raw),
		Err:           parsed.Error || resp.StatusCode >= 400,
		Title:         parsed.Title,
		Message:       parsed.Message,
		Request:       body,
		CorrelationID: correlation,
	}
	if env.Err && isRead {
		c.notifier.Notify(KindError, messageOr(parsed.Title, "error"), messageOr(parsed.Message, "the request failed"))
	}
	return env, nil
}

// statusSessionExpired is part of the fixed session-expiry contract with the
// upstream, together with SessionExpiredMarker.
const statusSessionExpired = 419

func (c *Client) attachHeaders(req *http.Request) {
	// Order is fixed: diagnostic hint first, then credentials.
	req.Header.Set(headerOriginHint, originHintPlaceholder)
	if c.creds == nil {
		return
	}
	creds := c.creds.Credentials()
	if creds.Token != "" {
		req.Header.Set(headerAuthorization, "Bearer "+creds.Token)
		req.Header.Set(headerLegacyAuth, creds.Token)
	}
	if creds.VisitorToken != "" {
		req.Header.Set(headerVisitorToken, creds.VisitorToken)
	}
}

// parseBody reports whether the payload is a structured object and extracts
// the error fields when it is.
func parseBody(raw []byte) (serverBody, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return serverBody{}, false
	}
	var parsed serverBody
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return serverBody{}, false
	}
	return parsed, true
}

// transportMessage strips the library prefix net/http wraps around transport
// errors, keeping only the underlying cause.
func transportMessage(err error) string {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err.Error()
	}
	return err.Error()
}

func messageOr(msg, fallback string) string {
	if strings.TrimSpace(msg) == "" {
		return fallback
	}
	return msg
}
