// Package transport is the single outbound HTTP path to the backend.
// It attaches the bearer credential to every request, classifies every
// failure exactly once, and transparently recovers from an expired
// access token by refreshing and replaying the request one time.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/supervisorapp/supervisor-client/internal"
	"github.com/supervisorapp/supervisor-client/internal/credentials"
	"github.com/supervisorapp/supervisor-client/internal/notify"
)

// DefaultRefreshPath is the backend endpoint that mints a new access
// token from a refresh token.
const DefaultRefreshPath = "/token/refresh/"

type Config struct {
	BaseURL string
	Timeout time.Duration
	// RefreshPath overrides DefaultRefreshPath when set.
	RefreshPath string
	// RedirectDelay is how long the session-expired notification is
	// shown before the navigator is asked to redirect.
	RedirectDelay time.Duration
	// NetworkErrorDuration keeps connectivity errors on screen longer
	// than ordinary failures.
	NetworkErrorDuration time.Duration
}

// Client is the shared transport every resource operation goes
// through. Safe for concurrent use.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	refreshURL    string
	creds         credentials.Store
	notifier      notify.Notifier
	navigator     notify.Navigator
	logger        *slog.Logger
	redirectDelay time.Duration
	networkErrDur time.Duration

	// refreshGroup coalesces concurrent refresh attempts so a burst
	// of 401s produces a single refresh call.
	refreshGroup singleflight.Group
}

func New(cfg Config, creds credentials.Store, notifier notify.Notifier, navigator notify.Navigator, logger *slog.Logger) (*Client, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("base URL %q is not absolute", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = internal.DefaultAPITimeout
	}

	refreshPath := cfg.RefreshPath
	if refreshPath == "" {
		refreshPath = DefaultRefreshPath
	}

	base := strings.TrimRight(cfg.BaseURL, "/")

	networkErrDur := cfg.NetworkErrorDuration
	if networkErrDur <= 0 {
		networkErrDur = 8 * time.Second
	}

	redirectDelay := cfg.RedirectDelay
	if redirectDelay <= 0 {
		redirectDelay = internal.DefaultRedirectDelay
	}

	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       base,
		refreshURL:    base + refreshPath,
		creds:         creds,
		notifier:      notifier,
		navigator:     navigator,
		logger:        logger,
		redirectDelay: redirectDelay,
		networkErrDur: networkErrDur,
	}, nil
}

// Params are query parameters. Nil and empty values are stripped
// before transmission, matching what the backend filters expect.
type Params map[string]any

func (p Params) encode() string {
	if len(p) == 0 {
		return ""
	}
	values := url.Values{}
	for key, val := range p {
		if val == nil {
			continue
		}
		s := fmt.Sprint(val)
		if s == "" {
			continue
		}
		values.Set(key, s)
	}
	return values.Encode()
}

// Response is a successful (2xx) reply with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

// attempt carries one outbound request in replayable form. The
// authRetried flag is the one-shot marker that keeps a replayed
// request from re-entering the refresh branch.
type attempt struct {
	method      string
	url         string
	body        []byte
	contentType string
	authRetried bool
}

func (c *Client) newAttempt(method, path string, params Params, body any) (*attempt, error) {
	fullURL := c.baseURL + path
	if q := params.encode(); q != "" {
		fullURL += "?" + q
	}

	att := &attempt{method: method, url: fullURL}
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		att.body = encoded
		att.contentType = "application/json"
	}
	return att, nil
}

func (att *attempt) request(ctx context.Context) (*http.Request, error) {
	var reader io.Reader
	if att.body != nil {
		reader = bytes.NewReader(att.body)
	}

	req, err := http.NewRequestWithContext(ctx, att.method, att.url, reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if att.contentType != "" {
		req.Header.Set("Content-Type", att.contentType)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

func (c *Client) Get(ctx context.Context, path string, params Params) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, params, nil)
}

func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, nil, body)
}

func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, nil, body)
}

func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPatch, path, nil, body)
}

func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// Do sends one request through the full interceptor chain.
func (c *Client) Do(ctx context.Context, method, path string, params Params, body any) (*Response, error) {
	att, err := c.newAttempt(method, path, params, body)
	if err != nil {
		return nil, c.failConfiguration(err)
	}
	return c.execute(ctx, att)
}

func (c *Client) execute(ctx context.Context, att *attempt) (*Response, error) {
	req, err := att.request(ctx)
	if err != nil {
		return nil, c.failConfiguration(err)
	}

	token := c.creds.AccessToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Debug("api request",
		"method", att.method,
		"url", att.url,
		"has_auth", token != "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.notifier.Notify(notify.Notification{
			Severity: notify.SeverityNegative,
			Message:  "connection error",
			Caption:  "could not reach the server, check your network connection",
			Timeout:  c.networkErrDur,
		})
		return nil, internal.NewNetworkError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.notifier.Notify(notify.Notification{
			Severity: notify.SeverityNegative,
			Message:  "connection error",
			Caption:  "the server reply could not be read",
			Timeout:  c.networkErrDur,
		})
		return nil, internal.NewNetworkError(err)
	}

	c.logger.Debug("api response", "status", resp.StatusCode, "url", att.url)

	if resp.StatusCode < http.StatusBadRequest {
		return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: raw}, nil
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return c.recoverUnauthorized(ctx, att, raw)
	}

	return nil, c.surfaceError(resp.StatusCode, raw)
}

// recoverUnauthorized holds the retry-once contract: an attempt that
// already replayed goes straight to forced logout, otherwise one
// refresh is made and the attempt replayed with the new token.
func (c *Client) recoverUnauthorized(ctx context.Context, att *attempt, raw []byte) (*Response, error) {
	if att.authRetried {
		c.logger.Warn("token refresh already attempted, logging out", "url", att.url)
		c.logoutSequence()
		return nil, internal.NewAuthExpiredError(internal.NewHTTPStatusError(http.StatusUnauthorized, raw))
	}
	att.authRetried = true

	if c.creds.RefreshToken() == "" {
		c.logger.Warn("no refresh token available, logging out")
		c.logoutSequence()
		return nil, internal.NewAuthExpiredError(errors.New("no refresh token held"))
	}

	if err := c.RefreshAccessToken(ctx); err != nil {
		c.logger.Error("token refresh failed", "error", err)
		c.logoutSequence()
		return nil, internal.NewAuthExpiredError(err)
	}

	// Replay picks up the freshly stored access token.
	return c.execute(ctx, att)
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// RefreshAccessToken exchanges the held refresh token for a new
// access token, storing the rotated refresh token when the backend
// issues one. Concurrent callers share a single refresh call.
func (c *Client) RefreshAccessToken(ctx context.Context) error {
	_, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		refreshToken := c.creds.RefreshToken()
		if refreshToken == "" {
			return nil, errors.New("no refresh token held")
		}

		payload, err := json.Marshal(map[string]string{"refresh": refreshToken})
		if err != nil {
			return nil, err
		}

		// The refresh call bypasses the interceptor chain: it must
		// not itself trigger a refresh.
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.refreshURL, bytes.NewReader(payload))
		if err != nil {
			return nil, internal.NewConfigurationError(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, internal.NewNetworkError(err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, internal.NewNetworkError(err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, internal.NewHTTPStatusError(resp.StatusCode, raw)
		}

		var out refreshResponse
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("decode refresh response: %w", err)
		}
		if out.Access == "" {
			return nil, errors.New("refresh response carried no access token")
		}

		if err := c.creds.SaveAccessToken(out.Access); err != nil {
			return nil, err
		}
		if out.Refresh != "" {
			// Rotation: the backend invalidated the old refresh token.
			if err := c.creds.SaveRefreshToken(out.Refresh); err != nil {
				return nil, err
			}
			c.logger.Debug("refresh token rotated")
		}

		c.logger.Debug("access token refreshed")
		return out.Access, nil
	})
	return err
}

func (c *Client) failConfiguration(err error) error {
	c.notifier.Notify(notify.Notification{
		Severity: notify.SeverityNegative,
		Message:  "request configuration error",
		Caption:  err.Error(),
	})
	return internal.NewConfigurationError(err)
}

// surfaceError maps a non-401 error status to exactly one
// notification and a typed error.
func (c *Client) surfaceError(status int, raw []byte) error {
	switch status {
	case http.StatusBadRequest:
		verr := internal.NewValidationError(status, raw)
		message := verr.Body.FirstMessage()
		if message == "" {
			message = "invalid request"
		}
		c.notifier.Notify(notify.Notification{
			Severity: notify.SeverityNegative,
			Message:  message,
			Caption:  "check the submitted data",
		})
		return verr

	case http.StatusForbidden:
		c.notifier.Notify(notify.Notification{
			Severity: notify.SeverityNegative,
			Message:  "access denied",
			Caption:  "you do not have the required permissions",
		})
		return internal.NewHTTPStatusError(status, raw)

	case http.StatusNotFound:
		serr := internal.NewHTTPStatusError(status, raw)
		caption := serr.Body.Detail
		if caption == "" {
			caption = "the requested resource does not exist"
		}
		c.notifier.Notify(notify.Notification{
			Severity: notify.SeverityWarning,
			Message:  "resource not found",
			Caption:  caption,
		})
		return serr

	case http.StatusUnprocessableEntity:
		verr := internal.NewValidationError(status, raw)
		caption := verr.Body.Detail
		if caption == "" {
			caption = "check the form data"
		}
		c.notifier.Notify(notify.Notification{
			Severity: notify.SeverityNegative,
			Message:  "validation failed",
			Caption:  caption,
		})
		return verr

	case http.StatusTooManyRequests:
		c.notifier.Notify(notify.Notification{
			Severity: notify.SeverityWarning,
			Message:  "too many requests",
			Caption:  "please wait a moment and try again",
		})
		return internal.NewHTTPStatusError(status, raw)

	case http.StatusInternalServerError:
		c.notifier.Notify(notify.Notification{
			Severity: notify.SeverityNegative,
			Message:  "server error",
			Caption:  "something went wrong on the server",
		})
		return internal.NewHTTPStatusError(status, raw)

	case http.StatusServiceUnavailable:
		c.notifier.Notify(notify.Notification{
			Severity: notify.SeverityNegative,
			Message:  "service unavailable",
			Caption:  "the server is temporarily unavailable",
		})
		return internal.NewHTTPStatusError(status, raw)

	default:
		serr := internal.NewHTTPStatusError(status, raw)
		message := serr.Body.FirstMessage()
		if message == "" {
			message = fmt.Sprintf("error %d", status)
		}
		c.notifier.Notify(notify.Notification{
			Severity: notify.SeverityNegative,
			Message:  message,
			Caption:  "an error occurred",
		})
		return serr
	}
}

// logoutSequence clears the local session after an unrecoverable auth
// failure and, when the user is not already on an auth view, notifies
// and schedules the redirect to login.
func (c *Client) logoutSequence() {
	if err := c.creds.Clear(); err != nil {
		c.logger.Error("failed to clear credential store", "error", err)
	}

	current := c.navigator.CurrentPath()
	if current == "/login" || strings.HasPrefix(current, "/auth") {
		return
	}

	c.notifier.Notify(notify.Notification{
		Severity: notify.SeverityWarning,
		Message:  "session expired",
		Caption:  "please sign in again",
		Timeout:  3 * time.Second,
	})

	navigator := c.navigator
	time.AfterFunc(c.redirectDelay, func() {
		navigator.RedirectToLogin(current)
	})
}
