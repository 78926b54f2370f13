// Package client is the typed HTTP client of the marketplace auth API. It
// keeps a session.Session in sync with the server: logging in begins the
// session, an expired token tears it down.
package client

import (
	"bytes"
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

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/neurolearn/marketplace/internal/core/domain"
	"github.com/neurolearn/marketplace/internal/session"
)

const (
	defaultTimeout        = 10 * time.Second
	defaultMaxRetries     = 3
	defaultInitialBackoff = 200 * time.Millisecond
	defaultMaxBackoff     = 2 * time.Second
	maxErrorBody          = 64 << 10
)

// Client calls the auth API on behalf of a session.
type Client struct {
	baseURL string
	http    *http.Client
	session *session.Session
	log     zerolog.Logger

	timeout          time.Duration
	maxRetries       int
	initialBackoff   time.Duration
	maxBackoff       time.Duration
	locale           string
	onSessionExpired func()
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the deadline of a single attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetry sets how many times a transient failure is retried and the
// exponential backoff bounds between attempts.
func WithRetry(maxRetries int, initial, max time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.initialBackoff = initial
		c.maxBackoff = max
	}
}

// WithLocale sets the Accept-Language sent with every request.
func WithLocale(locale string) Option {
	return func(c *Client) { c.locale = locale }
}

// OnSessionExpired registers fn to run after an authenticated request was
// rejected and the session torn down, typically a redirect to the login page.
func OnSessionExpired(fn func()) Option {
	return func(c *Client) { c.onSessionExpired = fn }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New returns a Client for the API at baseURL bound to sess.
func New(baseURL string, sess *session.Session, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}
	if sess == nil {
		return nil, errors.New("session is required")
	}

	c := &Client{
		baseURL:        strings.TrimRight(u.String(), "/"),
		http:           &http.Client{},
		session:        sess,
		log:            zerolog.Nop(),
		timeout:        defaultTimeout,
		maxRetries:     defaultMaxRetries,
		initialBackoff: defaultInitialBackoff,
		maxBackoff:     defaultMaxBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// --- Wire types ---

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
}

type UpdateProfileRequest struct {
	Name   *string `json:"name,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
}

type UpdateAccessRequest struct {
	Roles  []string `json:"roles,omitempty"`
	Active *bool    `json:"active,omitempty"`
}

type ListUsersParams struct {
	Role   string
	Search string
	Active *bool
	Page   int
	Limit  int
}

// Account is a user together with the permissions derived by the server.
type Account struct {
	User        *domain.User       `json:"user"`
	Permissions domain.Permissions `json:"permissions"`
}

type LoginResponse struct {
	Token       string             `json:"token"`
	ExpiresAt   time.Time          `json:"expires_at"`
	User        *domain.User       `json:"user"`
	Permissions domain.Permissions `json:"permissions"`
}

type UserPage struct {
	Items      []*domain.User `json:"items"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"total_pages"`
}

type errorEnvelope struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields"`
}

// --- Endpoints ---

// Register creates an account. It does not sign in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Account, error) {
	var out Account
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login authenticates and begins the session.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out, false); err != nil {
		return nil, err
	}
	if err := c.session.Begin(ctx, out.Token, out.User); err != nil {
		return nil, fmt.Errorf("begin session: %w", err)
	}
	return &out, nil
}

// Logout revokes the token server-side and always tears the session down.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, true)
	if IsKind(err, KindSessionExpired) {
		return nil
	}
	if tdErr := c.session.Teardown(ctx); tdErr != nil {
		c.log.Warn().Err(tdErr).Msg("session teardown failed")
	}
	return err
}

// Profile fetches the current account and refreshes the cached user.
func (c *Client) Profile(ctx context.Context) (*Account, error) {
	var out Account
	if err := c.do(ctx, http.MethodGet, "/auth/profile", nil, &out, true); err != nil {
		return nil, err
	}
	c.refreshUser(ctx, out.User)
	return &out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*Account, error) {
	var out Account
	if err := c.do(ctx, http.MethodPatch, "/auth/profile", req, &out, true); err != nil {
		return nil, err
	}
	c.refreshUser(ctx, out.User)
	return &out, nil
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	body := map[string]string{"current_password": current, "new_password": next}
	return c.do(ctx, http.MethodPost, "/auth/change-password", body, nil, true)
}

// DeleteAccount deletes the account after password confirmation and ends the session.
func (c *Client) DeleteAccount(ctx context.Context, password string) error {
	body := map[string]string{"password": password}
	if err := c.do(ctx, http.MethodDelete, "/auth/delete-account", body, nil, true); err != nil {
		return err
	}
	return c.session.Teardown(ctx)
}

func (c *Client) ListUsers(ctx context.Context, p ListUsersParams) (*UserPage, error) {
	q := url.Values{}
	if p.Role != "" {
		q.Set("role", p.Role)
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.Active != nil {
		q.Set("active", strconv.FormatBool(*p.Active))
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}

	path := "/auth/admin/users"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out UserPage
	if err := c.do(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateAccess(ctx context.Context, userID string, req UpdateAccessRequest) (*Account, error) {
	var out Account
	path := "/auth/admin/users/" + url.PathEscape(userID)
	if err := c.do(ctx, http.MethodPatch, path, req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) refreshUser(ctx context.Context, u *domain.User) {
	if u == nil {
		return
	}
	if err := c.session.SetUser(ctx, u); err != nil && !errors.Is(err, session.ErrNoSession) {
		c.log.Warn().Err(err).Msg("could not persist refreshed user")
	}
}

// --- Transport ---

// do performs one logical call with bounded retries. Transport errors,
// attempt timeouts and gateway statuses are retried; everything else is final.
func (c *Client) do(ctx context.Context, method, path string, in, out any, authenticated bool) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	attempt := 0
	op := func() error {
		attempt++
		return c.attempt(ctx, method, path, payload, out, authenticated)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialBackoff
	policy.Multiplier = 2
	policy.MaxInterval = c.maxBackoff
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0
	policy.Reset()

	notify := func(err error, wait time.Duration) {
		c.log.Debug().Err(err).
			Str("method", method).
			Str("path", path).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("retrying request")
	}

	err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.maxRetries)), ctx), notify)
	if err == nil {
		return nil
	}

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		apiErr = &Error{Kind: KindConnectivity, Err: err}
	}

	if apiErr.Status == http.StatusUnauthorized {
		if authenticated {
			c.expire(ctx)
			apiErr.Kind = KindSessionExpired
		} else {
			apiErr.Kind = KindInvalidCredentials
		}
	}
	return apiErr
}

func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, out any, authenticated bool) error {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, c.baseURL+path, body)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.locale != "" {
		req.Header.Set("Accept-Language", c.locale)
	}
	if authenticated {
		token := c.session.Token()
		if token == "" {
			return backoff.Permanent(&Error{Kind: KindSessionExpired, Status: http.StatusUnauthorized})
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		connErr := &Error{Kind: KindConnectivity, Err: err}
		if ctx.Err() != nil {
			// The caller gave up; retrying cannot help.
			return backoff.Permanent(connErr)
		}
		return connErr
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			if attemptCtx.Err() != nil {
				return &Error{Kind: KindConnectivity, Err: err}
			}
			return backoff.Permanent(&Error{Kind: KindServer, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)})
		}
		return nil
	}

	apiErr := decodeError(resp)
	if retryableStatus(resp.StatusCode) {
		return apiErr
	}
	return backoff.Permanent(apiErr)
}

func decodeError(resp *http.Response) *Error {
	e := &Error{Kind: KindFromStatus(resp.StatusCode), Status: resp.StatusCode}

	var env errorEnvelope
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if json.Unmarshal(raw, &env) == nil {
		e.Code = env.Code
		e.Message = env.Error
		e.Fields = env.Fields
	}
	return e
}

func (c *Client) expire(ctx context.Context) {
	if !c.session.Authenticated() {
		return
	}
	if err := c.session.Teardown(ctx); err != nil {
		c.log.Warn().Err(err).Msg("session teardown failed")
	}
	if c.onSessionExpired != nil {
		c.onSessionExpired()
	}
}
