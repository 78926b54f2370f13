package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/neurolearn/marketplace/internal/core/domain"
)

// ErrNoSession is returned by operations that need an authenticated session.
var ErrNoSession = errors.New("no active session")

// Theme is the persisted colour scheme preference.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"

	DefaultTheme = ThemeSystem
)

// ParseTheme validates a stored or user supplied theme name.
func ParseTheme(s string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return t, nil
	}
	return "", fmt.Errorf("unknown theme %q", s)
}

// State is an immutable snapshot of the session.
type State struct {
	Loading       bool
	Authenticated bool
	User          *domain.User
}

// Session is the client's authentication context. It is created explicitly
// and passed to the components that need it. Safe for concurrent use.
type Session struct {
	storage Storage
	log     zerolog.Logger

	mu      sync.RWMutex
	loading bool
	token   string
	user    *domain.User
	theme   Theme
}

// New returns a session that reports Loading until Init completes.
func New(storage Storage, log zerolog.Logger) *Session {
	return &Session{storage: storage, log: log, loading: true, theme: DefaultTheme}
}

// Init rehydrates the session from storage. Inconsistent persisted state
// (a token without a user, or an unreadable user) is cleared.
func (s *Session) Init(ctx context.Context) error {
	token, hasToken, err := s.storage.Get(ctx, KeyAccessToken)
	if err != nil {
		s.finishLoading(nil, "", DefaultTheme)
		return fmt.Errorf("read token: %w", err)
	}
	rawUser, hasUser, err := s.storage.Get(ctx, KeyUser)
	if err != nil {
		s.finishLoading(nil, "", DefaultTheme)
		return fmt.Errorf("read user: %w", err)
	}

	theme := DefaultTheme
	if raw, ok, err := s.storage.Get(ctx, KeyTheme); err == nil && ok {
		if t, err := ParseTheme(raw); err == nil {
			theme = t
		}
	}

	var user *domain.User
	switch {
	case hasToken && hasUser && token != "":
		user = &domain.User{}
		if err := json.Unmarshal([]byte(rawUser), user); err != nil {
			s.log.Warn().Err(err).Msg("discarding unreadable persisted user")
			user = nil
		}
	case !hasToken && !hasUser:
	default:
		s.log.Warn().Bool("token", hasToken).Bool("user", hasUser).Msg("discarding partial persisted session")
	}

	if user == nil && (hasToken || hasUser) {
		token = ""
		if err := s.clearCredentials(ctx); err != nil {
			s.finishLoading(nil, "", theme)
			return err
		}
	}

	s.finishLoading(user, token, theme)
	return nil
}

func (s *Session) finishLoading(user *domain.User, token string, theme Theme) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	s.token = token
	s.theme = theme
	s.loading = false
}

// Loading reports whether Init has not completed yet.
func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Token returns the bearer token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the cached user, or nil when signed out.
func (s *Session) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneUser(s.user)
}

func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticatedLocked()
}

func (s *Session) authenticatedLocked() bool {
	return s.token != "" && s.user != nil
}

// Permissions derives the capability table from the current user's roles.
func (s *Session) Permissions() domain.Permissions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Permissions()
}

// Snapshot returns the current state for guard evaluation.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Loading:       s.loading,
		Authenticated: s.authenticatedLocked(),
		User:          cloneUser(s.user),
	}
}

// Begin stores the credentials of a successful login.
func (s *Session) Begin(ctx context.Context, token string, user *domain.User) error {
	if token == "" || user == nil {
		return errors.New("begin session: token and user are required")
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Set(ctx, KeyAccessToken, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	if err := s.storage.Set(ctx, KeyUser, string(raw)); err != nil {
		_ = s.storage.Remove(ctx, KeyAccessToken)
		return fmt.Errorf("persist user: %w", err)
	}
	s.token = token
	s.user = cloneUser(user)
	s.loading = false
	return nil
}

// SetUser replaces the cached user after a profile refresh.
func (s *Session) SetUser(ctx context.Context, user *domain.User) error {
	if user == nil {
		return errors.New("set user: user is required")
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authenticatedLocked() {
		return ErrNoSession
	}
	if err := s.storage.Set(ctx, KeyUser, string(raw)); err != nil {
		return fmt.Errorf("persist user: %w", err)
	}
	s.user = cloneUser(user)
	return nil
}

// Teardown signs the session out. In-memory state is always cleared; the
// returned error reports storage failures only. The theme survives.
func (s *Session) Teardown(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.loading = false
	s.mu.Unlock()

	return s.clearCredentials(ctx)
}

func (s *Session) clearCredentials(ctx context.Context) error {
	return errors.Join(
		s.storage.Remove(ctx, KeyAccessToken),
		s.storage.Remove(ctx, KeyUser),
	)
}

func (s *Session) Theme() Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

func (s *Session) SetTheme(ctx context.Context, t Theme) error {
	t, err := ParseTheme(string(t))
	if err != nil {
		return err
	}
	if err := s.storage.Set(ctx, KeyTheme, string(t)); err != nil {
		return fmt.Errorf("persist theme: %w", err)
	}
	s.mu.Lock()
	s.theme = t
	s.mu.Unlock()
	return nil
}

// Guard evaluates the route guard against the current state.
func (s *Session) Guard(path string, req Requirement) Decision {
	return Evaluate(s.Snapshot(), path, req)
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	c.Roles = append(domain.Roles(nil), u.Roles...)
	return &c
}
