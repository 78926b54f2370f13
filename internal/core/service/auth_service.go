package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/neurolearn/marketplace/internal/core/domain"
	"github.com/neurolearn/marketplace/internal/core/ports"
)

const (
	defaultTokenTTL  = 24 * time.Hour
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// AuthConfig holds the tunables of AuthService.
type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

// AuthService implements registration, login and account management.
type AuthService struct {
	repo      ports.UserRepository
	revoker   ports.TokenRevoker
	limiter   ports.LoginLimiter
	audit     ports.AuditSink
	jwtSecret []byte
	tokenTTL  time.Duration
	cost      int
	// dummyHash is compared against when the email is unknown so both
	// failure paths spend the same bcrypt time.
	dummyHash []byte
	log       zerolog.Logger
}

// NewAuthService wires the service. revoker, limiter and audit may be nil.
func NewAuthService(
	repo ports.UserRepository,
	revoker ports.TokenRevoker,
	limiter ports.LoginLimiter,
	audit ports.AuditSink,
	cfg AuthConfig,
	log zerolog.Logger,
) (*AuthService, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("auth service: empty jwt secret")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if revoker == nil {
		revoker = nopRevoker{}
	}
	if limiter == nil {
		limiter = nopLimiter{}
	}
	if audit == nil {
		audit = nopSink{}
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}

	return &AuthService{
		repo:      repo,
		revoker:   revoker,
		limiter:   limiter,
		audit:     audit,
		jwtSecret: []byte(cfg.JWTSecret),
		tokenTTL:  cfg.TokenTTL,
		cost:      cfg.BcryptCost,
		dummyHash: dummy,
		log:       log,
	}, nil
}

// Register creates an account with a self-assignable role (student by default).
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	role := domain.BaseRole
	if in.Role != "" {
		r, err := domain.ParseRole(in.Role)
		if err != nil {
			return nil, err
		}
		if !r.SelfAssignable() {
			return nil, domain.ErrForbidden
		}
		role = r
	}
	return s.create(ctx, in, domain.Roles{role})
}

// Provision creates an account with arbitrary roles. Used by operators and admins.
func (s *AuthService) Provision(ctx context.Context, in ports.RegisterInput, roles ...domain.Role) (*domain.User, error) {
	for _, r := range roles {
		if !r.Valid() {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRole, r)
		}
	}
	if len(roles) == 0 {
		roles = []domain.Role{domain.BaseRole}
	}
	return s.create(ctx, in, roles)
}

func (s *AuthService) create(ctx context.Context, in ports.RegisterInput, roles domain.Roles) (*domain.User, error) {
	email := strings.TrimSpace(in.Email)
	name := strings.TrimSpace(in.Name)
	if email == "" || name == "" {
		return nil, domain.ErrValidation
	}
	if utf8.RuneCountInString(in.Password) < domain.MinPasswordLength {
		return nil, domain.ErrPasswordTooShort
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil && existing != nil:
		return nil, domain.ErrUserExists
	case err != nil && !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("register: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	now := time.Now().UTC()
	created, err := s.repo.Create(ctx, &domain.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Roles:        roles.Normalize(),
		Level:        1,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	s.emit(ctx, domain.EventRegistered, created.ID, created.Email)
	s.log.Info().Str("user_id", created.ID).Strs("roles", created.Roles.Strings()).Msg("account registered")
	return created, nil
}

// Login verifies credentials and issues an access token. Unknown emails and
// wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	allowed, err := s.limiter.Allow(ctx, email)
	if err != nil {
		s.log.Warn().Err(err).Msg("login limiter unavailable, allowing attempt")
	} else if !allowed {
		return nil, domain.ErrRateLimited
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("login: %w", err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		s.loginFailed(ctx, "", email)
		return nil, domain.ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.loginFailed(ctx, user.ID, email)
		return nil, domain.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, domain.ErrAccountDeactivated
	}

	if err := s.limiter.Reset(ctx, email); err != nil {
		s.log.Warn().Err(err).Msg("failed to reset login attempts")
	}

	token, exp, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, domain.EventLoginSucceeded, user.ID, user.Email)
	return &ports.LoginResult{Token: token, ExpiresAt: exp, User: user}, nil
}

func (s *AuthService) loginFailed(ctx context.Context, userID, email string) {
	if err := s.limiter.Fail(ctx, email); err != nil {
		s.log.Warn().Err(err).Msg("failed to record login attempt")
	}
	s.emit(ctx, domain.EventLoginFailed, userID, email)
}

// Authenticate decodes a bearer token and rejects revoked ones. The account
// is reloaded on every call: deleted or deactivated accounts lose access
// immediately and the principal carries the current roles, not the ones
// frozen into the token.
func (s *AuthService) Authenticate(ctx context.Context, rawToken string) (*domain.Principal, error) {
	p, err := s.parseToken(rawToken)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revoker.IsRevoked(ctx, p.TokenID)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if revoked {
		return nil, domain.ErrUnauthorized
	}

	user, err := s.repo.FindByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if !user.IsActive {
		return nil, domain.ErrUnauthorized
	}
	p.Roles = user.Roles
	p.Email = user.Email
	return p, nil
}

// Logout revokes the caller's token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, p *domain.Principal) error {
	if err := s.revoker.Revoke(ctx, p.TokenID, p.ExpiresAt); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.emit(ctx, domain.EventLoggedOut, p.UserID, p.Email)
	return nil
}

func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrAccountDeactivated
	}
	return user, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in ports.UpdateProfileInput) (*domain.User, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.ErrValidation
		}
		user.Name = name
	}
	if in.Avatar != nil {
		user.Avatar = strings.TrimSpace(*in.Avatar)
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	s.emit(ctx, domain.EventProfileUpdated, user.ID, user.Email)
	return user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if utf8.RuneCountInString(next) < domain.MinPasswordLength {
		return domain.ErrPasswordTooShort
	}

	user, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return domain.ErrIncorrectPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return fmt.Errorf("change password: hash: %w", err)
	}
	user.PasswordHash = string(hash)
	user.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, user); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	s.emit(ctx, domain.EventPasswordChanged, user.ID, user.Email)
	return nil
}

// DeleteAccount removes the caller's account after re-checking the password
// and revokes the token used for the request.
func (s *AuthService) DeleteAccount(ctx context.Context, p *domain.Principal, password string) error {
	user, err := s.repo.FindByID(ctx, p.UserID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return domain.ErrIncorrectPassword
	}

	if err := s.repo.Delete(ctx, user.ID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if err := s.revoker.Revoke(ctx, p.TokenID, p.ExpiresAt); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to revoke token of deleted account")
	}

	s.emit(ctx, domain.EventAccountDeleted, user.ID, user.Email)
	s.log.Info().Str("user_id", user.ID).Msg("account deleted")
	return nil
}

func (s *AuthService) ListUsers(ctx context.Context, in ports.ListUsersInput) (*ports.ListUsersResult, error) {
	filter := ports.ListUsersFilter{
		Search: strings.TrimSpace(in.Search),
		Active: in.Active,
		Page:   in.Page,
		Limit:  in.Limit,
	}
	if in.Role != "" {
		r, err := domain.ParseRole(in.Role)
		if err != nil {
			return nil, err
		}
		filter.Role = r
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageLimit
	}
	if filter.Limit > maxPageLimit {
		filter.Limit = maxPageLimit
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	totalPages := int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	return &ports.ListUsersResult{
		Items:      users,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
	}, nil
}

// UpdateAccess changes roles and/or activation of an account.
func (s *AuthService) UpdateAccess(ctx context.Context, userID string, in ports.UpdateAccessInput) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Roles != nil {
		roles, err := domain.ParseRoles(in.Roles)
		if err != nil {
			return nil, err
		}
		if len(roles) == 0 {
			return nil, domain.ErrValidation
		}
		user.Roles = roles
	}
	if in.Active != nil {
		user.IsActive = *in.Active
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update access: %w", err)
	}

	s.emit(ctx, domain.EventAccessUpdated, user.ID, user.Email)
	s.log.Info().
		Str("user_id", user.ID).
		Strs("roles", user.Roles.Strings()).
		Bool("active", user.IsActive).
		Msg("account access updated")
	return user, nil
}

func (s *AuthService) emit(ctx context.Context, kind domain.AuthEventKind, userID, email string) {
	s.audit.Enqueue(domain.AuthEvent{
		ID:     uuid.NewString(),
		Kind:   kind,
		UserID: userID,
		Email:  email,
		IP:     ClientIPFrom(ctx),
		At:     time.Now().UTC(),
	})
}

type clientIPKey struct{}

// WithClientIP stores the caller's address for audit entries.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func ClientIPFrom(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

type nopRevoker struct{}

func (nopRevoker) Revoke(context.Context, string, time.Time) error   { return nil }
func (nopRevoker) IsRevoked(context.Context, string) (bool, error) { return false, nil }

type nopLimiter struct{}

func (nopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }
func (nopLimiter) Fail(context.Context, string) error          { return nil }
func (nopLimiter) Reset(context.Context, string) error         { return nil }

type nopSink struct{}

func (nopSink) Enqueue(domain.AuthEvent) {}
