package ports

import (
	"context"
	"time"

	"github.com/neurolearn/marketplace/internal/core/domain"
)

// RegisterInput carries the data of a new account.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     string // optional; defaults to domain.BaseRole
}

// LoginResult is returned after a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// UpdateProfileInput holds the self-editable profile fields. Nil means unchanged.
type UpdateProfileInput struct {
	Name   *string
	Avatar *string
}

// UpdateAccessInput holds the admin-editable fields. Nil means unchanged.
type UpdateAccessInput struct {
	Roles  []string
	Active *bool
}

// ListUsersInput carries the raw parameters of the admin listing.
type ListUsersInput struct {
	Role   string
	Search string
	Active *bool
	Page   int
	Limit  int
}

// ListUsersResult is a page of accounts.
type ListUsersResult struct {
	Items      []*domain.User
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// AuthService defines the account use cases.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Authenticate(ctx context.Context, rawToken string) (*domain.Principal, error)
	Logout(ctx context.Context, p *domain.Principal) error
	Profile(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*domain.User, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
	DeleteAccount(ctx context.Context, p *domain.Principal, password string) error
	ListUsers(ctx context.Context, in ListUsersInput) (*ListUsersResult, error)
	UpdateAccess(ctx context.Context, userID string, in UpdateAccessInput) (*domain.User, error)
}
