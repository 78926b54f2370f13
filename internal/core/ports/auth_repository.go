package ports

import (
	"context"
	"time"

	"github.com/neurolearn/marketplace/internal/core/domain"
)

// ListUsersFilter carries the query parameters for the admin user listing.
type ListUsersFilter struct {
	Role   domain.Role // optional: users carrying this role
	Search string      // optional: partial match on name or email
	Active *bool       // optional: activation state
	Page   int         // 1-based
	Limit  int         // max rows per page (capped at 100 by service)
}

// UserRepository defines the persistence operations for accounts.
type UserRepository interface {
	// Create inserts user and returns it with its assigned ID.
	// A duplicate email yields domain.ErrUserExists.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// FindByEmail is an exact, case-sensitive lookup.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// Update overwrites the mutable fields of an existing account.
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
	// List returns a page of users matching filter and the total count.
	List(ctx context.Context, filter ListUsersFilter) ([]*domain.User, int64, error)
}

// TokenRevoker keeps the blocklist of logged-out token IDs.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// LoginLimiter counts failed login attempts per key.
type LoginLimiter interface {
	// Allow reports whether key may attempt another login.
	Allow(ctx context.Context, key string) (bool, error)
	// Fail records a failed attempt for key.
	Fail(ctx context.Context, key string) error
	// Reset clears the counter after a successful login.
	Reset(ctx context.Context, key string) error
}
