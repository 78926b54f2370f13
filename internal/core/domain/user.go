package domain

import "time"

// MinPasswordLength is the shortest password accepted at registration or change.
const MinPasswordLength = 8

// User models a marketplace account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Roles        Roles     `json:"roles"`
	Level        int       `json:"level"`
	XP           int       `json:"xp"`
	Neurons      int       `json:"neurons"`
	Avatar       string    `json:"avatar,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasRole reports whether the user carries r.
func (u *User) HasRole(r Role) bool {
	if u == nil {
		return false
	}
	return u.Roles.Has(r)
}

// Permissions derives the user's capability table. A nil user has none.
func (u *User) Permissions() Permissions {
	if u == nil {
		return NoPermissions()
	}
	return DerivePermissions(u.Roles)
}

// Principal is the authenticated identity decoded from a bearer token.
type Principal struct {
	UserID    string
	Email     string
	Roles     Roles
	TokenID   string
	ExpiresAt time.Time
}
