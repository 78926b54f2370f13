package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Role is a capability tag attached to a user.
type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
	RoleCreator Role = "creator"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
	RoleGuest   Role = "guest"
	RoleMember  Role = "member"
)

// BaseRole is assigned to every account registered without an explicit role.
const BaseRole = RoleStudent

// AllRoles lists every role kind. Switches over Role are tested against it.
func AllRoles() []Role {
	return []Role{RoleStudent, RoleTutor, RoleCreator, RoleManager, RoleAdmin, RoleGuest, RoleMember}
}

// ParseRole converts a raw tag into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// Valid reports whether r is one of the known role kinds.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTutor, RoleCreator, RoleManager, RoleAdmin, RoleGuest, RoleMember:
		return true
	}
	return false
}

// SelfAssignable reports whether a user may pick r for themselves at registration.
func (r Role) SelfAssignable() bool {
	switch r {
	case RoleStudent, RoleTutor, RoleCreator:
		return true
	case RoleManager, RoleAdmin, RoleGuest, RoleMember:
		return false
	}
	return false
}

// Roles is an ordered, de-duplicated role set.
type Roles []Role

// ParseRoles parses and normalizes a list of raw tags.
func ParseRoles(raw []string) (Roles, error) {
	out := make(Roles, 0, len(raw))
	for _, s := range raw {
		r, err := ParseRole(s)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out.Normalize(), nil
}

// Normalize returns a sorted copy without duplicates.
func (rs Roles) Normalize() Roles {
	out := slices.Clone(rs)
	slices.Sort(out)
	return slices.Compact(out)
}

// Has reports whether r is in the set.
func (rs Roles) Has(r Role) bool {
	return slices.Contains(rs, r)
}

// HasAny reports whether at least one of want is in the set.
func (rs Roles) HasAny(want ...Role) bool {
	for _, r := range want {
		if rs.Has(r) {
			return true
		}
	}
	return false
}

func (rs Roles) Strings() []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}
