package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/neurolearn/marketplace/internal/core/domain"
)

// RBAC admits principals carrying at least one of allowed.
func RBAC(allowed ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return domain.ErrUnauthorized
			}
			if !p.Roles.HasAny(allowed...) {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}

// Require admits principals whose derived permissions satisfy check.
func Require(check func(domain.Permissions) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return domain.ErrUnauthorized
			}
			if !check(domain.DerivePermissions(p.Roles)) {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
