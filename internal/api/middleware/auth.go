package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/neurolearn/marketplace/internal/core/domain"
)

// PrincipalKey is the echo context key holding the authenticated *domain.Principal.
const PrincipalKey = "principal"

// Authenticator turns a raw bearer token into a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, rawToken string) (*domain.Principal, error)
}

// Auth validates the bearer token and injects the principal into the context.
func Auth(authn Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return domain.ErrUnauthorized
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			token = strings.TrimSpace(token)
			if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
				return domain.ErrUnauthorized
			}

			p, err := authn.Authenticate(c.Request().Context(), token)
			if err != nil {
				return err
			}

			c.Set(PrincipalKey, p)
			return next(c)
		}
	}
}

// PrincipalFrom returns the principal set by Auth, if any.
func PrincipalFrom(c echo.Context) (*domain.Principal, bool) {
	p, ok := c.Get(PrincipalKey).(*domain.Principal)
	return p, ok && p != nil
}
