package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/neurolearn/marketplace/internal/core/domain"
)

type stubAuthenticator struct {
	principal *domain.Principal
	err       error
	gotToken  string
}

func (s *stubAuthenticator) Authenticate(_ context.Context, raw string) (*domain.Principal, error) {
	s.gotToken = raw
	return s.principal, s.err
}

func newAuthContext(header string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	want := &domain.Principal{UserID: "u1", Email: "a@x.it", Roles: domain.Roles{domain.RoleTutor}}
	authn := &stubAuthenticator{principal: want}
	c, rec := newAuthContext("Bearer tok123")

	called := false
	handler := Auth(authn)(func(c echo.Context) error {
		called = true
		p, ok := PrincipalFrom(c)
		if !ok || p.UserID != "u1" {
			t.Fatalf("principal not set: %+v", p)
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if authn.gotToken != "tok123" {
		t.Fatalf("expected raw token tok123, got %q", authn.gotToken)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware_RejectsBadHeaders(t *testing.T) {
	for _, header := range []string{"", "Token abc", "Bearer", "Bearer   "} {
		authn := &stubAuthenticator{principal: &domain.Principal{UserID: "u1"}}
		c, _ := newAuthContext(header)

		err := Auth(authn)(func(echo.Context) error {
			t.Fatalf("should not reach next for header %q", header)
			return nil
		})(c)

		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("header %q: expected ErrUnauthorized, got %v", header, err)
		}
		if authn.gotToken != "" {
			t.Fatalf("header %q: authenticator must not be called", header)
		}
	}
}

func TestAuthMiddleware_PropagatesAuthenticatorError(t *testing.T) {
	authn := &stubAuthenticator{err: domain.ErrUnauthorized}
	c, _ := newAuthContext("bearer expired")

	err := Auth(authn)(func(echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})(c)

	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, ok := PrincipalFrom(c); ok {
		t.Fatalf("principal must not be set on failure")
	}
}
