package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/neurolearn/marketplace/internal/api/handler"
	"github.com/neurolearn/marketplace/internal/core/domain"
	"github.com/neurolearn/marketplace/internal/core/ports"
	"github.com/neurolearn/marketplace/internal/pkg/i18n"
)

// fakeAuth is a minimal in-memory ports.AuthService keyed by bearer token.
type fakeAuth struct {
	tokens map[string]*domain.Principal
	users  map[string]*domain.User
	err    error
}

func (f *fakeAuth) Register(_ context.Context, in ports.RegisterInput) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.User{ID: "new", Email: in.Email, Name: in.Name, Roles: domain.Roles{domain.RoleStudent}}, nil
}

func (f *fakeAuth) Login(context.Context, string, string) (*ports.LoginResult, error) {
	return nil, domain.ErrInvalidCredentials
}

func (f *fakeAuth) Authenticate(_ context.Context, raw string) (*domain.Principal, error) {
	if p, ok := f.tokens[raw]; ok {
		return p, nil
	}
	return nil, domain.ErrUnauthorized
}

func (f *fakeAuth) Logout(context.Context, *domain.Principal) error { return nil }

func (f *fakeAuth) Profile(_ context.Context, userID string) (*domain.User, error) {
	if u, ok := f.users[userID]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeAuth) UpdateProfile(context.Context, string, ports.UpdateProfileInput) (*domain.User, error) {
	return nil, f.err
}

func (f *fakeAuth) ChangePassword(context.Context, string, string, string) error {
	return domain.ErrIncorrectPassword
}

func (f *fakeAuth) DeleteAccount(context.Context, *domain.Principal, string) error { return nil }

func (f *fakeAuth) ListUsers(context.Context, ports.ListUsersInput) (*ports.ListUsersResult, error) {
	return &ports.ListUsersResult{Items: []*domain.User{}, Page: 1, Limit: 20}, nil
}

func (f *fakeAuth) UpdateAccess(_ context.Context, userID string, _ ports.UpdateAccessInput) (*domain.User, error) {
	return &domain.User{ID: userID}, nil
}

func newTestRouter(t *testing.T, auth *fakeAuth) *echo.Echo {
	t.Helper()
	v := handler.NewValidator()
	catalog, err := i18n.New(v.Engine())
	if err != nil {
		t.Fatalf("i18n: %v", err)
	}
	return NewRouter(Dependencies{
		Auth:      auth,
		Catalog:   catalog,
		Validator: v,
		Checks:    map[string]handler.DependencyCheck{},
		Log:       zerolog.Nop(),
	})
}

func defaultFakeAuth() *fakeAuth {
	return &fakeAuth{
		tokens: map[string]*domain.Principal{
			"student-token": {UserID: "s1", Roles: domain.Roles{domain.RoleStudent}},
			"creator-token": {UserID: "c1", Roles: domain.Roles{domain.RoleCreator}},
			"manager-token": {UserID: "m1", Roles: domain.Roles{domain.RoleManager}},
			"admin-token":   {UserID: "a1", Roles: domain.Roles{domain.RoleAdmin}},
		},
		users: map[string]*domain.User{
			"s1": {ID: "s1", Email: "s@x.it", Roles: domain.Roles{domain.RoleStudent}},
		},
	}
}

func serve(e *echo.Echo, method, path, token, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid error envelope %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestRouter_AccessControl(t *testing.T) {
	e := newTestRouter(t, defaultFakeAuth())

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		want   int
	}{
		{"profile without token", http.MethodGet, "/auth/profile", "", "", http.StatusUnauthorized},
		{"profile with unknown token", http.MethodGet, "/auth/profile", "stale", "", http.StatusUnauthorized},
		{"profile as student", http.MethodGet, "/auth/profile", "student-token", "", http.StatusOK},
		{"profile of deleted account", http.MethodGet, "/auth/profile", "creator-token", "", http.StatusNotFound},
		{"list users as creator", http.MethodGet, "/auth/admin/users", "creator-token", "", http.StatusForbidden},
		{"list users as manager", http.MethodGet, "/auth/admin/users", "manager-token", "", http.StatusForbidden},
		{"list users as admin", http.MethodGet, "/auth/admin/users", "admin-token", "", http.StatusOK},
		{"update access as student", http.MethodPatch, "/auth/admin/users/u9", "student-token", `{"active":false}`, http.StatusForbidden},
		{"update access as admin", http.MethodPatch, "/auth/admin/users/u9", "admin-token", `{"active":false}`, http.StatusOK},
		{"logout", http.MethodPost, "/auth/logout", "student-token", "", http.StatusNoContent},
		{"unknown route", http.MethodGet, "/nope", "", "", http.StatusNotFound},
		{"liveness", http.MethodGet, "/health", "", "", http.StatusOK},
		{"readiness", http.MethodGet, "/health/ready", "", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, tt.method, tt.path, tt.token, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRouter_ErrorEnvelope(t *testing.T) {
	tests := []struct {
		name     string
		svcErr   error
		wantCode int
		wantKey  string
	}{
		{"duplicate", domain.ErrUserExists, http.StatusConflict, i18n.KeyConflict},
		{"forbidden role", domain.ErrForbidden, http.StatusForbidden, i18n.KeyForbidden},
		{"invalid role", fmt.Errorf("%w: %q", domain.ErrInvalidRole, "wizard"), http.StatusBadRequest, i18n.KeyInvalidRole},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests, i18n.KeyRateLimited},
		{"unexpected", errors.New("mongo exploded"), http.StatusInternalServerError, i18n.KeyServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := defaultFakeAuth()
			auth.err = tt.svcErr
			e := newTestRouter(t, auth)

			rec := serve(e, http.MethodPost, "/auth/register", "", `{"email":"a@x.it","password":"longenough1","name":"Ada"}`)
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			resp := decodeError(t, rec)
			if resp.Code != tt.wantKey {
				t.Fatalf("expected code %q, got %q", tt.wantKey, resp.Code)
			}
			if strings.Contains(resp.Error, "mongo") {
				t.Fatalf("internal cause leaked: %q", resp.Error)
			}
		})
	}
}

func TestRouter_InvalidCredentialsMessageIsGeneric(t *testing.T) {
	e := newTestRouter(t, defaultFakeAuth())

	rec := serve(e, http.MethodPost, "/auth/login", "", `{"email":"ghost@x.it","password":"whatever1"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	resp := decodeError(t, rec)
	if resp.Code != i18n.KeyInvalidCredentials || resp.Error != "Invalid email or password." {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
}

func TestRouter_ValidationFieldsAreLocalized(t *testing.T) {
	e := newTestRouter(t, defaultFakeAuth())

	rec := serve(e, http.MethodPost, "/auth/register", "", `{"email":"nope","password":"longenough1"}`,
		i18n.HeaderAcceptLanguage, "it-IT,it;q=0.9")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	resp := decodeError(t, rec)
	if resp.Code != i18n.KeyValidation || resp.Error != "Alcuni campi non sono validi." {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if resp.Fields["email"] == "" || resp.Fields["name"] == "" {
		t.Fatalf("expected email and name field messages, got %+v", resp.Fields)
	}
}

func TestRouter_IncorrectPasswordKeepsSession(t *testing.T) {
	e := newTestRouter(t, defaultFakeAuth())

	rec := serve(e, http.MethodPost, "/auth/change-password", "student-token",
		`{"current_password":"wrong-pass","new_password":"longenough1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("incorrect current password must be 400, got %d", rec.Code)
	}
	resp := decodeError(t, rec)
	if resp.Fields["current_password"] != "The password is incorrect." {
		t.Fatalf("unexpected field messages: %+v", resp.Fields)
	}
}

func TestRouter_MalformedBody(t *testing.T) {
	e := newTestRouter(t, defaultFakeAuth())

	rec := serve(e, http.MethodPost, "/auth/login", "", `{"email":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != i18n.KeyBadRequest {
		t.Fatalf("expected bad_request code, got %+v", resp)
	}
}
