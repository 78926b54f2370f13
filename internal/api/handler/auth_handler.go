package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/neurolearn/marketplace/internal/api/metrics"
	"github.com/neurolearn/marketplace/internal/api/middleware"
	"github.com/neurolearn/marketplace/internal/core/domain"
	"github.com/neurolearn/marketplace/internal/core/ports"
)

// AuthHandler handles the account endpoints under /auth.
type AuthHandler struct {
	service ports.AuthService
}

func NewAuthHandler(service ports.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// --- Request / Response types ---

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required,max=120"`
	Role     string `json:"role,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type updateProfileRequest struct {
	Name   *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Avatar *string `json:"avatar,omitempty" validate:"omitempty,url"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

type deleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

type updateAccessRequest struct {
	Roles  []string `json:"roles,omitempty" validate:"omitempty,min=1,dive,required"`
	Active *bool    `json:"active,omitempty"`
}

type userResponse struct {
	User        *domain.User       `json:"user"`
	Permissions domain.Permissions `json:"permissions"`
}

type loginResponse struct {
	Token       string             `json:"token"`
	ExpiresAt   time.Time          `json:"expires_at"`
	User        *domain.User       `json:"user"`
	Permissions domain.Permissions `json:"permissions"`
}

type listUsersResponse struct {
	Items      []*domain.User `json:"items"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"total_pages"`
}

func newUserResponse(u *domain.User) userResponse {
	return userResponse{User: u, Permissions: u.Permissions()}
}

// bind decodes and validates the request body into req.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload").SetInternal(err)
	}
	return c.Validate(req)
}

func principal(c echo.Context) (*domain.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return p, nil
}

// Register creates a new account.
//
// @Summary      Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Account details"
// @Success      201   {object}  userResponse
// @Failure      400   {object}  api.ErrorResponse
// @Failure      403   {object}  api.ErrorResponse
// @Failure      409   {object}  api.ErrorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return err
	}

	user, err := h.service.Register(c.Request().Context(), ports.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserExists):
			metrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
		case errors.Is(err, domain.ErrPasswordTooShort):
			metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
			return fieldError("password", err)
		case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidRole), errors.Is(err, domain.ErrForbidden):
			metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		default:
			metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues("created").Inc()
	return c.JSON(http.StatusCreated, newUserResponse(user))
}

// Login authenticates an account and returns a bearer token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  api.ErrorResponse
// @Failure      401   {object}  api.ErrorResponse
// @Failure      403   {object}  api.ErrorResponse
// @Failure      429   {object}  api.ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.service.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		case errors.Is(err, domain.ErrAccountDeactivated):
			metrics.LoginsTotal.WithLabelValues("deactivated").Inc()
		case errors.Is(err, domain.ErrRateLimited):
			metrics.LoginsTotal.WithLabelValues("rate_limited").Inc()
		default:
			metrics.LoginsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, loginResponse{
		Token:       res.Token,
		ExpiresAt:   res.ExpiresAt,
		User:        res.User,
		Permissions: res.User.Permissions(),
	})
}

// Logout revokes the caller's token.
//
// @Summary      Logout
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  api.ErrorResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.service.Logout(c.Request().Context(), p); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Profile returns the caller's account and permissions.
//
// @Summary      Current profile
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userResponse
// @Failure      401  {object}  api.ErrorResponse
// @Failure      403  {object}  api.ErrorResponse
// @Router       /auth/profile [get]
func (h *AuthHandler) Profile(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	user, err := h.service.Profile(c.Request().Context(), p.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newUserResponse(user))
}

// UpdateProfile changes the caller's name or avatar.
//
// @Summary      Update profile
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "Fields to change"
// @Success      200   {object}  userResponse
// @Failure      400   {object}  api.ErrorResponse
// @Failure      401   {object}  api.ErrorResponse
// @Router       /auth/profile [patch]
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req updateProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.service.UpdateProfile(c.Request().Context(), p.UserID, ports.UpdateProfileInput{
		Name:   req.Name,
		Avatar: req.Avatar,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newUserResponse(user))
}

// ChangePassword replaces the caller's password.
//
// @Summary      Change password
// @Tags         auth
// @Accept       json
// @Security     BearerAuth
// @Param        body  body  changePasswordRequest  true  "Current and new password"
// @Success      204
// @Failure      400  {object}  api.ErrorResponse
// @Failure      401  {object}  api.ErrorResponse
// @Router       /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req changePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	err = h.service.ChangePassword(c.Request().Context(), p.UserID, req.CurrentPassword, req.NewPassword)
	switch {
	case errors.Is(err, domain.ErrIncorrectPassword):
		return fieldError("current_password", err)
	case errors.Is(err, domain.ErrPasswordTooShort):
		return fieldError("new_password", err)
	case err != nil:
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteAccount removes the caller's account after confirming the password.
//
// @Summary      Delete account
// @Tags         auth
// @Accept       json
// @Security     BearerAuth
// @Param        body  body  deleteAccountRequest  true  "Password confirmation"
// @Success      204
// @Failure      400  {object}  api.ErrorResponse
// @Failure      401  {object}  api.ErrorResponse
// @Router       /auth/delete-account [delete]
func (h *AuthHandler) DeleteAccount(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req deleteAccountRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	err = h.service.DeleteAccount(c.Request().Context(), p, req.Password)
	switch {
	case errors.Is(err, domain.ErrIncorrectPassword):
		return fieldError("password", err)
	case err != nil:
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListUsers returns a page of accounts.
//
// @Summary      List accounts
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        role    query     string  false  "Role filter"
// @Param        search  query     string  false  "Partial name or email"
// @Param        active  query     bool    false  "Activation filter"
// @Param        page    query     int     false  "Page (1-based)"
// @Param        limit   query     int     false  "Page size (max 100)"
// @Success      200     {object}  listUsersResponse
// @Failure      400     {object}  api.ErrorResponse
// @Failure      403     {object}  api.ErrorResponse
// @Router       /auth/admin/users [get]
func (h *AuthHandler) ListUsers(c echo.Context) error {
	var in ports.ListUsersInput
	err := echo.QueryParamsBinder(c).
		String("role", &in.Role).
		String("search", &in.Search).
		Int("page", &in.Page).
		Int("limit", &in.Limit).
		BindError()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query").SetInternal(err)
	}
	if raw := c.QueryParam("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return fieldError("active", domain.ErrValidation)
		}
		in.Active = &active
	}

	res, err := h.service.ListUsers(c.Request().Context(), in)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRole) {
			return fieldError("role", err)
		}
		return err
	}

	items := res.Items
	if items == nil {
		items = []*domain.User{}
	}
	return c.JSON(http.StatusOK, listUsersResponse{
		Items:      items,
		Total:      res.Total,
		Page:       res.Page,
		Limit:      res.Limit,
		TotalPages: res.TotalPages,
	})
}

// UpdateAccess changes an account's roles or activation state.
//
// @Summary      Update account access
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "Account ID"
// @Param        body  body      updateAccessRequest  true  "Roles and activation"
// @Success      200   {object}  userResponse
// @Failure      400   {object}  api.ErrorResponse
// @Failure      403   {object}  api.ErrorResponse
// @Failure      404   {object}  api.ErrorResponse
// @Router       /auth/admin/users/{id} [patch]
func (h *AuthHandler) UpdateAccess(c echo.Context) error {
	var req updateAccessRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.service.UpdateAccess(c.Request().Context(), c.Param("id"), ports.UpdateAccessInput{
		Roles:  req.Roles,
		Active: req.Active,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRole) {
			return fieldError("roles", err)
		}
		return err
	}

	return c.JSON(http.StatusOK, newUserResponse(user))
}
