package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/neurolearn/marketplace/internal/api/handler"
	"github.com/neurolearn/marketplace/internal/core/domain"
	"github.com/neurolearn/marketplace/internal/pkg/i18n"
)

// ErrorResponse is the canonical error envelope for all API errors.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// resolved is an error reduced to its HTTP rendering.
type resolved struct {
	status int
	key    string
	params []string
	fields map[string]string
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status and message key.
//   - Localizes messages from the request's Accept-Language.
//   - Logs unexpected errors without leaking details to the client.
func NewHTTPErrorHandler(catalog *i18n.Catalog, log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		trans := catalog.ForRequest(c.Request().Header.Get(i18n.HeaderAcceptLanguage))
		r := resolveError(err, trans, catalog)

		if r.status >= http.StatusInternalServerError {
			log.Error().
				Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Msg("unhandled error")
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(r.status)
			return
		}
		_ = c.JSON(r.status, ErrorResponse{
			Error:  catalog.Message(trans, r.key, r.params...),
			Code:   r.key,
			Fields: r.fields,
		})
	}
}

func resolveError(err error, trans ut.Translator, catalog *i18n.Catalog) resolved {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		fields := make(map[string]string, len(ve))
		for _, fe := range ve {
			fields[fe.Field()] = fe.Translate(trans)
		}
		return resolved{status: http.StatusBadRequest, key: i18n.KeyValidation, fields: fields}
	}

	var fe *handler.FieldError
	if errors.As(err, &fe) {
		inner := resolveError(fe.Err, trans, catalog)
		if inner.status != http.StatusBadRequest {
			return inner
		}
		return resolved{
			status: http.StatusBadRequest,
			key:    i18n.KeyValidation,
			fields: map[string]string{fe.Field: catalog.Message(trans, inner.key, inner.params...)},
		}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return resolved{status: he.Code, key: keyForStatus(he.Code)}
	}

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return resolved{status: http.StatusUnauthorized, key: i18n.KeyInvalidCredentials}
	case errors.Is(err, domain.ErrUnauthorized):
		return resolved{status: http.StatusUnauthorized, key: i18n.KeyUnauthorized}
	case errors.Is(err, domain.ErrPasswordTooShort):
		return resolved{status: http.StatusBadRequest, key: i18n.KeyPasswordTooShort,
			params: []string{strconv.Itoa(domain.MinPasswordLength)}}
	case errors.Is(err, domain.ErrInvalidRole):
		return resolved{status: http.StatusBadRequest, key: i18n.KeyInvalidRole}
	case errors.Is(err, domain.ErrIncorrectPassword):
		return resolved{status: http.StatusBadRequest, key: i18n.KeyIncorrectPassword}
	case errors.Is(err, domain.ErrValidation):
		return resolved{status: http.StatusBadRequest, key: i18n.KeyValidation}
	case errors.Is(err, domain.ErrAccountDeactivated):
		return resolved{status: http.StatusForbidden, key: i18n.KeyAccountDeactivated}
	case errors.Is(err, domain.ErrForbidden):
		return resolved{status: http.StatusForbidden, key: i18n.KeyForbidden}
	case errors.Is(err, domain.ErrUserNotFound):
		return resolved{status: http.StatusNotFound, key: i18n.KeyNotFound}
	case errors.Is(err, domain.ErrUserExists):
		return resolved{status: http.StatusConflict, key: i18n.KeyConflict}
	case errors.Is(err, domain.ErrRateLimited):
		return resolved{status: http.StatusTooManyRequests, key: i18n.KeyRateLimited}
	}

	return resolved{status: http.StatusInternalServerError, key: i18n.KeyServerError}
}

// keyForStatus names the message of errors raised by echo itself
// (bind failures, unknown routes, wrong methods).
func keyForStatus(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return i18n.KeyUnauthorized
	case status == http.StatusForbidden:
		return i18n.KeyForbidden
	case status == http.StatusNotFound, status == http.StatusMethodNotAllowed:
		return i18n.KeyNotFound
	case status == http.StatusTooManyRequests:
		return i18n.KeyRateLimited
	case status >= http.StatusInternalServerError:
		return i18n.KeyServerError
	default:
		return i18n.KeyBadRequest
	}
}
