package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed call for the UI.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindSessionExpired     Kind = "session_expired"
	KindForbidden          Kind = "forbidden"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindRateLimited        Kind = "rate_limited"
	KindServer             Kind = "server"
	KindConnectivity       Kind = "connectivity"
)

// Error is returned by every Client method on failure.
type Error struct {
	Kind    Kind
	Status  int               // HTTP status, 0 when no response was received
	Code    string            // server error code, if any
	Message string            // server message, already localized by the API
	Fields  map[string]string // per-field messages for validation failures
	Err     error             // transport cause for connectivity failures
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	default:
		return fmt.Sprintf("%s (%d)", e.Kind, e.Status)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a client *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// KindFromStatus maps an HTTP status to an error kind.
func KindFromStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindSessionExpired
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= http.StatusInternalServerError:
		return KindServer
	default:
		return KindValidation
	}
}

// retryableStatus lists the gateway failures worth another attempt.
func retryableStatus(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
