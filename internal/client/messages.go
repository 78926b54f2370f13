package client

import (
	"errors"
	"strconv"

	"github.com/neurolearn/marketplace/internal/core/domain"
	"github.com/neurolearn/marketplace/internal/pkg/i18n"
)

var kindKeys = map[Kind]string{
	KindValidation:         i18n.KeyValidation,
	KindInvalidCredentials: i18n.KeyInvalidCredentials,
	KindSessionExpired:     i18n.KeySessionExpired,
	KindForbidden:          i18n.KeyForbidden,
	KindNotFound:           i18n.KeyNotFound,
	KindConflict:           i18n.KeyConflict,
	KindRateLimited:        i18n.KeyRateLimited,
	KindServer:             i18n.KeyServerError,
	KindConnectivity:       i18n.KeyConnectivity,
}

// Localizer renders user-facing messages for client errors.
type Localizer struct {
	catalog *i18n.Catalog
}

func NewLocalizer() (*Localizer, error) {
	catalog, err := i18n.New(nil)
	if err != nil {
		return nil, err
	}
	return &Localizer{catalog: catalog}, nil
}

// Message returns the message for err in locale (falling back to English).
// A specific server code wins over the generic kind message, except for
// expired sessions which always read the same.
func (l *Localizer) Message(err error, locale string) string {
	trans := l.catalog.ForRequest(locale)

	var e *Error
	if !errors.As(err, &e) {
		return l.catalog.Message(trans, i18n.KeyServerError)
	}

	if e.Code != "" && e.Kind != KindSessionExpired {
		var params []string
		if e.Code == i18n.KeyPasswordTooShort {
			params = []string{strconv.Itoa(domain.MinPasswordLength)}
		}
		if msg := l.catalog.Message(trans, e.Code, params...); msg != e.Code {
			return msg
		}
	}

	key, ok := kindKeys[e.Kind]
	if !ok {
		key = i18n.KeyServerError
	}
	return l.catalog.Message(trans, key)
}
