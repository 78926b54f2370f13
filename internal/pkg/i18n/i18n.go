// Package i18n holds the user-facing message catalogs (en, it) shared by the
// HTTP error handler, the request validator and the API client.
package i18n

import (
	"fmt"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/it"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	it_translations "github.com/go-playground/validator/v10/translations/it"
	"golang.org/x/text/language"
)

const (
	LocaleEN      = "en"
	LocaleIT      = "it"
	DefaultLocale = LocaleEN
)

// HeaderAcceptLanguage is the request header carrying locale preferences.
const HeaderAcceptLanguage = "Accept-Language"

// supported lists the catalog locales, DefaultLocale first.
var (
	supported = []language.Tag{language.English, language.Italian}
	matcher   = language.NewMatcher(supported)
)

// Message keys. They double as the "code" of the API error envelope.
const (
	KeyValidation         = "validation"
	KeyBadRequest         = "bad_request"
	KeyInvalidCredentials = "invalid_credentials"
	KeyIncorrectPassword  = "incorrect_password"
	KeyPasswordTooShort   = "password_too_short"
	KeyInvalidRole        = "invalid_role"
	KeyAccountDeactivated = "account_deactivated"
	KeySessionExpired     = "session_expired"
	KeyUnauthorized       = "unauthorized"
	KeyForbidden          = "forbidden"
	KeyNotFound           = "not_found"
	KeyConflict           = "conflict"
	KeyRateLimited        = "rate_limited"
	KeyServerError        = "server_error"
	KeyConnectivity       = "connectivity"
)

var messages = map[string]map[string]string{
	LocaleEN: {
		KeyValidation:         "Some fields are not valid.",
		KeyBadRequest:         "The request could not be read.",
		KeyInvalidCredentials: "Invalid email or password.",
		KeyIncorrectPassword:  "The password is incorrect.",
		KeyPasswordTooShort:   "Password must be at least {0} characters.",
		KeyInvalidRole:        "The selected role is not available.",
		KeyAccountDeactivated: "This account has been deactivated.",
		KeySessionExpired:     "Your session has expired. Please sign in again.",
		KeyUnauthorized:       "Please sign in to continue.",
		KeyForbidden:          "You do not have access to this resource.",
		KeyNotFound:           "The requested resource was not found.",
		KeyConflict:           "An account with this email already exists.",
		KeyRateLimited:        "Too many attempts. Please try again later.",
		KeyServerError:        "Something went wrong. Please try again.",
		KeyConnectivity:       "Unable to reach the server. Check your connection.",
	},
	LocaleIT: {
		KeyValidation:         "Alcuni campi non sono validi.",
		KeyBadRequest:         "Impossibile leggere la richiesta.",
		KeyInvalidCredentials: "Email o password non validi.",
		KeyIncorrectPassword:  "La password non è corretta.",
		KeyPasswordTooShort:   "La password deve contenere almeno {0} caratteri.",
		KeyInvalidRole:        "Il ruolo selezionato non è disponibile.",
		KeyAccountDeactivated: "Questo account è stato disattivato.",
		KeySessionExpired:     "La sessione è scaduta. Accedi di nuovo.",
		KeyUnauthorized:       "Accedi per continuare.",
		KeyForbidden:          "Non hai accesso a questa risorsa.",
		KeyNotFound:           "La risorsa richiesta non esiste.",
		KeyConflict:           "Esiste già un account con questa email.",
		KeyRateLimited:        "Troppi tentativi. Riprova più tardi.",
		KeyServerError:        "Si è verificato un errore. Riprova.",
		KeyConnectivity:       "Impossibile raggiungere il server. Controlla la connessione.",
	},
}

// Catalog resolves translators by locale, falling back to DefaultLocale.
type Catalog struct {
	uni      *ut.UniversalTranslator
	fallback ut.Translator
}

// New builds the catalog. When v is non-nil the validator's default tag
// translations are registered for every locale as well.
func New(v *validator.Validate) (*Catalog, error) {
	enLocale, itLocale := en.New(), it.New()
	uni := ut.New(enLocale, enLocale, itLocale)

	for _, loc := range []locales.Translator{enLocale, itLocale} {
		name := loc.Locale()
		trans, _ := uni.GetTranslator(name)

		if v != nil {
			if err := registerValidator(name, v, trans); err != nil {
				return nil, fmt.Errorf("validator translations %s: %w", name, err)
			}
		}
		for key, text := range messages[name] {
			if err := trans.Add(key, text, false); err != nil {
				return nil, fmt.Errorf("add %s message %q: %w", name, key, err)
			}
		}
	}

	fallback, _ := uni.GetTranslator(DefaultLocale)
	return &Catalog{uni: uni, fallback: fallback}, nil
}

func registerValidator(locale string, v *validator.Validate, trans ut.Translator) error {
	switch locale {
	case LocaleIT:
		return it_translations.RegisterDefaultTranslations(v, trans)
	default:
		return en_translations.RegisterDefaultTranslations(v, trans)
	}
}

// Translator returns the best translator for the given locale preferences.
func (c *Catalog) Translator(prefs ...string) ut.Translator {
	if trans, found := c.uni.FindTranslator(prefs...); found {
		return trans
	}
	return c.fallback
}

// ForRequest picks a translator from an Accept-Language header value.
func (c *Catalog) ForRequest(acceptLanguage string) ut.Translator {
	return c.Translator(MatchLocale(acceptLanguage))
}

// Message renders key in trans, falling back to the default locale and
// finally to the key itself.
func (c *Catalog) Message(trans ut.Translator, key string, params ...string) string {
	if trans != nil {
		if s, err := trans.T(key, params...); err == nil {
			return s
		}
	}
	if s, err := c.fallback.T(key, params...); err == nil {
		return s
	}
	return key
}

// MatchLocale returns the catalog locale that best serves an Accept-Language
// header value, e.g. "it-IT,it;q=0.9,en;q=0.8" yields "it". Malformed or
// unsupported preferences yield DefaultLocale.
func MatchLocale(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return DefaultLocale
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return DefaultLocale
	}
	base, _ := supported[idx].Base()
	return base.String()
}
