package session

import (
	"net/url"

	"github.com/neurolearn/marketplace/internal/core/domain"
)

const (
	LoginPath         = "/login"
	ForbiddenRedirect = "/?error=forbidden"
)

// Requirement describes who may see a page. An empty Roles admits any
// authenticated user.
type Requirement struct {
	Roles []domain.Role
}

type Outcome int

const (
	// OutcomeLoading means the session is still rehydrating: show a
	// placeholder and neither render nor redirect.
	OutcomeLoading Outcome = iota
	OutcomeRedirect
	OutcomeRender
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLoading:
		return "loading"
	case OutcomeRedirect:
		return "redirect"
	case OutcomeRender:
		return "render"
	}
	return "unknown"
}

// Decision is the result of a guard evaluation. Redirect is set only for
// OutcomeRedirect.
type Decision struct {
	Outcome  Outcome
	Redirect string
}

// Evaluate decides what a protected page at path shows for state.
func Evaluate(state State, path string, req Requirement) Decision {
	if state.Loading {
		return Decision{Outcome: OutcomeLoading}
	}
	if !state.Authenticated || state.User == nil {
		return Decision{Outcome: OutcomeRedirect, Redirect: LoginRedirect(path)}
	}
	if len(req.Roles) > 0 && !state.User.Roles.HasAny(req.Roles...) {
		return Decision{Outcome: OutcomeRedirect, Redirect: ForbiddenRedirect}
	}
	return Decision{Outcome: OutcomeRender}
}

// LoginRedirect builds the login URL that returns to path afterwards.
func LoginRedirect(path string) string {
	return LoginPath + "?" + url.Values{"returnTo": {path}}.Encode()
}
