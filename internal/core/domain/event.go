package domain

import "time"

// AuthEventKind names a security-relevant account action.
type AuthEventKind string

const (
	EventRegistered      AuthEventKind = "registered"
	EventLoginSucceeded  AuthEventKind = "login_succeeded"
	EventLoginFailed     AuthEventKind = "login_failed"
	EventLoggedOut       AuthEventKind = "logged_out"
	EventProfileUpdated  AuthEventKind = "profile_updated"
	EventPasswordChanged AuthEventKind = "password_changed"
	EventAccountDeleted  AuthEventKind = "account_deleted"
	EventAccessUpdated   AuthEventKind = "access_updated"
)

// AuthEvent is one entry of the account audit trail.
type AuthEvent struct {
	ID     string
	Kind   AuthEventKind
	UserID string // empty for failed logins against unknown emails
	Email  string
	IP     string
	At     time.Time
}

// ShardKey groups events that must be processed in order.
func (e AuthEvent) ShardKey() string {
	if e.UserID != "" {
		return e.UserID
	}
	return e.Email
}
