package auth

import (
	"context"
	"time"
)

// ActivityKind enumerates the auth events worth an audit trail.
type ActivityKind string

const (
	ActivityLoginSucceeded  ActivityKind = "login.succeeded"
	ActivityLoginFailed     ActivityKind = "login.failed"
	ActivityLogout          ActivityKind = "logout"
	ActivityTokenRefreshed  ActivityKind = "token.refreshed"
	ActivityReuseDetected   ActivityKind = "token.reuse_detected"
	ActivityStatusChanged   ActivityKind = "account.status_changed"
	ActivityPasswordReset   ActivityKind = "password.reset"
	ActivityResetRequested  ActivityKind = "password.reset_requested"
	ActivityUserRegistered  ActivityKind = "user.registered"
	ActivitySessionsRevoked ActivityKind = "sessions.revoked"
)

// ActivityEvent is one audit record. UserID may be empty when the event
// predates identification, e.g. a failed login for an unknown identifier.
type ActivityEvent struct {
	Kind       ActivityKind
	UserID     string
	Identifier string
	Detail     string
	At         time.Time
}

// ActivitySink receives audit events. Implementations must be cheap and
// non-blocking; the auth flow never waits on them.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent)
}

// NopActivitySink discards events.
type NopActivitySink struct{}

func (NopActivitySink) Record(context.Context, ActivityEvent) {}

// LogActivitySink writes events through the module logger.
type LogActivitySink struct {
	Logger Logger
}

func (s LogActivitySink) Record(_ context.Context, event ActivityEvent) {
	logger := s.Logger
	if logger == nil {
		logger = defLogger{}
	}
	logger.Info("auth activity kind=%s user=%s identifier=%s detail=%q", event.Kind, event.UserID, event.Identifier, event.Detail)
}

func newEvent(kind ActivityKind, userID, identifier, detail string) ActivityEvent {
	return ActivityEvent{
		Kind:       kind,
		UserID:     userID,
		Identifier: identifier,
		Detail:     detail,
		At:         time.Now(),
	}
}

// LoginSucceeded builds a successful-login event.
func LoginSucceeded(userID, identifier string) ActivityEvent {
	return newEvent(ActivityLoginSucceeded, userID, identifier, "")
}

// LoginFailed builds a failed-login event. The detail stays server side; it
// is never included in client responses.
func LoginFailed(identifier, detail string) ActivityEvent {
	return newEvent(ActivityLoginFailed, "", identifier, detail)
}

// LoggedOut builds a logout event.
func LoggedOut(userID string) ActivityEvent {
	return newEvent(ActivityLogout, userID, "", "")
}

// TokenRefreshed builds a rotation event.
func TokenRefreshed(userID string) ActivityEvent {
	return newEvent(ActivityTokenRefreshed, userID, "", "")
}

// ReuseDetected builds the reuse alarm event.
func ReuseDetected(userID, tokenID string) ActivityEvent {
	return newEvent(ActivityReuseDetected, userID, "", "refresh token "+tokenID+" replayed")
}

// StatusChanged builds an account lifecycle event.
func StatusChanged(userID string, from, to UserStatus) ActivityEvent {
	return newEvent(ActivityStatusChanged, userID, "", from+" -> "+to)
}

// PasswordWasReset builds a completed-reset event.
func PasswordWasReset(userID string) ActivityEvent {
	return newEvent(ActivityPasswordReset, userID, "", "")
}

// ResetRequested builds a reset-request event.
func ResetRequested(email string) ActivityEvent {
	return newEvent(ActivityResetRequested, "", email, "")
}

// UserRegistered builds a registration event.
func UserRegistered(userID, email string) ActivityEvent {
	return newEvent(ActivityUserRegistered, userID, email, "")
}

// SessionsRevoked builds a family-revocation event.
func SessionsRevoked(userID, reason string) ActivityEvent {
	return newEvent(ActivitySessionsRevoked, userID, "", reason)
}
