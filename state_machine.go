package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
)

// ActorRef identifies who drove an account transition, for the audit trail.
type ActorRef struct {
	ID   string
	Role UserRole
}

// System is the actor used for transitions no human initiated, e.g. an
// automated disable after an incident response runbook.
var System = ActorRef{ID: "system", Role: RoleAdmin}

// allowed transitions; anything absent is rejected.
var accountTransitions = map[UserStatus][]UserStatus{
	UserStatusActive:   {UserStatusDisabled},
	UserStatusDisabled: {UserStatusActive},
}

// AccountStateMachine moves accounts between active and disabled. A
// transition persists the new status and revokes every open session when an
// account goes dark, so silent refresh dies with the account.
type AccountStateMachine struct {
	users    Users
	sessions RefreshTokens
	activity ActivitySink
	logger   Logger
	now      func() time.Time
}

// NewAccountStateMachine wires the lifecycle machine.
func NewAccountStateMachine(users Users, sessions RefreshTokens, activity ActivitySink, logger Logger) *AccountStateMachine {
	if activity == nil {
		activity = NopActivitySink{}
	}
	if logger == nil {
		logger = defLogger{}
	}
	return &AccountStateMachine{
		users:    users,
		sessions: sessions,
		activity: activity,
		logger:   logger,
		now:      time.Now,
	}
}

// CanTransition reports whether from may move to target.
func CanTransition(from, target UserStatus) bool {
	for _, t := range accountTransitions[from] {
		if t == target {
			return true
		}
	}
	return false
}

// Disable moves an account to disabled and revokes its sessions.
func (m *AccountStateMachine) Disable(ctx context.Context, user *User, actor ActorRef) error {
	return m.transition(ctx, user, UserStatusDisabled, actor)
}

// Reinstate moves a disabled account back to active. Existing sessions stay
// revoked; the user logs in again.
func (m *AccountStateMachine) Reinstate(ctx context.Context, user *User, actor ActorRef) error {
	return m.transition(ctx, user, UserStatusActive, actor)
}

func (m *AccountStateMachine) transition(ctx context.Context, user *User, target UserStatus, actor ActorRef) error {
	if user == nil {
		return ErrIdentityNotFound
	}

	user.EnsureStatus()
	from := user.Status

	if from == target {
		return nil
	}

	if !CanTransition(from, target) {
		return errors.New("invalid account transition", errors.CategoryConflict).
			WithCode(errors.CodeConflict).
			WithMetadata(map[string]any{"from": from, "to": target})
	}

	now := m.now()
	user.Status = target
	if target == UserStatusDisabled {
		user.DisabledAt = &now
	} else {
		user.DisabledAt = nil
	}

	if err := m.users.UpdateStatus(ctx, user); err != nil {
		return storeError(err, "persist account transition failed")
	}

	if target == UserStatusDisabled {
		if _, err := m.sessions.RevokeAllForUser(ctx, user.ID); err != nil {
			m.logger.Error("failed to revoke sessions for disabled account %s: %v", user.ID, err)
		} else {
			m.activity.Record(ctx, SessionsRevoked(user.ID.String(), "account disabled by "+actor.ID))
		}
	}

	m.activity.Record(ctx, StatusChanged(user.ID.String(), from, target))

	return nil
}
