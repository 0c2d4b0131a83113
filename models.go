package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserStatus is the lifecycle state of an account. The auth core only ever
// moves accounts between active and disabled; everything else about a user
// belongs to the portal's user module.
type UserStatus = string

const (
	// UserStatusActive accounts can authenticate.
	UserStatusActive UserStatus = "active"
	// UserStatusDisabled accounts fail every login and silent refresh.
	UserStatusDisabled UserStatus = "disabled"
)

// User is the user model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role           UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	FirstName      string     `bun:"first_name" json:"first_name,omitempty"`
	LastName       string     `bun:"last_name" json:"last_name,omitempty"`
	Username       string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash   string     `bun:"password_hash" json:"password_hash,omitempty"`
	Status         UserStatus `bun:"status,notnull,default:'active'" json:"status,omitempty"`
	LoginAttempts  int        `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	DisabledAt     *time.Time `bun:"disabled_at,nullzero" json:"disabled_at,omitempty"`
	ResetedAt      *time.Time `bun:"reseted_at,nullzero" json:"reseted_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus backfills rows created before the status column existed.
func (u *User) EnsureStatus() {
	if u != nil && u.Status == "" {
		u.Status = UserStatusActive
	}
}

// IsActive reports whether the account may authenticate.
func (u *User) IsActive() bool {
	if u == nil {
		return false
	}
	u.EnsureStatus()
	return u.Status == UserStatusActive
}

func statusAuthError(status UserStatus) error {
	switch status {
	case "", UserStatusActive:
		return nil
	default:
		return ErrUserDisabled
	}
}

// RefreshToken is the persisted record backing one browser session. The row
// id doubles as the opaque token value delivered in the refresh cookie;
// nothing secret beyond the identifier ever leaves the server.
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rft"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Device        string     `bun:"device" json:"device,omitempty"`
	IssuedAt      time.Time  `bun:"issued_at,notnull" json:"issued_at,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	RevokedAt     *time.Time `bun:"revoked_at,nullzero" json:"revoked_at,omitempty"`
	ReplacedBy    *uuid.UUID `bun:"replaced_by,nullzero,type:uuid" json:"replaced_by,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Revoked reports whether the record was rotated away or explicitly revoked.
func (t *RefreshToken) Revoked() bool {
	return t != nil && t.RevokedAt != nil
}

// ExpiredAt reports whether the record is past its expiry at the given time.
func (t *RefreshToken) ExpiredAt(now time.Time) bool {
	return t == nil || !now.Before(t.ExpiresAt)
}

// PasswordResetStatus values for the single-use reset records.
const (
	// ResetRequestedStatus is the requested status
	ResetRequestedStatus = "requested"
	// ResetExpiredStatus is the expired status
	ResetExpiredStatus = "expired"
	// ResetChangedStatus is the changed status
	ResetChangedStatus = "changed"
)

// PasswordReset is a single-use reset record; the row id is the token that
// lands in the emailed link.
type PasswordReset struct {
	bun.BaseModel `bun:"table:password_reset,alias:pwdr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        *uuid.UUID `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Status        string     `bun:"status,notnull" json:"status,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	ResetedAt     *time.Time `bun:"reseted_at,nullzero" json:"reseted_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Consumed reports whether the record was already used.
func (p *PasswordReset) Consumed() bool {
	return p != nil && p.Status == ResetChangedStatus
}
