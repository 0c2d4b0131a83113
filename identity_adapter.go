package auth

// UserIdentity adapts a User row to the Identity interface consumed by the
// token service.
type UserIdentity struct {
	id       string
	username string
	email    string
	role     string
	status   UserStatus
}

var _ Identity = (*UserIdentity)(nil)

// NewUserIdentity builds an Identity view over a user record.
func NewUserIdentity(user *User) *UserIdentity {
	user.EnsureStatus()
	return &UserIdentity{
		id:       user.ID.String(),
		username: user.Username,
		email:    user.Email,
		role:     user.Role,
		status:   user.Status,
	}
}

// ID returns the id
func (u UserIdentity) ID() string { return u.id }

// Username returns the username
func (u UserIdentity) Username() string { return u.username }

// Email returns the email
func (u UserIdentity) Email() string { return u.email }

// Role returns the role
func (u UserIdentity) Role() string { return u.role }

// Status returns the account lifecycle state at load time.
func (u UserIdentity) Status() UserStatus { return u.status }
