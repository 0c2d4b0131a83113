package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DefaultLoginCooldown is the window during which repeated failed logins
// for the same account are refused outright.
const DefaultLoginCooldown = 30 * time.Second

// DefaultMaxLoginAttempts is the failure count that arms the cooldown.
const DefaultMaxLoginAttempts = 5

// UserProvider verifies credentials against the users store. All failure
// paths take comparable time and return the same generic error so callers
// cannot probe which usernames exist.
type UserProvider struct {
	users       Users
	hasher      PasswordAuthenticator
	cooldown    time.Duration
	maxAttempts int
	activity    ActivitySink
	logger      Logger
}

var _ IdentityProvider = (*UserProvider)(nil)

// NewUserProvider creates an IdentityProvider over the users repository.
func NewUserProvider(users Users, opts ...UserProviderOption) *UserProvider {
	p := &UserProvider{
		users:       users,
		hasher:      Bcrypt{},
		cooldown:    DefaultLoginCooldown,
		maxAttempts: DefaultMaxLoginAttempts,
		activity:    NopActivitySink{},
		logger:      defLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// UserProviderOption configures a UserProvider.
type UserProviderOption func(*UserProvider)

// WithLoginCooldown overrides the failed-login cooldown window.
func WithLoginCooldown(d time.Duration) UserProviderOption {
	return func(p *UserProvider) {
		if d > 0 {
			p.cooldown = d
		}
	}
}

// WithMaxLoginAttempts overrides the failure count arming the cooldown.
func WithMaxLoginAttempts(n int) UserProviderOption {
	return func(p *UserProvider) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithPasswordAuthenticator overrides the password hasher.
func WithPasswordAuthenticator(h PasswordAuthenticator) UserProviderOption {
	return func(p *UserProvider) {
		if h != nil {
			p.hasher = h
		}
	}
}

// WithActivitySink wires the audit event sink.
func WithActivitySink(sink ActivitySink) UserProviderOption {
	return func(p *UserProvider) {
		if sink != nil {
			p.activity = sink
		}
	}
}

// WithProviderLogger overrides the logger.
func WithProviderLogger(l Logger) UserProviderOption {
	return func(p *UserProvider) {
		if l != nil {
			p.logger = l
		}
	}
}

// VerifyIdentity checks the identifier and password and returns the matching
// identity. Unknown identifiers still burn a hash comparison so their
// latency matches the wrong-password path.
func (p *UserProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	if password == "" {
		return nil, ErrMismatchedHashAndPassword
	}

	user, err := p.users.GetByUsername(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			_ = p.hasher.ComparePasswordAndHash(password, dummyPasswordHash)
			p.activity.Record(ctx, LoginFailed(identifier, "unknown identifier"))
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, storeError(err, "verify identity lookup failed")
	}

	user.EnsureStatus()

	if p.inCooldown(user) {
		p.activity.Record(ctx, LoginFailed(identifier, "cooldown active"))
		return nil, ErrTooManyLoginAttempts
	}

	if err := p.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if trackErr := p.users.TrackAttemptedLogin(ctx, user); trackErr != nil {
			p.logger.Error("failed to track attempted login for %s: %v", user.ID, trackErr)
		}
		p.activity.Record(ctx, LoginFailed(identifier, "password mismatch"))
		return nil, ErrMismatchedHashAndPassword
	}

	// Password checked out; only now may the response reveal account state.
	if serr := statusAuthError(user.Status); serr != nil {
		p.activity.Record(ctx, LoginFailed(identifier, "account disabled"))
		return nil, serr
	}

	if err := p.users.TrackSuccessfulLogin(ctx, user); err != nil {
		p.logger.Error("failed to track successful login for %s: %v", user.ID, err)
	}

	p.activity.Record(ctx, LoginSucceeded(user.ID.String(), identifier))

	return NewUserIdentity(user), nil
}

// FindIdentityByIdentifier looks up an identity without verifying a
// password. Identifiers that parse as uuids resolve by primary key, which is
// how refresh rotation loads the token's owner; anything else resolves by
// username.
func (p *UserProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	var user *User
	var err error

	if _, parseErr := uuid.Parse(identifier); parseErr == nil {
		user, err = p.users.GetByID(ctx, identifier)
	} else {
		user, err = p.users.GetByUsername(ctx, identifier)
	}

	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, storeError(err, "identity lookup failed")
	}
	return NewUserIdentity(user), nil
}

func (p *UserProvider) inCooldown(user *User) bool {
	if user.LoginAttempts < p.maxAttempts {
		return false
	}
	return IsWithinThresholdPeriod(user.LoginAttemptAt, p.cooldown)
}

// storeError wraps infrastructure failures so they surface as availability
// problems rather than authentication ones.
func storeError(err error, msg string) error {
	return errors.Wrap(err, ErrStoreUnavailable.Category, msg).
		WithTextCode(ErrStoreUnavailable.TextCode)
}
