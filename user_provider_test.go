package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingSink struct {
	mu     sync.Mutex
	events []ActivityEvent
}

func (s *capturingSink) Record(_ context.Context, event ActivityEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *capturingSink) kinds() []ActivityKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ActivityKind, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Kind)
	}
	return out
}

func (s *capturingSink) has(kind ActivityKind) bool {
	for _, k := range s.kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

func TestVerifyIdentitySuccess(t *testing.T) {
	db := setupAuthDB(t)
	repo := NewUsersRepository(db)
	sink := &capturingSink{}
	provider := NewUserProvider(repo, WithActivitySink(sink))
	user := seedUser(t, db)

	identity, err := provider.VerifyIdentity(context.Background(), user.Username, "correct horse battery staple")
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), identity.ID())
	assert.Equal(t, user.Username, identity.Username())
	assert.Equal(t, RoleMember, identity.Role())
	assert.True(t, sink.has(ActivityLoginSucceeded))
}

func TestVerifyIdentityWrongPassword(t *testing.T) {
	db := setupAuthDB(t)
	repo := NewUsersRepository(db)
	provider := NewUserProvider(repo)
	user := seedUser(t, db)
	ctx := context.Background()

	_, err := provider.VerifyIdentity(ctx, user.Username, "definitely wrong")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMismatchedHashAndPassword))

	// The failed attempt must be counted.
	found, err := repo.GetByUsername(ctx, user.Username)
	require.NoError(t, err)
	assert.Equal(t, 1, found.LoginAttempts)
}

func TestVerifyIdentityUnknownUserSameError(t *testing.T) {
	db := setupAuthDB(t)
	repo := NewUsersRepository(db)
	provider := NewUserProvider(repo)
	user := seedUser(t, db)
	ctx := context.Background()

	_, unknownErr := provider.VerifyIdentity(ctx, "nobody", "whatever password")
	_, wrongErr := provider.VerifyIdentity(ctx, user.Username, "definitely wrong")

	// Unknown identifier and wrong password are indistinguishable.
	require.Error(t, unknownErr)
	require.Error(t, wrongErr)
	assert.True(t, errors.Is(unknownErr, ErrMismatchedHashAndPassword))
	assert.True(t, errors.Is(wrongErr, ErrMismatchedHashAndPassword))
}

func TestVerifyIdentityEmptyPassword(t *testing.T) {
	db := setupAuthDB(t)
	provider := NewUserProvider(NewUsersRepository(db))
	user := seedUser(t, db)

	_, err := provider.VerifyIdentity(context.Background(), user.Username, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMismatchedHashAndPassword))
}

func TestVerifyIdentityDisabledAfterValidPassword(t *testing.T) {
	db := setupAuthDB(t)
	repo := NewUsersRepository(db)
	provider := NewUserProvider(repo)
	user := seedUser(t, db, func(u *User) {
		u.Status = UserStatusDisabled
	})
	ctx := context.Background()

	// Wrong password on a disabled account: generic error, no status leak.
	_, err := provider.VerifyIdentity(ctx, user.Username, "definitely wrong")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMismatchedHashAndPassword))

	// Correct password: only now the disabled status is revealed.
	_, err = provider.VerifyIdentity(ctx, user.Username, "correct horse battery staple")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUserDisabled))
}

func TestVerifyIdentityCooldown(t *testing.T) {
	db := setupAuthDB(t)
	repo := NewUsersRepository(db)
	provider := NewUserProvider(repo,
		WithMaxLoginAttempts(2),
		WithLoginCooldown(time.Minute),
	)
	user := seedUser(t, db)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := provider.VerifyIdentity(ctx, user.Username, "definitely wrong")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMismatchedHashAndPassword))
	}

	// Cooldown armed; even the correct password is refused now.
	_, err := provider.VerifyIdentity(ctx, user.Username, "correct horse battery staple")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooManyLoginAttempts))
}

func TestVerifyIdentityCooldownExpires(t *testing.T) {
	db := setupAuthDB(t)
	repo := NewUsersRepository(db)
	provider := NewUserProvider(repo,
		WithMaxLoginAttempts(1),
		WithLoginCooldown(10*time.Millisecond),
	)
	user := seedUser(t, db)
	ctx := context.Background()

	_, err := provider.VerifyIdentity(ctx, user.Username, "definitely wrong")
	require.Error(t, err)

	time.Sleep(20 * time.Millisecond)

	identity, err := provider.VerifyIdentity(ctx, user.Username, "correct horse battery staple")
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), identity.ID())

	// Success clears the attempt counters.
	found, err := repo.GetByUsername(ctx, user.Username)
	require.NoError(t, err)
	assert.Equal(t, 0, found.LoginAttempts)
}

func TestFindIdentityByIdentifier(t *testing.T) {
	db := setupAuthDB(t)
	provider := NewUserProvider(NewUsersRepository(db))
	user := seedUser(t, db)
	ctx := context.Background()

	identity, err := provider.FindIdentityByIdentifier(ctx, user.Username)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), identity.ID())

	_, err = provider.FindIdentityByIdentifier(ctx, "nobody")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIdentityNotFound))
}
