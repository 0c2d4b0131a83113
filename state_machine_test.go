package auth

import (
	"context"
	"testing"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	assert.True(t, CanTransition(UserStatusActive, UserStatusDisabled))
	assert.True(t, CanTransition(UserStatusDisabled, UserStatusActive))
	assert.False(t, CanTransition(UserStatusActive, "archived"))
	assert.False(t, CanTransition("archived", UserStatusActive))
}

func TestStateMachineDisableRevokesSessions(t *testing.T) {
	db := setupAuthDB(t)
	users := NewUsersRepository(db)
	sessions := NewRefreshTokensRepository(db)
	sink := &capturingSink{}
	machine := NewAccountStateMachine(users, sessions, sink, nil)
	ctx := context.Background()

	user := seedUser(t, db)
	token := seedRefreshToken(t, db, user.ID)

	require.NoError(t, machine.Disable(ctx, user, System))

	found, err := users.GetByUsername(ctx, user.Username)
	require.NoError(t, err)
	assert.Equal(t, UserStatusDisabled, found.Status)
	assert.NotNil(t, found.DisabledAt)

	revoked, err := sessions.GetByID(ctx, token.ID)
	require.NoError(t, err)
	assert.True(t, revoked.Revoked())

	assert.True(t, sink.has(ActivitySessionsRevoked))
	assert.True(t, sink.has(ActivityStatusChanged))
}

func TestStateMachineReinstate(t *testing.T) {
	db := setupAuthDB(t)
	users := NewUsersRepository(db)
	sessions := NewRefreshTokensRepository(db)
	machine := NewAccountStateMachine(users, sessions, nil, nil)
	ctx := context.Background()

	user := seedUser(t, db)
	require.NoError(t, machine.Disable(ctx, user, System))
	require.NoError(t, machine.Reinstate(ctx, user, System))

	found, err := users.GetByUsername(ctx, user.Username)
	require.NoError(t, err)
	assert.Equal(t, UserStatusActive, found.Status)
	assert.Nil(t, found.DisabledAt)
}

func TestStateMachineSameStatusNoOp(t *testing.T) {
	db := setupAuthDB(t)
	users := NewUsersRepository(db)
	sessions := NewRefreshTokensRepository(db)
	sink := &capturingSink{}
	machine := NewAccountStateMachine(users, sessions, sink, nil)

	user := seedUser(t, db)

	require.NoError(t, machine.Reinstate(context.Background(), user, System))
	assert.Empty(t, sink.kinds())
}

func TestStateMachineInvalidTransition(t *testing.T) {
	db := setupAuthDB(t)
	users := NewUsersRepository(db)
	sessions := NewRefreshTokensRepository(db)
	machine := NewAccountStateMachine(users, sessions, nil, nil)

	user := seedUser(t, db, func(u *User) {
		u.Status = "archived"
	})

	err := machine.Disable(context.Background(), user, System)
	require.Error(t, err)

	var richErr *errors.Error
	require.True(t, errors.As(err, &richErr))
	assert.Equal(t, errors.CategoryConflict, richErr.Category)
}

func TestStateMachineNilUser(t *testing.T) {
	t.Parallel()

	machine := NewAccountStateMachine(nil, nil, nil, nil)
	err := machine.Disable(context.Background(), nil, System)
	assert.True(t, errors.Is(err, ErrIdentityNotFound))
}
