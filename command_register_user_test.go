package auth

import (
	"context"
	"testing"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterUser(t *testing.T) {
	db := setupAuthDB(t)
	repo := NewRepositoryManager(db)
	sink := &capturingSink{}
	handler := &RegisterUserHandler{repo: repo, activity: sink}
	ctx := context.Background()

	err := handler.Execute(ctx, RegisterUserMessage{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@internum.example",
		Password:  "a perfectly fine secret",
	})
	require.NoError(t, err)

	// Username defaults to the email's local part, role to member.
	user, err := repo.Users().GetByUsername(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, "ada@internum.example", user.Email)
	assert.Equal(t, RoleMember, user.Role)
	assert.Equal(t, UserStatusActive, user.Status)
	assert.NoError(t, ComparePasswordAndHash("a perfectly fine secret", user.PasswordHash))

	assert.True(t, sink.has(ActivityUserRegistered))
}

func TestRegisterUserTakenUsername(t *testing.T) {
	db := setupAuthDB(t)
	repo := NewRepositoryManager(db)
	handler := &RegisterUserHandler{repo: repo}
	existing := seedUser(t, db)

	err := handler.Execute(context.Background(), RegisterUserMessage{
		Username: existing.Username,
		Email:    "other@internum.example",
		Password: "a perfectly fine secret",
	})
	require.Error(t, err)

	var richErr *errors.Error
	require.True(t, errors.As(err, &richErr))
	assert.Equal(t, errors.CategoryConflict, richErr.Category)
}

func TestRegisterUserInvalidInput(t *testing.T) {
	db := setupAuthDB(t)
	repo := NewRepositoryManager(db)
	handler := &RegisterUserHandler{repo: repo}
	ctx := context.Background()

	// No username and no email to derive one from.
	err := handler.Execute(ctx, RegisterUserMessage{Password: "a perfectly fine secret"})
	require.Error(t, err)

	// Empty password.
	err = handler.Execute(ctx, RegisterUserMessage{
		Username: "grace",
		Email:    "grace@internum.example",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoEmptyString))

	// Unknown role.
	err = handler.Execute(ctx, RegisterUserMessage{
		Username: "grace",
		Email:    "grace@internum.example",
		Password: "a perfectly fine secret",
		Role:     "superuser",
	})
	require.Error(t, err)
}
