package auth

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRouterSessionFromClaims(t *testing.T) {
	t.Parallel()

	id := uuid.NewString()
	claims := &JWTClaims{UID: id, UserRole: RoleCoord}

	ctx := &mockRouterContext{}
	ctx.On("Locals", "user").Return(claims)

	session, err := GetRouterSession(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, id, session.GetUserID())
	assert.Equal(t, RoleCoord, session.Data["role"])
}

func TestGetRouterSessionFromSessionObject(t *testing.T) {
	t.Parallel()

	id := uuid.NewString()

	ctx := &mockRouterContext{}
	ctx.On("Locals", "user").Return(SessionObject{UserID: id})

	session, err := GetRouterSession(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, id, session.GetUserID())
}

func TestGetRouterSessionMissing(t *testing.T) {
	t.Parallel()

	ctx := &mockRouterContext{}
	ctx.On("Locals", "user").Return(nil)

	_, err := GetRouterSession(ctx, "user")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnableToFindSession)
}

func TestGetRouterSessionWrongType(t *testing.T) {
	t.Parallel()

	ctx := &mockRouterContext{}
	ctx.On("Locals", "user").Return("not a session")

	_, err := GetRouterSession(ctx, "user")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnableToDecodeSession)
}

func TestLoginRequestValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, LoginRequest{Identifier: "ada", Password: "secret"}.Validate())
	assert.Error(t, LoginRequest{Password: "secret"}.Validate())
	assert.Error(t, LoginRequest{Identifier: "ada"}.Validate())
}

func TestRegistrationCreatePayloadValidate(t *testing.T) {
	t.Parallel()

	valid := RegistrationCreatePayload{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Username:        "ada",
		Email:           "ada@internum.example",
		Password:        "a long enough password",
		ConfirmPassword: "a long enough password",
	}
	assert.NoError(t, valid.Validate())

	mismatched := valid
	mismatched.ConfirmPassword = "a different password!"
	assert.Error(t, mismatched.Validate())

	short := valid
	short.Password = "short"
	short.ConfirmPassword = "short"
	assert.Error(t, short.Validate())
}

func TestPasswordResetPayloadsValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, PasswordResetRequestPayload{
		Stage: ResetInit,
		Email: "ada@internum.example",
	}.Validate())

	assert.Error(t, PasswordResetRequestPayload{
		Stage: ChangingPassword,
		Email: "ada@internum.example",
	}.Validate())

	assert.NoError(t, PasswordResetVerifyPayload{
		Stage:           ChangingPassword,
		Password:        "a long enough password",
		ConfirmPassword: "a long enough password",
	}.Validate())

	assert.Error(t, PasswordResetVerifyPayload{
		Stage:           ChangingPassword,
		Password:        "a long enough password",
		ConfirmPassword: "something else entirely",
	}.Validate())
}

func TestFormatValidationErrorToMap(t *testing.T) {
	t.Parallel()

	err := LoginRequest{}.Validate()
	require.Error(t, err)

	out := FormatValidationErrorToMap(err)
	assert.Contains(t, out, "identifier")
	assert.Contains(t, out, "password")

	assert.Empty(t, FormatValidationErrorToMap(nil))

	plain := FormatValidationErrorToMap(fmt.Errorf("boom"))
	assert.Equal(t, "boom", plain["form"])
}
