package auth

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestEnsureTokenID(t *testing.T) {
	t.Parallel()

	claims := &jwt.RegisteredClaims{}
	ensureTokenID(claims)
	assert.NotEmpty(t, claims.ID)

	existing := claims.ID
	ensureTokenID(claims)
	assert.Equal(t, existing, claims.ID)
}

func TestHasUserUUID(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	got, ok := HasUserUUID(SessionObject{UserID: id.String()})
	assert.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = HasUserUUID(SessionObject{UserID: "not-a-uuid"})
	assert.False(t, ok)

	_, ok = HasUserUUID(nil)
	assert.False(t, ok)
}
