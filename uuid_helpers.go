package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ensureTokenID backfills the jti claim so every minted token is traceable
// in logs without relying on callers to set one.
func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}

// HasUserUUID parses the session's user id into a uuid, reporting false for
// sessions whose subject is not a well formed identifier.
func HasUserUUID(session Session) (uuid.UUID, bool) {
	if session == nil {
		return uuid.Nil, false
	}

	id, err := session.GetUserUUID()
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}

	return id, true
}
