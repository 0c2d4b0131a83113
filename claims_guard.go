package auth

import (
	"time"

	"github.com/goliatone/go-errors"
)

// immutableClaimsSnapshot pins the claims a decorator must never rewrite.
type immutableClaimsSnapshot struct {
	subject   string
	uid       string
	role      string
	tokenType string
	issuer    string
	expiresAt time.Time
}

func captureImmutableClaims(claims *JWTClaims) immutableClaimsSnapshot {
	snap := immutableClaimsSnapshot{
		subject:   claims.RegisteredClaims.Subject,
		uid:       claims.UID,
		role:      claims.UserRole,
		tokenType: claims.TokenType,
		issuer:    claims.RegisteredClaims.Issuer,
	}
	if claims.RegisteredClaims.ExpiresAt != nil {
		snap.expiresAt = claims.RegisteredClaims.ExpiresAt.Time
	}
	return snap
}

func (s immutableClaimsSnapshot) validate(claims *JWTClaims) error {
	var expiresAt time.Time
	if claims.RegisteredClaims.ExpiresAt != nil {
		expiresAt = claims.RegisteredClaims.ExpiresAt.Time
	}

	if s.subject != claims.RegisteredClaims.Subject ||
		s.uid != claims.UID ||
		s.role != claims.UserRole ||
		s.tokenType != claims.TokenType ||
		s.issuer != claims.RegisteredClaims.Issuer ||
		!s.expiresAt.Equal(expiresAt) {
		return errors.New("claims decorator mutated protected claims", errors.CategoryInternal).
			WithCode(errors.CodeInternal)
	}

	return nil
}
