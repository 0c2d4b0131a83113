package jwtware

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleLevels orders the portal roles for the fallback validator's RBAC
// checks. Deployments with custom roles supply their own TokenValidator
// instead of editing this.
var RoleLevels = map[string]int{
	"guest":  0,
	"member": 1,
	"coord":  2,
	"admin":  3,
}

// capability floors: the minimum role level each verb requires.
var capabilityLevels = map[string]int{
	"read":   0,
	"edit":   1,
	"create": 2,
	"delete": 3,
}

// Claims is the middleware's own decoding of an access token, used when no
// TokenValidator from the auth package is wired in.
type Claims struct {
	jwt.RegisteredClaims
	UID       string         `json:"uid,omitempty"`
	UserRole  string         `json:"role,omitempty"`
	TokenType string         `json:"typ,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

var _ AuthClaims = (*Claims)(nil)

func (c *Claims) Subject() string {
	return c.RegisteredClaims.Subject
}

func (c *Claims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

func (c *Claims) Role() string {
	return c.UserRole
}

func (c *Claims) can(capability string) bool {
	level, ok := RoleLevels[c.UserRole]
	if !ok {
		return false
	}
	floor, ok := capabilityLevels[capability]
	if !ok {
		return false
	}
	return level >= floor
}

func (c *Claims) CanRead(resource string) bool   { return c.can("read") }
func (c *Claims) CanEdit(resource string) bool   { return c.can("edit") }
func (c *Claims) CanCreate(resource string) bool { return c.can("create") }
func (c *Claims) CanDelete(resource string) bool { return c.can("delete") }

func (c *Claims) HasRole(role string) bool {
	return c.UserRole == role
}

func (c *Claims) IsAtLeast(minRole string) bool {
	level, ok := RoleLevels[c.UserRole]
	if !ok {
		return false
	}
	min, ok := RoleLevels[minRole]
	if !ok {
		return false
	}
	return level >= min
}

// keyfuncValidator parses tokens with the configured key material. It is
// the default when no TokenValidator is provided, which keeps JWKS-backed
// deployments working without the auth package in the loop.
type keyfuncValidator struct {
	keyFn jwt.Keyfunc
}

func (v keyfuncValidator) Validate(tokenString string) (AuthClaims, error) {
	if v.keyFn == nil {
		return nil, ErrJWTMissingOrMalformed
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, v.keyFn, jwt.WithLeeway(5*time.Second))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrJWTMissingOrMalformed
	}

	if claims.TokenType != "" && claims.TokenType != "access" {
		return nil, ErrJWTMissingOrMalformed
	}

	return claims, nil
}
