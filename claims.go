package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTypeAccess is the only token type minted as a JWT; refresh tokens
// are opaque store-backed identifiers, never JWTs.
const TokenTypeAccess = "access"

// AuthClaims represents structured JWT claims with permission checking
type AuthClaims interface {
	Subject() string
	UserID() string
	Role() string
	CanRead(resource string) bool
	CanEdit(resource string) bool
	CanCreate(resource string) bool
	CanDelete(resource string) bool
	HasRole(role string) bool
	IsAtLeast(minRole string) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	UID       string         `json:"uid,omitempty"`
	UserRole  string         `json:"role,omitempty"`
	TokenType string         `json:"typ,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"` // extension payload
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Role returns the global role
func (c *JWTClaims) Role() string {
	return c.UserRole
}

// CanRead checks if the user can read a specific resource
func (c *JWTClaims) CanRead(resource string) bool {
	return Authorize(c.UserRole, CapRead)
}

// CanEdit checks if the user can edit a specific resource
func (c *JWTClaims) CanEdit(resource string) bool {
	return Authorize(c.UserRole, CapEdit)
}

// CanCreate checks if the user can create a specific resource
func (c *JWTClaims) CanCreate(resource string) bool {
	return Authorize(c.UserRole, CapCreate)
}

// CanDelete checks if the user can delete a specific resource
func (c *JWTClaims) CanDelete(resource string) bool {
	return Authorize(c.UserRole, CapDelete)
}

// Permissions returns the effective capability set for the claims' role.
func (c *JWTClaims) Permissions() PermissionSet {
	return EffectivePermissions(c.UserRole)
}

// ClaimsMetadata exposes metadata extensions for optional context enrichment.
func (c *JWTClaims) ClaimsMetadata() map[string]any {
	return c.Metadata
}

// HasRole checks if the user has a specific role
func (c *JWTClaims) HasRole(role string) bool {
	return c.UserRole == role
}

// IsAtLeast checks if the user's role is at least the minimum required role
func (c *JWTClaims) IsAtLeast(minRole string) bool {
	return RoleIsAtLeast(c.UserRole, minRole)
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
