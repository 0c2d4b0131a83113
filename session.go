package auth

import (
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// SessionObject is the request-scoped view of a validated access token.
type SessionObject struct {
	UserID   string         `json:"user_id"`
	Audience []string       `json:"aud,omitempty"`
	Issuer   string         `json:"iss,omitempty"`
	IssuedAt *time.Time     `json:"iat,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

var _ Session = (*SessionObject)(nil)

// GetUserID returns the user id
func (s SessionObject) GetUserID() string {
	return s.UserID
}

// GetUserUUID parses the subject into a uuid.
func (s SessionObject) GetUserUUID() (uuid.UUID, error) {
	id, err := uuid.Parse(s.UserID)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, ErrUnableToParseData.Category, "session subject is not a uuid").
			WithTextCode(ErrUnableToParseData.TextCode)
	}
	return id, nil
}

// GetAudience returns the audience
func (s SessionObject) GetAudience() []string {
	return s.Audience
}

// GetIssuer returns the issuer
func (s SessionObject) GetIssuer() string {
	return s.Issuer
}

// GetIssuedAt returns the issued at date
func (s SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

// GetData returns session data carried alongside the registered claims.
func (s SessionObject) GetData() map[string]any {
	return s.Data
}

// sessionFromClaims maps validated claims into the Session the rest of the
// request pipeline consumes.
func sessionFromClaims(claims AuthClaims) (Session, error) {
	if claims == nil {
		return nil, ErrUnableToMapClaims
	}

	session := SessionObject{
		UserID: claims.UserID(),
		Data: map[string]any{
			"role": claims.Role(),
		},
	}

	if jc, ok := claims.(*JWTClaims); ok {
		session.Issuer = jc.RegisteredClaims.Issuer
		session.Audience = jc.RegisteredClaims.Audience
		if jc.RegisteredClaims.IssuedAt != nil {
			iat := jc.RegisteredClaims.IssuedAt.Time
			session.IssuedAt = &iat
		}
		for k, v := range jc.Metadata {
			session.Data[k] = v
		}
	}

	return session, nil
}
