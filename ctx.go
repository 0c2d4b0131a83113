package auth

import "context"

type contextKey string

const (
	sessionContextKey contextKey = "auth:session"
	claimsContextKey  contextKey = "auth:claims"
)

// WithSession returns a context carrying the authenticated session.
func WithSession(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// SessionFromContext retrieves the session stored by the middleware. The
// second return is false for anonymous requests.
func SessionFromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(Session)
	return session, ok
}

// WithClaims returns a context carrying validated token claims.
func WithClaims(ctx context.Context, claims AuthClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext retrieves claims stored by the middleware.
func ClaimsFromContext(ctx context.Context) (AuthClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(AuthClaims)
	return claims, ok
}
