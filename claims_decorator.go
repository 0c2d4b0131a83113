package auth

import "context"

// ClaimsDecorator enriches claims before signing, e.g. stamping a tenant or
// locale into the metadata extension. Decorators must not touch identity or
// expiry claims; the guard rejects the token if they do.
type ClaimsDecorator interface {
	Decorate(ctx context.Context, identity Identity, claims *JWTClaims) error
}

// ClaimsDecoratorFunc adapts a function to the ClaimsDecorator interface.
type ClaimsDecoratorFunc func(ctx context.Context, identity Identity, claims *JWTClaims) error

func (f ClaimsDecoratorFunc) Decorate(ctx context.Context, identity Identity, claims *JWTClaims) error {
	return f(ctx, identity, claims)
}

type noopClaimsDecorator struct{}

func (noopClaimsDecorator) Decorate(context.Context, Identity, *JWTClaims) error {
	return nil
}

func normalizeClaimsDecorator(d ClaimsDecorator) ClaimsDecorator {
	if d == nil {
		return noopClaimsDecorator{}
	}
	return d
}
