package auth

// TokenValidator validates a raw token string into structured claims. The
// default is the module's own TokenService; deployments can layer extra
// validators for tokens minted elsewhere.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// TokenValidatorFunc adapts a function to the TokenValidator interface.
type TokenValidatorFunc func(tokenString string) (AuthClaims, error)

func (f TokenValidatorFunc) Validate(tokenString string) (AuthClaims, error) {
	return f(tokenString)
}

// MultiValidator tries each validator in order and returns the first
// successful result. Expired beats malformed when every validator fails, so
// the middleware can still trigger a silent refresh.
type MultiValidator struct {
	validators []TokenValidator
}

// NewMultiValidator creates a validator chain.
func NewMultiValidator(validators ...TokenValidator) *MultiValidator {
	return &MultiValidator{validators: validators}
}

func (m *MultiValidator) Validate(tokenString string) (AuthClaims, error) {
	var lastErr error
	var expiredErr error

	for _, v := range m.validators {
		if v == nil {
			continue
		}
		claims, err := v.Validate(tokenString)
		if err == nil {
			return claims, nil
		}
		if IsTokenExpiredError(err) {
			expiredErr = err
		}
		lastErr = err
	}

	if expiredErr != nil {
		return nil, expiredErr
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrTokenMalformed
}
