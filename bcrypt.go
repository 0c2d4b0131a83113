package auth

import (
	"github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// Bcrypt implements PasswordAuthenticator over golang.org/x/crypto/bcrypt.
type Bcrypt struct{}

var _ PasswordAuthenticator = (*Bcrypt)(nil)

// HashPassword returns the bcrypt hash of the given password.
func (b Bcrypt) HashPassword(password string) (string, error) {
	return HashPassword(password)
}

// ComparePasswordAndHash checks the password against the stored hash.
func (b Bcrypt) ComparePasswordAndHash(password, hash string) error {
	return ComparePasswordAndHash(password, hash)
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}

	return string(bytes), nil
}

// ComparePasswordAndHash will compare a password and a hash
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrMismatchedHashAndPassword
	}
	return nil
}

// dummyPasswordHash is a valid bcrypt digest compared against when the
// identifier matches no account, so the unknown-user path costs the same
// as a wrong-password one.
var dummyPasswordHash = func() string {
	h, err := bcrypt.GenerateFromPassword([]byte("timing-equalizer"), passwordHashCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}()
