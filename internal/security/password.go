package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrUnusablePassword is returned when checking against an account that has
// no password set.
var ErrUnusablePassword = errors.New("password not set")

// HashPassword hashes a plain text password with bcrypt.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with a plaintext password. An empty
// hash never matches.
func CheckPassword(hash, plain string) error {
	if hash == "" {
		return ErrUnusablePassword
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
