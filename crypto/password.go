package crypto

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordLength is the bcrypt input limit. Longer inputs are rejected
// instead of being silently truncated.
const MaxPasswordLength = 72

var (
	ErrPasswordEmpty   = errors.New("password is empty")
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
)

// CheckPassword compares a bcrypt hashed password with its possible plaintext equivalent.
// A malformed or empty hash is never an error, it just does not match.
func CheckPassword(password, hash string) bool {
	if hash == "" || len(password) > MaxPasswordLength {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GenerateHash creates a salted bcrypt hash from a password using the default cost.
func GenerateHash(password string) (string, error) {
	if password == "" {
		return "", ErrPasswordEmpty
	}
	if len(password) > MaxPasswordLength {
		return "", ErrPasswordTooLong
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}
