package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// passwordHasher hashes user passwords with bcrypt at a configured cost.
type passwordHasher struct {
	cost int
}

// newPasswordHasher falls back to bcrypt.DefaultCost for a zero cost.
func newPasswordHasher(cost int) passwordHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return passwordHasher{cost: cost}
}

// hash returns the bcrypt hash of password. Passwords bcrypt cannot take
// (longer than 72 bytes) are reported as ErrInvalidPassword.
func (h passwordHasher) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrInvalidPassword
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// matches reports whether password is the plaintext of hash.
func (h passwordHasher) matches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
