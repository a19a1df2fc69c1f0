// Package hash wraps bcrypt password hashing and verification.
package hash

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Password generates a salted hash from a plaintext password.
func Password(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

// Check compares a plaintext password with a stored hash. A malformed hash
// reports as a mismatch rather than an error.
func Check(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
