package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword derives a bcrypt hash from a plain text password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether the plain text password matches the stored
// hash. A mismatch surfaces as bcrypt.ErrMismatchedHashAndPassword.
func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
