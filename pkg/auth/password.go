package auth

import (
	"errors"
	"fmt"

	"github.com/antibyte/linebasic/pkg/configuration"

	"golang.org/x/crypto/bcrypt"
)

// ErrAccessDenied is returned when the access password does not match.
var ErrAccessDenied = errors.New("access denied")

// accessPasswordHash reads the bcrypt hash guarding new sessions. Tests
// replace it.
var accessPasswordHash = func() string {
	return configuration.GetString("Server", "access_password_hash", "")
}

// HashPassword returns the bcrypt hash to put into access_password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckAccessPassword compares password against hash. An empty hash means
// the server is open and every password is accepted.
func CheckAccessPassword(hash, password string) error {
	if hash == "" {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrAccessDenied
	}
	return nil
}
