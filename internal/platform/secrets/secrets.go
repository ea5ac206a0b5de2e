// Package secrets generates and verifies voucher codes. Codes are shown to
// the constituent exactly once in the award letter; only the bcrypt hash is
// stored, so redemption verifies rather than compares.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	dErrors "vouchsafe/pkg/domain-errors"
)

// Generate creates a cryptographically secure random code,
// base64-encoded and URL-safe.
func Generate() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate code: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash creates a bcrypt hash of the provided code for storage.
func Hash(code string) (string, error) {
	if code == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "code cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "code is too long")
		}
		return "", fmt.Errorf("could not hash code: %w", err)
	}
	return string(hashed), nil
}

// Verify checks if a plaintext code matches a bcrypt hash.
func Verify(code, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return dErrors.New(dErrors.CodeInvalidInput, "invalid code")
		}
		return fmt.Errorf("could not verify code: %w", err)
	}
	return nil
}
