// Package auth issues and verifies the credentials of the packing API:
// bcrypt password and refresh token hashes, and HS256 access tokens.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// RefreshTokenBytes is the entropy of a refresh token before hex encoding
const RefreshTokenBytes = 32

// Hasher hashes and compares secrets with bcrypt
type Hasher struct {
	cost int
}

// NewHasher creates a hasher. Costs outside bcrypt's range fall back to the default.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the bcrypt hash of secret
func (h *Hasher) Hash(secret string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hashed), nil
}

// Compare reports whether secret matches hash. A malformed hash is an error,
// a mismatch is not.
func (h *Hasher) Compare(hash, secret string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("failed to compare secret: %w", err)
	}
}

// GenerateRefreshToken returns a random hex encoded refresh token
func GenerateRefreshToken() (string, error) {
	buf := make([]byte, RefreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
