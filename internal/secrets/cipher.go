// Package secrets encrypts camera credentials at rest.
//
// Values are AES-256-GCM sealed with a 16 byte nonce under a key derived
// from the operator secret with scrypt, and stored as hex "iv:authTag:ciphertext".
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	nonceSize = 16
	tagSize   = 16
	keySize   = 32
)

// scrypt parameters match the defaults stored credentials were sealed with
const (
	kdfSalt = "salt"
	kdfN    = 16384
	kdfR    = 8
	kdfP    = 1
)

var (
	// ErrMissingKey is returned when no encryption secret is configured
	ErrMissingKey = errors.New("camera encryption key is not set")
	// ErrMalformed is returned for values not in iv:authTag:ciphertext form
	ErrMalformed = errors.New("invalid encrypted data format")
)

// Cipher seals and opens credential strings
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives the AES key from secret
func NewCipher(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, ErrMissingKey
	}

	key, err := scrypt.Key([]byte(secret), []byte(kdfSalt), kdfN, kdfR, kdfP, keySize)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create block cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	return strings.Join([]string{
		hex.EncodeToString(nonce),
		hex.EncodeToString(tag),
		hex.EncodeToString(ct),
	}, ":"), nil
}

// Decrypt opens a value produced by Encrypt
func (c *Cipher) Decrypt(value string) (string, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return "", ErrMalformed
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != nonceSize {
		return "", ErrMalformed
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != tagSize {
		return "", ErrMalformed
	}
	ct, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", ErrMalformed
	}

	plaintext, err := c.aead.Open(nil, nonce, append(ct, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}
