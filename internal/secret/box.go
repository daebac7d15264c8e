// Package secret seals OAuth credentials before they are written to storage.
package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// sealedPrefix marks values produced by Seal. The version lets the format change later.
const sealedPrefix = "v1:"

// hkdfInfo binds derived keys to this use.
const hkdfInfo = "accountpulse oauth token"

var (
	// ErrMalformed indicates a sealed value could not be decoded.
	ErrMalformed = errors.New("malformed sealed value")
	// ErrKeyRequired indicates a sealed value was read without a key configured.
	ErrKeyRequired = errors.New("encryption key required to open sealed value")
)

// Box encrypts and decrypts short secrets with XChaCha20-Poly1305.
// A Box built from an empty key passes values through unchanged.
type Box struct {
	key []byte
}

// NewBox derives a 256-bit key from the configured secret using HKDF-SHA256.
func NewBox(secret string) (*Box, error) {
	if secret == "" {
		return &Box{}, nil
	}

	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	return &Box{key: key}, nil
}

// Enabled reports whether values are actually encrypted.
func (b *Box) Enabled() bool {
	return len(b.key) > 0
}

// Seal encrypts plaintext. Empty input stays empty.
func (b *Box) Seal(plaintext string) (string, error) {
	if plaintext == "" || !b.Enabled() {
		return plaintext, nil
	}

	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal.
func (b *Box) Open(value string) (string, error) {
	if value == "" {
		return "", nil
	}

	if !strings.HasPrefix(value, sealedPrefix) {
		if b.Enabled() {
			return "", ErrMalformed
		}
		return value, nil
	}
	if !b.Enabled() {
		return "", ErrKeyRequired
	}

	data, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", ErrMalformed
	}

	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	if len(data) < aead.NonceSize()+aead.Overhead() {
		return "", ErrMalformed
	}

	nonce, ciphertext := data[:aead.NonceSize()], data[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}

	return string(plaintext), nil
}
