// Package secrets seals provider API keys at rest with authenticated
// symmetric encryption. Stored credentials are AES-256-GCM sealed blobs
// (nonce prepended, tag appended); the plaintext key only exists in memory
// while a provider client is being built.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidCiphertext indicates a sealed blob that is malformed or fails
// authentication, typically because the encryption key changed.
var ErrInvalidCiphertext = errors.New("invalid or tampered ciphertext")

// Keybox encrypts and decrypts credential material with a fixed 256-bit key.
type Keybox struct {
	aead cipher.AEAD
}

// NewKeybox builds a Keybox from a hex-encoded 256-bit key, as provided by
// configuration.
func NewKeybox(hexKey string) (*Keybox, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init GCM: %w", err)
	}
	return &Keybox{aead: aead}, nil
}

// Seal encrypts plaintext and returns nonce||ciphertext||tag.
func (k *Keybox) Seal(plaintext string) ([]byte, error) {
	nonce := make([]byte, k.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return k.aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Open decrypts a sealed blob produced by Seal.
func (k *Keybox) Open(sealed []byte) (string, error) {
	if len(sealed) < k.aead.NonceSize() {
		return "", ErrInvalidCiphertext
	}
	nonce, ciphertext := sealed[:k.aead.NonceSize()], sealed[k.aead.NonceSize():]

	plaintext, err := k.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	return string(plaintext), nil
}

// MaskKey renders an API key safe for display: a short prefix and a masked
// tail.
func MaskKey(key string) string {
	if len(key) <= 12 {
		return "****"
	}
	return key[:10] + "...****"
}
