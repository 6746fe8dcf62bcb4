// Package crypto encrypts text fields of the clipboard history at rest.
// Keys are SHA-256 digests of the user passphrase; ciphertext is
// AES-256-GCM with a random nonce prefix, base64-encoded for text columns.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// Placeholder replaces any field that cannot be decrypted.
const Placeholder = "[encrypted content unavailable]"

var (
	// ErrInvalidCiphertext is returned when the input is not something Encrypt produced.
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	// ErrDecrypt is returned when authentication fails, usually a wrong passphrase.
	ErrDecrypt = errors.New("decryption failed")
	// ErrEmptyPassphrase is returned by NewCipher for an empty passphrase.
	ErrEmptyPassphrase = errors.New("empty passphrase")
)

// Cipher seals and opens strings under a key derived from a passphrase.
// It is safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// DeriveKey maps a passphrase to a 32-byte AES-256 key.
func DeriveKey(passphrase string) [32]byte {
	return sha256.Sum256([]byte(passphrase))
}

// NewCipher builds a Cipher for passphrase.
func NewCipher(passphrase string) (*Cipher, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	key := DeriveKey(passphrase)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Cipher{aead: gcm}, nil
}

// Encrypt returns base64(nonce || ciphertext). Every call uses a fresh nonce,
// so equal plaintexts never produce equal output.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (c *Cipher) Decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize+c.aead.Overhead() {
		return "", ErrInvalidCiphertext
	}
	plain, err := c.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", ErrDecrypt
	}
	if !utf8.Valid(plain) {
		return "", ErrDecrypt
	}
	return string(plain), nil
}

// DecryptOrPlaceholder never fails: a nil cipher or any decryption error
// yields Placeholder.
func (c *Cipher) DecryptOrPlaceholder(encoded string) (string, bool) {
	if c == nil {
		return Placeholder, false
	}
	plain, err := c.Decrypt(encoded)
	if err != nil {
		return Placeholder, false
	}
	return plain, true
}
