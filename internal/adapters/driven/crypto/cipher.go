// Package crypto seals credential material before it is written to disk.
package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/custodia-labs/listingsync/internal/core/ports/driven"
)

// Ensure Cipher implements the interface.
var _ driven.TokenCipher = (*Cipher)(nil)

// version prefixes every sealed value so the format can change later.
const version byte = 1

var hkdfInfo = []byte("listingsync token cipher v1")

// ErrEmptyKey is returned when no encryption key is configured.
var ErrEmptyKey = errors.New("encryption key is empty")

// ErrCorrupt is returned when sealed data cannot be opened.
var ErrCorrupt = errors.New("sealed token is corrupt or was sealed with another key")

// Cipher seals tokens with XChaCha20-Poly1305. The AEAD key is derived
// from the configured passphrase with HKDF-SHA256.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives a key from passphrase.
func NewCipher(passphrase string) (*Cipher, error) {
	if passphrase == "" {
		return nil, ErrEmptyKey
	}

	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(passphrase), nil, hkdfInfo)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Seal encrypts plaintext. Empty input stays empty so absent tokens remain absent.
func (c *Cipher) Seal(plaintext []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, nil
	}

	nonceSize := c.aead.NonceSize()
	out := make([]byte, 1+nonceSize, 1+nonceSize+len(plaintext)+c.aead.Overhead())
	out[0] = version
	if _, err := rand.Read(out[1:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return c.aead.Seal(out, out[1:], plaintext, []byte{version}), nil
}

// Open decrypts data produced by Seal.
func (c *Cipher) Open(sealed []byte) ([]byte, error) {
	if len(sealed) == 0 {
		return nil, nil
	}

	nonceSize := c.aead.NonceSize()
	if len(sealed) < 1+nonceSize+c.aead.Overhead() || sealed[0] != version {
		return nil, ErrCorrupt
	}

	plaintext, err := c.aead.Open(nil, sealed[1:1+nonceSize], sealed[1+nonceSize:], []byte{version})
	if err != nil {
		return nil, ErrCorrupt
	}
	return plaintext, nil
}
