package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

// Sealer protects token values at rest
type Sealer interface {
	Seal(plain string) (string, error)
	Open(sealed string) (string, error)
}

// NopSealer stores values as they are
type NopSealer struct{}

func (NopSealer) Seal(plain string) (string, error)  { return plain, nil }
func (NopSealer) Open(sealed string) (string, error) { return sealed, nil }

var errSealed = errors.New("sealed value is corrupt or was sealed with another key")

// SecretBoxSealer seals values with NaCl secretbox under a key derived from a passphrase
type SecretBoxSealer struct {
	key [32]byte
}

// NewSecretBoxSealer derives the box key from passphrase
func NewSecretBoxSealer(passphrase string) *SecretBoxSealer {
	return &SecretBoxSealer{key: sha256.Sum256([]byte(passphrase))}
}

// NewSealer returns a secretbox sealer, or a NopSealer when passphrase is empty
func NewSealer(passphrase string) Sealer {
	if passphrase == "" {
		return NopSealer{}
	}
	return NewSecretBoxSealer(passphrase)
}

func (s *SecretBoxSealer) Seal(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plain), &nonce, &s.key)
	return base64.RawURLEncoding.EncodeToString(box), nil
}

func (s *SecretBoxSealer) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(raw) < 24+secretbox.Overhead {
		return "", errSealed
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plain, ok := secretbox.Open(nil, raw[24:], &nonce, &s.key)
	if !ok {
		return "", errSealed
	}
	return string(plain), nil
}
