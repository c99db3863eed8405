package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

const keySize = 32

var (
	ErrShortKey          = errors.New("master key must be at least 32 bytes")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
)

// KeyBox seals provider API keys with AES-256-GCM. Only the first 32 bytes of
// the master key are used.
type KeyBox struct {
	aead cipher.AEAD
}

func NewKeyBox(masterKey string) (*KeyBox, error) {
	if len(masterKey) < keySize {
		return nil, ErrShortKey
	}
	block, err := aes.NewCipher([]byte(masterKey)[:keySize])
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return &KeyBox{aead: aead}, nil
}

// Seal returns base64url(nonce || ciphertext).
func (k *KeyBox) Seal(plaintext string) (string, error) {
	nonce := make([]byte, k.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	sealed := k.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (k *KeyBox) Open(encoded string) (string, error) {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	nonceSize := k.aead.NonceSize()
	if len(data) < nonceSize {
		return "", ErrInvalidCiphertext
	}
	plaintext, err := k.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	return string(plaintext), nil
}
