package session

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

// Sealer encrypts refresh tokens before they reach durable storage. A stolen
// session collection must not yield usable long-lived credentials.
type Sealer struct {
	aead cipher.AEAD
}

func NewSealer(key []byte) (*Sealer, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}

	return &Sealer{
		aead: aead,
	}, nil
}

func (sealer *Sealer) Seal(plaintext string) (string, error) {
	nonce := make([]byte, sealer.aead.NonceSize())
	_, err := rand.Read(nonce)
	if err != nil {
		return "", err
	}

	sealed := sealer.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawStdEncoding.EncodeToString(sealed), nil
}

func (sealer *Sealer) Open(sealed string) (string, error) {
	decoded, err := base64.RawStdEncoding.DecodeString(sealed)
	if err != nil {
		return "", err
	}

	nonceSize := sealer.aead.NonceSize()
	if len(decoded) < nonceSize {
		return "", errors.New("sealed value is shorter than the nonce")
	}

	plaintext, err := sealer.aead.Open(nil, decoded[:nonceSize], decoded[nonceSize:], nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}
