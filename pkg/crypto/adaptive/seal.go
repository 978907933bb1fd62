package adaptive

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// SealedPrefix marks a sealed value.
const SealedPrefix = "sealed:"

// ErrMalformedSealed reports text that is not a sealed value.
var ErrMalformedSealed = errors.New("adaptive: malformed sealed value")

// IsSealed reports whether s carries the sealed prefix.
func IsSealed(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), SealedPrefix)
}

// Seal encrypts plaintext with c and returns the sealed text form.
func Seal(c Cipher, plaintext, additionalData []byte) (string, error) {
	ct, err := c.Encrypt(plaintext, additionalData)
	if err != nil {
		return "", err
	}
	return SealedPrefix + string(c.Type()) + ":" + base64.StdEncoding.EncodeToString(ct), nil
}

// Open decrypts a value produced by Seal. The cipher is taken from the
// text, not from the host.
func Open(key []byte, sealed string, additionalData []byte) ([]byte, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(sealed), SealedPrefix)
	if !ok {
		return nil, ErrMalformedSealed
	}
	typ, payload, ok := strings.Cut(rest, ":")
	if !ok {
		return nil, ErrMalformedSealed
	}
	ct, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSealed, err)
	}

	c, err := NewWithType(key, CipherType(typ))
	if err != nil {
		return nil, err
	}
	return c.Decrypt(ct, additionalData)
}

// ParseKey decodes a 32-byte key given as 64 hex digits or as base64.
func ParseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if len(s) == hex.EncodedLen(KeySize) {
		if key, err := hex.DecodeString(s); err == nil {
			return key, nil
		}
	}
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	return key, nil
}

// GenerateKey returns a random key in hex.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}
