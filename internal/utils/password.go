// Package utils provides internal utility functions.
package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	encryptedPrefix = "v2:{"
	encryptedSuffix = "}"
	nonceSize       = 24
)

// IsEncryptedPassword reports whether value uses the "v2:{...}" encrypted format.
func IsEncryptedPassword(value string) bool {
	return strings.HasPrefix(value, encryptedPrefix) && strings.HasSuffix(value, encryptedSuffix)
}

// ParseKey decodes a base64 encoded 32-byte secretbox key.
func ParseKey(encoded string) (*[32]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(raw))
	}
	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}

// EncryptPassword seals a plain password into the "v2:{base64(nonce|box)}" format.
func EncryptPassword(plain string, key *[32]byte) (string, error) {
	if key == nil {
		return "", fmt.Errorf("encryption key is required")
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plain), &nonce, key)
	return encryptedPrefix + base64.StdEncoding.EncodeToString(sealed) + encryptedSuffix, nil
}

// TryDecryptPassword returns the plain password for value.
// Values not in the encrypted format are returned unchanged.
func TryDecryptPassword(value string, key *[32]byte) (string, error) {
	if !IsEncryptedPassword(value) {
		return value, nil
	}
	if key == nil {
		return "", fmt.Errorf("password is encrypted but no key is configured")
	}

	encoded := strings.TrimSuffix(strings.TrimPrefix(value, encryptedPrefix), encryptedSuffix)
	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode encrypted password: %w", err)
	}
	if len(payload) < nonceSize+secretbox.Overhead {
		return "", fmt.Errorf("encrypted password is too short")
	}

	var nonce [nonceSize]byte
	copy(nonce[:], payload[:nonceSize])
	plain, ok := secretbox.Open(nil, payload[nonceSize:], &nonce, key)
	if !ok {
		return "", fmt.Errorf("decrypt password: authentication failed")
	}
	return string(plain), nil
}
