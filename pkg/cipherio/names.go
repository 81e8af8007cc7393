package cipherio

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// EncryptName encrypts a short string with AES-GCM and encodes the result
// as URL-safe base64. The output contains only filename-safe characters,
// so it can serve as an on-disk storage name or a query parameter value.
func (c *Cipher) EncryptName(name string) (string, error) {
	gcm, err := cipher.NewGCM(c.block)
	if err != nil {
		return "", fmt.Errorf("create gcm: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(name), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// DecryptName reverses EncryptName. Tampered or malformed input fails
// authentication and returns an error.
func (c *Cipher) DecryptName(encoded string) (string, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode name: %w", err)
	}

	gcm, err := cipher.NewGCM(c.block)
	if err != nil {
		return "", fmt.Errorf("create gcm: %w", err)
	}

	if len(sealed) < gcm.NonceSize() {
		return "", fmt.Errorf("ciphertext shorter than nonce")
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	name, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt name: %w", err)
	}

	return string(name), nil
}
