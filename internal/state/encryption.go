package state

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

const (
	// EncryptionKeyEnvVar holds the passphrase snapshots are sealed with.
	EncryptionKeyEnvVar = "DATASTACKS_SNAPSHOT_KEY"

	encryptedHeader = "# DATASTACKS_ENCRYPTED_SNAPSHOT\n"
)

// Cipher seals snapshots with AES-256-GCM. A nil *Cipher passes content
// through unchanged.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives a key from passphrase. An empty passphrase yields nil.
func NewCipher(passphrase string) (*Cipher, error) {
	if passphrase == "" {
		return nil, nil
	}
	key := sha256.Sum256([]byte(passphrase))
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

// CipherFromEnv builds a cipher from EncryptionKeyEnvVar.
func CipherFromEnv(getenv func(string) string) (*Cipher, error) {
	return NewCipher(getenv(EncryptionKeyEnvVar))
}

// Seal encrypts content and prefixes the header. A nil cipher returns
// content unchanged.
func (c *Cipher) Seal(content []byte) ([]byte, error) {
	if c == nil {
		return content, nil
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, content, nil)
	return []byte(encryptedHeader + base64.StdEncoding.EncodeToString(sealed) + "\n"), nil
}

// Open reverses Seal. Plain content is returned as is.
func (c *Cipher) Open(content []byte) ([]byte, error) {
	if !IsEncrypted(content) {
		return content, nil
	}
	if c == nil {
		return nil, fmt.Errorf("snapshot is encrypted but %s is not set", EncryptionKeyEnvVar)
	}

	encoded := bytes.TrimSpace(bytes.TrimPrefix(content, []byte(encryptedHeader)))
	sealed, err := base64.StdEncoding.DecodeString(string(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode encrypted snapshot: %w", err)
	}

	nonceSize := c.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, sealed := sealed[:nonceSize], sealed[nonceSize:]
	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt snapshot (wrong key?): %w", err)
	}
	return plain, nil
}

// IsEncrypted reports whether content carries the encrypted header.
func IsEncrypted(content []byte) bool {
	return bytes.HasPrefix(content, []byte(encryptedHeader))
}
