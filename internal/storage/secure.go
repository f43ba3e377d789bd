package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/mopay/agent-service/internal/utils"
)

// EncryptedStore layers encryption-at-rest over a raw key-value store.
// Stored values have the form "<hex(IV||ciphertext)>.<hex(hmac)>"; the HMAC
// covers the ciphertext so silent corruption is detected on read.
type EncryptedStore struct {
	raw        SecureStore
	key        []byte
	hmacSecret string
}

// NewEncryptedStore wraps raw with AES encryption and HMAC integrity tagging.
func NewEncryptedStore(raw SecureStore, key []byte, hmacSecret string) *EncryptedStore {
	return &EncryptedStore{raw: raw, key: key, hmacSecret: hmacSecret}
}

// Get reads and decrypts the value under key.
func (e *EncryptedStore) Get(ctx context.Context, key string) (string, error) {
	stored, err := e.raw.Get(ctx, key)
	if err != nil {
		return "", err
	}

	parts := strings.SplitN(stored, ".", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("malformed sealed value for key %q", key)
	}
	if !utils.VerifyHMAC(parts[0], parts[1], e.hmacSecret) {
		return "", fmt.Errorf("integrity check failed for key %q", key)
	}

	plaintext, err := utils.Decrypt(parts[0], e.key)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt key %q: %w", key, err)
	}
	return plaintext, nil
}

// Set encrypts the value and writes it under key.
func (e *EncryptedStore) Set(ctx context.Context, key, value string) error {
	sealed, err := utils.Encrypt(value, e.key)
	if err != nil {
		return fmt.Errorf("failed to encrypt key %q: %w", key, err)
	}
	tag := utils.GenerateHMAC(sealed, e.hmacSecret)
	return e.raw.Set(ctx, key, sealed+"."+tag)
}

// Delete removes the value under key.
func (e *EncryptedStore) Delete(ctx context.Context, key string) error {
	return e.raw.Delete(ctx, key)
}
