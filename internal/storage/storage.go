package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("key not found")

// SecureStore is the key-value contract for sensitive data (tokens, API keys,
// accounts, SIM assignments). Values are encrypted at rest.
type SecureStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// AppStore is the key-value contract for non-sensitive, higher-volume data
// such as the transaction ledger and UI preferences.
type AppStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}
