package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// NoExpiry is returned by Backend.TTL for a key that exists without a TTL.
const NoExpiry time.Duration = -1

// Sentinel errors for cache operations.
var (
	ErrNilBackend = errors.New("cache: backend is nil")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
	ErrNotFound   = errors.New("cache: key not found")
)

// Backend is a string key/value store with per-key expiry. It mirrors the
// Redis commands GET, SET [EX], DEL, TTL and EXPIRE.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines where applicable.
// - Errors: Get reports a miss as (nil, false, nil); errors are reserved for
// backend failures.
type Backend interface {
	// Get retrieves a value. Returns (nil, false, nil) on miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. ttl <= 0 stores the value without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value. Idempotent - no error on miss.
	Delete(ctx context.Context, key string) error

	// TTL returns the remaining lifetime of key, NoExpiry for a persistent
	// key, or ErrNotFound.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Expire sets a new TTL on an existing key. It reports whether the key
	// existed.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
