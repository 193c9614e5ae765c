// Package cache provides TTL-bounded key-value caching with sqlite,
// postgres, and redis backends.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache stores serialized values under string keys with a TTL.
type Cache interface {
	// Get returns the value for key and whether it was present and fresh.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Purge removes expired entries.
	Purge(ctx context.Context) error
	Close() error
}

// Key builds a namespaced cache key from a class and its parts. Parts are
// normalized and hashed so arbitrary query text stays a valid key.
func Key(class string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(strings.ToLower(strings.TrimSpace(p))))
		h.Write([]byte{0})
	}
	return class + ":" + hex.EncodeToString(h.Sum(nil))[:32]
}
