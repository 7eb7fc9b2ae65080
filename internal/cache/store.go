// Package cache stores prediction batches under normalized query keys.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by a Store when a key is absent or expired.
var ErrNotFound = errors.New("cache: key not found")

// Store is a TTL-capable key-value backend.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// NormalizeKey lowercases the query, trims it and joins its whitespace-separated
// tokens with underscores. NormalizeKey(NormalizeKey(q)) == NormalizeKey(q).
func NormalizeKey(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), "_")
}
