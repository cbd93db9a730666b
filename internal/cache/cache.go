// Package cache stores extraction results keyed by program URL so
// repeated crawls of the same page skip the provider call.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// ResultKey generates a cache key from a program URL. The version
// segment invalidates old entries when the result format changes.
func ResultKey(url string) string {
	hash := sha256.Sum256([]byte(url))
	return "fundextract:v1:" + hex.EncodeToString(hash[:])
}
