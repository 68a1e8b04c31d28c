package cache

import (
	"time"
)

// CacheService is the fetch-block gate. The fetcher records a key per
// target host after a rate-limit response; while the key lives, the
// host is skipped.
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}
