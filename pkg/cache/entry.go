package cache

import (
	"time"
)

// Entry is a single memoized result.
type Entry struct {
	// Key is the digest the entry is stored under
	Key string `json:"key"`

	// Value is the result returned by the computation
	Value any `json:"value"`

	// InsertedAt is when the value was stored
	InsertedAt time.Time `json:"inserted_at"`

	// Expires is InsertedAt plus the cache TTL; reads never move it
	Expires time.Time `json:"expires"`
}

// IsExpired reports whether the entry is stale at the given instant.
func (e *Entry) IsExpired(now time.Time) bool {
	return !now.Before(e.Expires)
}

// TTL returns the remaining lifetime at the given instant.
// Returns 0 if already expired.
func (e *Entry) TTL(now time.Time) time.Duration {
	ttl := e.Expires.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}
