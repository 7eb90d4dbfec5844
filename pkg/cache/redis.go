package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in the shared layer
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the shared entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// DefaultRedisPrefix namespaces shared entries inside Redis.
const DefaultRedisPrefix = "cache:"

// SharedEntry is the payload kept in a shared layer. Only raw JSON
// responses are shared between processes.
type SharedEntry struct {
	// Data is the raw JSON response body
	Data json.RawMessage `json:"data"`

	// InsertedAt is when the first process stored the value
	InsertedAt time.Time `json:"inserted_at"`
}

// SharedStore is a second cache layer shared by several client processes.
type SharedStore interface {
	// Get returns ErrCacheMiss if the key is absent.
	Get(ctx context.Context, key string) (*SharedEntry, error)
	Set(ctx context.Context, key string, entry *SharedEntry, ttl time.Duration) error
	Clear(ctx context.Context) error
}

// RedisStore is a SharedStore backed by Redis. Redis enforces the TTL.
type RedisStore struct {
	redis  *redis.Client
	prefix string
}

// NewRedisStore creates a shared layer on top of an existing Redis client.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis:  redisClient,
		prefix: DefaultRedisPrefix,
	}
}

func (s *RedisStore) redisKey(key string) string {
	return s.prefix + key
}

// Get retrieves a shared entry by digest.
func (s *RedisStore) Get(ctx context.Context, key string) (*SharedEntry, error) {
	data, err := s.redis.Get(ctx, s.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("shared_get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry SharedEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("shared_get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	return &entry, nil
}

// Set stores a shared entry for ttl. Non-positive TTLs are not stored.
func (s *RedisStore) Set(ctx context.Context, key string, entry *SharedEntry, ttl time.Duration) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("shared_set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := s.redis.Set(ctx, s.redisKey(key), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("shared_set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Clear deletes every shared entry under the store prefix.
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.redis.Scan(ctx, 0, s.prefix+KeyPrefix+"*", 100).Iterator()

	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := s.redis.Del(ctx, batch...).Err(); err != nil {
				CacheErrors.WithLabelValues("shared_clear").Inc()
				return fmt.Errorf("redis del: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		CacheErrors.WithLabelValues("shared_clear").Inc()
		return fmt.Errorf("redis scan: %w", err)
	}

	if len(batch) > 0 {
		if err := s.redis.Del(ctx, batch...).Err(); err != nil {
			CacheErrors.WithLabelValues("shared_clear").Inc()
			return fmt.Errorf("redis del: %w", err)
		}
	}

	return nil
}
