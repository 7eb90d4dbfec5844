// Package cache provides the memoizing call cache used by the CBBD client.
//
// The cache manager implements response memoization with the following features:
//
// - Deterministic keys from (operation, positional args, keyword args)
// - Keyword argument order never changes the key
// - Fixed TTL per entry; reads never extend it
// - Bounded memory layer with least-recently-used capacity eviction
// - Failed computations are never stored
// - Optional Redis layer shared between processes
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	manager := cache.NewManager(cache.DefaultConfig())
//
//	key := cache.NewKey("Teams.GetRoster", "Duke").With(map[string]any{
//		"season": 2024,
//	})
//
//	v, err := manager.GetOrCompute(ctx, key, func(ctx context.Context) (any, error) {
//		return fetchRoster(ctx, "Duke", 2024)
//	})
//
// # Shared Layer
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//
//	cfg := cache.DefaultConfig()
//	cfg.Shared = cache.NewRedisStore(redisClient)
//	manager := cache.NewManager(cfg)
//
// Only raw JSON payloads (json.RawMessage) are written to the shared layer.
// A shared hit is promoted into memory with its original insertion time.
//
// # Disabling
//
// With caching disabled every call goes straight to the computation; no key
// is built and the store is not touched.
//
//	manager.SetEnabled(false)
//
// # Metrics
//
// The cache manager exports Prometheus metrics:
//
//   - cbbd_cache_hits_total{layer} - Cache hits (memory, shared)
//   - cbbd_cache_misses_total - Cache misses
//   - cbbd_cache_evictions_total{reason} - Evictions (capacity, expired)
//   - cbbd_cache_entries - Entries held in memory
//   - cbbd_cache_errors_total{operation} - Cache operation errors
package cache
