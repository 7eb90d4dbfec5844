package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTTL is the lifetime of a memoized result
	DefaultTTL = 5 * time.Minute

	// DefaultMaxEntries bounds the memory layer
	DefaultMaxEntries = 128
)

// ComputeFunc produces the value for a cache miss.
type ComputeFunc func(ctx context.Context) (any, error)

// Config holds the cache configuration.
type Config struct {
	// Enabled turns memoization on; when false every call is a passthrough
	Enabled bool

	// MaxEntries bounds the memory layer (<= 0 uses DefaultMaxEntries)
	MaxEntries int

	// TTL is fixed per entry from insertion (<= 0 uses DefaultTTL)
	TTL time.Duration

	// Shared is an optional second layer shared between processes
	Shared SharedStore

	// Logger defaults to the global logger with component=cache
	Logger *zerolog.Logger

	// Now is the clock used for expiry (defaults to time.Now)
	Now func() time.Time
}

// DefaultConfig returns an enabled in-memory configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		MaxEntries: DefaultMaxEntries,
		TTL:        DefaultTTL,
	}
}

// Stats is a point-in-time view of the cache.
type Stats struct {
	Enabled     bool   `json:"enabled"`
	Entries     int    `json:"entries"`
	ApproxBytes int64  `json:"approx_bytes"`
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Evictions   uint64 `json:"evictions"`
}

// Manager memoizes the results of read operations for a fixed TTL.
// It is owned by one client session and safe for concurrent use.
type Manager struct {
	mu        sync.Mutex
	store     *memoryStore
	hits      uint64
	misses    uint64
	evictions uint64

	enabled atomic.Bool
	flights singleflight.Group

	shared SharedStore
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// NewManager creates a cache manager from cfg.
func NewManager(cfg Config) *Manager {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	logger := log.With().Str("component", "cache").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	m := &Manager{
		store:  newMemoryStore(cfg.MaxEntries),
		shared: cfg.Shared,
		ttl:    cfg.TTL,
		now:    cfg.Now,
		logger: logger,
	}
	m.enabled.Store(cfg.Enabled)
	return m
}

// Enabled reports whether memoization is on.
func (m *Manager) Enabled() bool {
	return m.enabled.Load()
}

// SetEnabled toggles memoization. Stored entries are kept; they become
// visible again when the cache is re-enabled and they have not expired.
func (m *Manager) SetEnabled(enabled bool) {
	m.enabled.Store(enabled)
}

// TTL returns the configured entry lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// GetOrCompute returns the memoized value for key, invoking compute on a
// miss. compute runs at most once per call and its error is returned
// unchanged and never stored. Concurrent misses on the same key share a
// single computation.
func (m *Manager) GetOrCompute(ctx context.Context, key Key, compute ComputeFunc) (any, error) {
	if !m.Enabled() {
		return compute(ctx)
	}

	digest := key.Digest()
	if v, ok := m.lookup(digest); ok {
		m.logger.Debug().Str("operation", key.Operation).Str("key", digest).Msg("Cache hit")
		return v, nil
	}

	v, err, _ := m.flights.Do(digest, func() (any, error) {
		// A flight that finished between our lookup and Do may have stored it.
		if v, ok := m.lookup(digest); ok {
			return v, nil
		}
		if v, ok := m.fromShared(ctx, digest); ok {
			return v, nil
		}

		m.mu.Lock()
		m.misses++
		m.mu.Unlock()
		CacheMisses.Inc()

		m.logger.Debug().Str("operation", key.Operation).Str("key", digest).Msg("Cache miss")

		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}

		m.put(ctx, digest, v)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// GetOrComputeRaw is GetOrCompute for raw JSON payloads. Raw payloads are
// also written to the shared layer when one is configured.
func (m *Manager) GetOrComputeRaw(ctx context.Context, key Key, compute func(ctx context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	v, err := m.GetOrCompute(ctx, key, func(ctx context.Context) (any, error) {
		return compute(ctx)
	})
	if err != nil {
		return nil, err
	}

	switch raw := v.(type) {
	case json.RawMessage:
		return raw, nil
	case []byte:
		return json.RawMessage(raw), nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: cached value for %s is %T", ErrInvalidEntry, key.Operation, v)
	}
}

// lookup returns an unexpired value from the memory layer.
func (m *Manager) lookup(digest string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, expired := m.store.get(digest, m.now())
	if expired {
		m.evictions++
		CacheEvictions.WithLabelValues("expired").Inc()
		CacheEntries.Set(float64(m.store.len()))
	}
	if e == nil {
		return nil, false
	}

	m.hits++
	CacheHits.WithLabelValues("memory").Inc()
	return e.Value, true
}

// fromShared consults the shared layer and promotes a fresh hit into memory.
// The promoted entry keeps its original insertion time.
func (m *Manager) fromShared(ctx context.Context, digest string) (any, bool) {
	if m.shared == nil {
		return nil, false
	}

	se, err := m.shared.Get(ctx, digest)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			m.logger.Warn().Err(err).Str("key", digest).Msg("Shared cache get failed")
		}
		return nil, false
	}

	now := m.now()
	e := &Entry{
		Key:        digest,
		Value:      se.Data,
		InsertedAt: se.InsertedAt,
		Expires:    se.InsertedAt.Add(m.ttl),
	}
	if e.IsExpired(now) {
		return nil, false
	}

	m.mu.Lock()
	m.hits++
	m.evict(m.store.put(e))
	m.mu.Unlock()

	CacheHits.WithLabelValues("shared").Inc()
	return se.Data, true
}

func (m *Manager) put(ctx context.Context, digest string, v any) {
	now := m.now()
	e := &Entry{
		Key:        digest,
		Value:      v,
		InsertedAt: now,
		Expires:    now.Add(m.ttl),
	}

	m.mu.Lock()
	m.evict(m.store.put(e))
	m.mu.Unlock()

	if m.shared == nil {
		return
	}
	raw, ok := v.(json.RawMessage)
	if !ok {
		return
	}
	if err := m.shared.Set(ctx, digest, &SharedEntry{Data: raw, InsertedAt: now}, m.ttl); err != nil {
		m.logger.Warn().Err(err).Str("key", digest).Msg("Shared cache set failed")
	}
}

// evict records capacity evictions. Caller holds m.mu.
func (m *Manager) evict(n int) {
	if n > 0 {
		m.evictions += uint64(n)
		CacheEvictions.WithLabelValues("capacity").Add(float64(n))
	}
	CacheEntries.Set(float64(m.store.len()))
}

// Clear empties the memory layer and, when configured, the shared layer.
// Subsequent calls are treated as misses.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	n := m.store.len()
	m.store.clear()
	m.mu.Unlock()

	CacheEntries.Set(0)
	m.logger.Info().Int("entries", n).Msg("Cache cleared")

	if m.shared != nil {
		if err := m.shared.Clear(ctx); err != nil {
			return fmt.Errorf("clear shared cache: %w", err)
		}
	}
	return nil
}

// Stats reports the unexpired entry count and their approximate byte size.
// Size estimation is best effort and never fails.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	values := m.store.values(m.now())
	stats := Stats{
		Enabled:   m.Enabled(),
		Entries:   len(values),
		Hits:      m.hits,
		Misses:    m.misses,
		Evictions: m.evictions,
	}
	m.mu.Unlock()

	for _, v := range values {
		stats.ApproxBytes += approxSize(v)
	}
	return stats
}

// approxSize estimates the encoded size of v, falling back to its default
// string form when it cannot be encoded.
func approxSize(v any) (size int64) {
	defer func() {
		if r := recover(); r != nil {
			CacheErrors.WithLabelValues("stats").Inc()
			size = 0
		}
	}()

	switch b := v.(type) {
	case json.RawMessage:
		return int64(len(b))
	case []byte:
		return int64(len(b))
	case string:
		return int64(len(b))
	}

	data, err := json.Marshal(v)
	if err != nil {
		CacheErrors.WithLabelValues("stats").Inc()
		return int64(len(fmt.Sprint(v)))
	}
	return int64(len(data))
}
