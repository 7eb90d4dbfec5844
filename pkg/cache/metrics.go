package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer (memory, shared)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbbd_cache_hits_total",
			Help: "Total number of memoized call cache hits",
		},
		[]string{"layer"}, // "memory", "shared"
	)

	// CacheMisses tracks lookups that ended in a computation
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cbbd_cache_misses_total",
			Help: "Total number of memoized call cache misses",
		},
	)

	// CacheEvictions tracks entries dropped by capacity or TTL
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbbd_cache_evictions_total",
			Help: "Total number of cache entries evicted",
		},
		[]string{"reason"}, // "capacity", "expired"
	)

	// CacheEntries tracks the number of entries held in memory
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cbbd_cache_entries",
			Help: "Current number of entries in the memory cache",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbbd_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "shared_get", "shared_set", "shared_clear", "stats"
	)
)
