package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for rate limiting.
var (
	callsRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cbbd_rate_limit_calls_remaining",
		Help: "Call quota remaining as last reported by the CBBD API",
	})

	cooldownsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cbbd_rate_limit_cooldowns_total",
		Help: "Total number of 429 responses that started a cool-down",
	})

	delayedRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cbbd_rate_limit_delayed_requests_total",
		Help: "Total number of requests delayed by an active cool-down",
	})

	waitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cbbd_rate_limit_wait_seconds",
		Help:    "Time spent waiting for a request slot",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 60},
	})
)
