package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Config configures a Limiter.
type Config struct {
	// RequestsPerSecond is the sustained request rate. Zero or less disables pacing.
	RequestsPerSecond float64

	// Burst is the number of requests allowed at once.
	Burst int

	// Redis shares cool-down state between instances. Optional.
	Redis *redis.Client

	// Logger defaults to the global logger with component=ratelimit.
	Logger *zerolog.Logger
}

// DefaultConfig returns a conservative pacing of five requests per second.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 5,
		Burst:             1,
	}
}

// Limiter gates outgoing requests.
type Limiter struct {
	bucket  *rate.Limiter
	tracker *Tracker
	logger  zerolog.Logger
}

// NewLimiter creates a limiter from cfg.
func NewLimiter(cfg Config) *Limiter {
	logger := log.With().Str("component", "ratelimit").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		bucket:  rate.NewLimiter(limit, burst),
		tracker: NewTracker(cfg.Redis, logger),
		logger:  logger,
	}
}

// Tracker returns the limiter's state tracker.
func (l *Limiter) Tracker() *Tracker {
	return l.tracker
}

// Wait blocks until a request may be sent: first until any upstream
// cool-down has passed, then until the token bucket grants a slot.
func (l *Limiter) Wait(ctx context.Context) error {
	state := l.State(ctx)
	if d := state.TimeUntilReady(l.tracker.now()); d > 0 {
		delayedRequestsTotal.Inc()
		l.logger.Warn().
			Dur("wait", d).
			Time("cooldown_until", state.CooldownUntil).
			Msg("Delaying request until cool-down ends")

		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return fmt.Errorf("rate limit cool-down: %w", ctx.Err())
		case <-timer.C:
		}
	}

	start := time.Now()
	if err := l.bucket.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	waitSeconds.Observe(time.Since(start).Seconds())
	return nil
}

// Observe records the throttling signals of a response. Failures to share
// the state are logged; the local state is always updated.
func (l *Limiter) Observe(ctx context.Context, status int, headers http.Header) {
	if err := l.tracker.UpdateFromResponse(ctx, status, headers); err != nil {
		l.logger.Warn().Err(err).Msg("Failed to share rate limit state")
	}
}

// State returns the shared state, falling back to the local state when
// the shared store cannot be read.
func (l *Limiter) State(ctx context.Context) *State {
	state, err := l.tracker.GetState(ctx)
	if err != nil {
		l.logger.Warn().Err(err).Msg("Rate limit state unavailable, using local state")
		return l.tracker.Local()
	}
	return state
}
