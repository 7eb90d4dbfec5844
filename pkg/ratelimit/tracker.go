package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Tracker records upstream throttling signals. State is always kept in
// memory; when a Redis client is configured it is also shared through Redis
// so every client instance observes the same cool-down.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
	now    func() time.Time

	mu    sync.Mutex
	local State
}

// NewTracker creates a tracker. redisClient may be nil.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
		now:    time.Now,
		local:  *NewState(),
	}
}

// Local returns a copy of the in-process state.
func (t *Tracker) Local() *State {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.local
	return &s
}

// GetState returns the current state. With Redis configured the shared
// state is read; a key that does not exist leaves the field at its default.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	if t.redis == nil {
		return t.Local(), nil
	}

	state := NewState()

	cooldownMillis, err := t.redis.Get(ctx, RedisKeyCooldownUntil).Int64()
	switch {
	case err == nil:
		state.CooldownUntil = time.UnixMilli(cooldownMillis)
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("get cooldown: %w", err)
	}

	remaining, err := t.redis.Get(ctx, RedisKeyCallsRemaining).Int()
	switch {
	case err == nil:
		state.CallsRemaining = remaining
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("get calls remaining: %w", err)
	}

	lastUpdate, err := t.redis.Get(ctx, RedisKeyLastUpdate).Int64()
	switch {
	case err == nil:
		state.LastUpdate = time.UnixMilli(lastUpdate)
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("get last update: %w", err)
	}

	return state, nil
}

// UpdateFromResponse records the throttling signals of one response.
// A 429 starts a cool-down; the quota header updates the remaining calls.
// Responses carrying neither leave the state untouched.
func (t *Tracker) UpdateFromResponse(ctx context.Context, status int, headers http.Header) error {
	now := t.now()

	remaining, hasQuota := parseCallsRemaining(headers)
	limited := status == http.StatusTooManyRequests
	if !hasQuota && !limited {
		return nil
	}

	var cooldown time.Duration
	if limited {
		d, ok := ParseRetryAfter(headers.Get(HeaderRetryAfter), now)
		if !ok {
			d = DefaultCooldown
		}
		cooldown = d
	}

	t.mu.Lock()
	if hasQuota {
		t.local.CallsRemaining = remaining
	}
	if limited {
		t.local.CooldownUntil = now.Add(cooldown)
	}
	t.local.LastUpdate = now
	state := t.local
	t.mu.Unlock()

	if hasQuota {
		callsRemaining.Set(float64(remaining))
	}
	if limited {
		cooldownsTotal.Inc()
		t.logger.Warn().
			Dur("cooldown", cooldown).
			Time("cooldown_until", state.CooldownUntil).
			Msg("CBBD API rate limit hit, cooling down")
	}
	if hasQuota {
		ev := t.logger.Debug()
		if state.QuotaLow() {
			ev = t.logger.Warn()
		}
		ev.Int("calls_remaining", remaining).Msg("CBBD API call quota updated")
	}

	if t.redis == nil {
		return nil
	}

	pipe := t.redis.Pipeline()
	if limited {
		// The key expires with the cool-down so a stale value never blocks.
		pipe.Set(ctx, RedisKeyCooldownUntil, state.CooldownUntil.UnixMilli(), cooldown)
	}
	if hasQuota {
		pipe.Set(ctx, RedisKeyCallsRemaining, remaining, 0)
	}
	pipe.Set(ctx, RedisKeyLastUpdate, now.UnixMilli(), 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}

// Reset clears the local state and, with Redis configured, the shared keys.
func (t *Tracker) Reset(ctx context.Context) error {
	t.mu.Lock()
	t.local = *NewState()
	t.mu.Unlock()

	if t.redis == nil {
		return nil
	}
	if err := t.redis.Del(ctx, RedisKeyCooldownUntil, RedisKeyCallsRemaining, RedisKeyLastUpdate).Err(); err != nil {
		return fmt.Errorf("reset rate limit state: %w", err)
	}
	return nil
}
