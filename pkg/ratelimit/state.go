// Package ratelimit paces requests to the CBBD API and tracks upstream
// throttling signals. A token bucket spaces outgoing calls; a 429 response
// starts a cool-down taken from the Retry-After header, and the remaining
// call quota is read from X-CallLimit-Remaining when the API sends it.
package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Redis keys for state shared between client instances.
const (
	RedisKeyCooldownUntil  = "cbbd:rate_limit:cooldown_until"
	RedisKeyCallsRemaining = "cbbd:rate_limit:calls_remaining"
	RedisKeyLastUpdate     = "cbbd:rate_limit:last_update"
)

// Response headers read by the tracker.
const (
	HeaderRetryAfter     = "Retry-After"
	HeaderCallsRemaining = "X-CallLimit-Remaining"
)

const (
	// DefaultCooldown applies when a 429 carries no usable Retry-After.
	DefaultCooldown = 60 * time.Second

	// MaxCooldown caps a Retry-After value.
	MaxCooldown = 15 * time.Minute

	// QuotaWarning is the remaining-call count below which updates log at warn level.
	QuotaWarning = 100

	// UnknownQuota marks a state that has not seen a quota header yet.
	UnknownQuota = -1
)

// State is the current upstream rate limit state.
type State struct {
	// CallsRemaining is the last reported call quota, or UnknownQuota.
	CallsRemaining int `json:"calls_remaining"`

	// CooldownUntil is the earliest time the next request may be sent.
	// Zero when no cool-down is active.
	CooldownUntil time.Time `json:"cooldown_until"`

	// LastUpdate is when the state last changed.
	LastUpdate time.Time `json:"last_update"`
}

// NewState returns a state with no cool-down and an unknown quota.
func NewState() *State {
	return &State{CallsRemaining: UnknownQuota}
}

// IsStale reports whether the state is older than maxAge.
func (s *State) IsStale(maxAge time.Duration, now time.Time) bool {
	return now.Sub(s.LastUpdate) > maxAge
}

// CoolingDown reports whether a cool-down is active at now.
func (s *State) CoolingDown(now time.Time) bool {
	return now.Before(s.CooldownUntil)
}

// TimeUntilReady returns how long a request must wait at now.
// Returns 0 when no cool-down is active.
func (s *State) TimeUntilReady(now time.Time) time.Duration {
	d := s.CooldownUntil.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// QuotaLow reports whether the known quota is below QuotaWarning.
func (s *State) QuotaLow() bool {
	return s.CallsRemaining != UnknownQuota && s.CallsRemaining < QuotaWarning
}

// ParseRetryAfter parses a Retry-After value given as delay seconds or an
// HTTP date. The result is capped at MaxCooldown.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	var d time.Duration
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		d = time.Duration(secs) * time.Second
	} else {
		at, err := http.ParseTime(value)
		if err != nil {
			return 0, false
		}
		d = at.Sub(now)
		if d < 0 {
			d = 0
		}
	}

	if d > MaxCooldown {
		d = MaxCooldown
	}
	return d, true
}

// parseCallsRemaining reads the quota header. ok is false when it is absent
// or not a non-negative integer.
func parseCallsRemaining(headers http.Header) (int, bool) {
	raw := strings.TrimSpace(headers.Get(HeaderCallsRemaining))
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
