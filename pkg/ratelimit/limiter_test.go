package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestLimiter(rps float64, burst int) *Limiter {
	logger := zerolog.Nop()
	return NewLimiter(Config{RequestsPerSecond: rps, Burst: burst, Logger: &logger})
}

func TestLimiter_UnlimitedDoesNotBlock(t *testing.T) {
	l := newTestLimiter(0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 100; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("Wait() #%d error = %v", i, err)
		}
	}
}

func TestLimiter_PacesRequests(t *testing.T) {
	l := newTestLimiter(20, 1)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}

	// One immediate token, then two more at 50ms intervals.
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("3 requests at 20 rps took %v, want >= 80ms", elapsed)
	}
}

func TestLimiter_WaitsForCooldown(t *testing.T) {
	l := newTestLimiter(0, 0)

	headers := http.Header{}
	headers.Set(HeaderRetryAfter, "60")
	l.Observe(context.Background(), http.StatusTooManyRequests, headers)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait() during cool-down error = %v, want deadline exceeded", err)
	}
}

func TestLimiter_CooldownElapsed(t *testing.T) {
	l := newTestLimiter(0, 0)
	now := testNow
	l.tracker.now = func() time.Time { return now }

	headers := http.Header{}
	headers.Set(HeaderRetryAfter, "30")
	l.Observe(context.Background(), http.StatusTooManyRequests, headers)

	now = now.Add(31 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); err != nil {
		t.Fatalf("Wait() after cool-down error = %v", err)
	}
}

func TestLimiter_State(t *testing.T) {
	l := newTestLimiter(0, 0)

	headers := http.Header{}
	headers.Set(HeaderCallsRemaining, "42")
	l.Observe(context.Background(), http.StatusOK, headers)

	if got := l.State(context.Background()).CallsRemaining; got != 42 {
		t.Errorf("CallsRemaining = %d, want 42", got)
	}
	if l.Tracker() == nil {
		t.Error("Tracker() returned nil")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.RequestsPerSecond != 5 || cfg.Burst != 1 {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}
}
