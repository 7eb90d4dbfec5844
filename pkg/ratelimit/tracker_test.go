package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestTracker(now *time.Time) *Tracker {
	tr := NewTracker(nil, zerolog.Nop())
	tr.now = func() time.Time { return *now }
	return tr
}

func TestTracker_UpdateFromResponse(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		headers       map[string]string
		wantRemaining int
		wantCooldown  time.Duration
		wantUpdated   bool
	}{
		{
			name:          "success without headers",
			status:        http.StatusOK,
			wantRemaining: UnknownQuota,
		},
		{
			name:          "quota header",
			status:        http.StatusOK,
			headers:       map[string]string{HeaderCallsRemaining: "2500"},
			wantRemaining: 2500,
			wantUpdated:   true,
		},
		{
			name:          "invalid quota header ignored",
			status:        http.StatusOK,
			headers:       map[string]string{HeaderCallsRemaining: "lots"},
			wantRemaining: UnknownQuota,
		},
		{
			name:          "429 with retry-after",
			status:        http.StatusTooManyRequests,
			headers:       map[string]string{HeaderRetryAfter: "12"},
			wantRemaining: UnknownQuota,
			wantCooldown:  12 * time.Second,
			wantUpdated:   true,
		},
		{
			name:          "429 without retry-after",
			status:        http.StatusTooManyRequests,
			wantRemaining: UnknownQuota,
			wantCooldown:  DefaultCooldown,
			wantUpdated:   true,
		},
		{
			name:          "429 with quota",
			status:        http.StatusTooManyRequests,
			headers:       map[string]string{HeaderRetryAfter: "3", HeaderCallsRemaining: "0"},
			wantRemaining: 0,
			wantCooldown:  3 * time.Second,
			wantUpdated:   true,
		},
		{
			name:          "server error is not a cool-down",
			status:        http.StatusServiceUnavailable,
			headers:       map[string]string{HeaderRetryAfter: "30"},
			wantRemaining: UnknownQuota,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := testNow
			tr := newTestTracker(&now)

			headers := http.Header{}
			for k, v := range tt.headers {
				headers.Set(k, v)
			}

			if err := tr.UpdateFromResponse(context.Background(), tt.status, headers); err != nil {
				t.Fatalf("UpdateFromResponse() error = %v", err)
			}

			state, err := tr.GetState(context.Background())
			if err != nil {
				t.Fatalf("GetState() error = %v", err)
			}
			if state.CallsRemaining != tt.wantRemaining {
				t.Errorf("CallsRemaining = %d, want %d", state.CallsRemaining, tt.wantRemaining)
			}
			if got := state.TimeUntilReady(now); got != tt.wantCooldown {
				t.Errorf("TimeUntilReady() = %v, want %v", got, tt.wantCooldown)
			}
			if updated := !state.LastUpdate.IsZero(); updated != tt.wantUpdated {
				t.Errorf("LastUpdate set = %v, want %v", updated, tt.wantUpdated)
			}
		})
	}
}

func TestTracker_QuotaKeepsCooldown(t *testing.T) {
	now := testNow
	tr := newTestTracker(&now)
	ctx := context.Background()

	limited := http.Header{}
	limited.Set(HeaderRetryAfter, "20")
	if err := tr.UpdateFromResponse(ctx, http.StatusTooManyRequests, limited); err != nil {
		t.Fatal(err)
	}

	now = now.Add(5 * time.Second)
	quota := http.Header{}
	quota.Set(HeaderCallsRemaining, "10")
	if err := tr.UpdateFromResponse(ctx, http.StatusOK, quota); err != nil {
		t.Fatal(err)
	}

	state := tr.Local()
	if got := state.TimeUntilReady(now); got != 15*time.Second {
		t.Errorf("TimeUntilReady() = %v, want 15s", got)
	}
	if state.CallsRemaining != 10 {
		t.Errorf("CallsRemaining = %d, want 10", state.CallsRemaining)
	}
}

func TestTracker_Reset(t *testing.T) {
	now := testNow
	tr := newTestTracker(&now)
	ctx := context.Background()

	headers := http.Header{}
	headers.Set(HeaderCallsRemaining, "7")
	if err := tr.UpdateFromResponse(ctx, http.StatusTooManyRequests, headers); err != nil {
		t.Fatal(err)
	}
	if err := tr.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	state := tr.Local()
	if state.CoolingDown(now) || state.CallsRemaining != UnknownQuota {
		t.Errorf("state after Reset = %+v", state)
	}
}
