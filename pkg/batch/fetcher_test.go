package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestFetcher(fn FetchFunc, concurrency int) *BatchFetcher {
	logger := zerolog.Nop()
	return NewBatchFetcher(fn, Config{MaxConcurrency: concurrency, Timeout: time.Second, Logger: &logger})
}

func TestNewBatchFetcher_Defaults(t *testing.T) {
	bf := NewBatchFetcher(FetchFunc(nil), Config{})
	if bf.config.MaxConcurrency != 4 {
		t.Errorf("MaxConcurrency = %d, want 4", bf.config.MaxConcurrency)
	}
	if bf.config.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", bf.config.Timeout)
	}
}

func TestFetchAll_Success(t *testing.T) {
	var calls atomic.Int32
	bf := newTestFetcher(func(ctx context.Context, key int) (json.RawMessage, error) {
		calls.Add(1)
		return json.RawMessage(fmt.Sprintf(`{"season":%d}`, key)), nil
	}, 3)

	results, err := bf.FetchAll(context.Background(), []int{2023, 2024, 2025, 2024})
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if calls.Load() != 3 {
		t.Errorf("fetch called %d times, want 3 (duplicates fetched once)", calls.Load())
	}
	if got := string(results[2025]); got != `{"season":2025}` {
		t.Errorf("results[2025] = %s", got)
	}
}

func TestFetchAll_Empty(t *testing.T) {
	bf := newTestFetcher(func(ctx context.Context, key int) (json.RawMessage, error) {
		t.Fatal("fetch should not be called")
		return nil, nil
	}, 2)

	results, err := bf.FetchAll(context.Background(), nil)
	if err != nil || len(results) != 0 {
		t.Errorf("FetchAll(nil) = %v, %v; want empty, nil", results, err)
	}
}

func TestFetchAll_PartialFailure(t *testing.T) {
	boom := errors.New("boom")
	bf := newTestFetcher(func(ctx context.Context, key int) (json.RawMessage, error) {
		if key == 2024 {
			return nil, boom
		}
		return json.RawMessage(`[]`), nil
	}, 2)

	results, err := bf.FetchAll(context.Background(), []int{2023, 2024, 2025})
	if !errors.Is(err, boom) {
		t.Fatalf("FetchAll() error = %v, want wrapping boom", err)
	}
	if !strings.Contains(err.Error(), "partial data 2/3") {
		t.Errorf("error = %q, want partial count", err)
	}
	if _, ok := results[2024]; ok {
		t.Error("failed key present in results")
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want 2", len(results))
	}
}

func TestFetchAll_RespectsConcurrency(t *testing.T) {
	var (
		mu      sync.Mutex
		current int
		peak    int
	)
	bf := newTestFetcher(func(ctx context.Context, key int) (json.RawMessage, error) {
		mu.Lock()
		current++
		if current > peak {
			peak = current
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		current--
		mu.Unlock()
		return json.RawMessage(`[]`), nil
	}, 2)

	keys := make([]int, 10)
	for i := range keys {
		keys[i] = i
	}
	if _, err := bf.FetchAll(context.Background(), keys); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestFetchAll_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bf := newTestFetcher(func(ctx context.Context, key int) (json.RawMessage, error) {
		return json.RawMessage(`[]`), nil
	}, 2)

	results, err := bf.FetchAll(ctx, []int{1, 2, 3})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("FetchAll() error = %v, want context.Canceled", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results after cancel, want 0", len(results))
	}
}

func TestFetchAll_PerKeyTimeout(t *testing.T) {
	logger := zerolog.Nop()
	bf := NewBatchFetcher(FetchFunc(func(ctx context.Context, key int) (json.RawMessage, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}), Config{MaxConcurrency: 1, Timeout: 10 * time.Millisecond, Logger: &logger})

	_, err := bf.FetchAll(context.Background(), []int{1})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("FetchAll() error = %v, want deadline exceeded", err)
	}
}
