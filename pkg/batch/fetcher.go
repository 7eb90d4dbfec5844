package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds batch fetcher configuration.
type Config struct {
	// MaxConcurrency is the maximum number of parallel fetches.
	MaxConcurrency int

	// Timeout bounds each individual fetch.
	Timeout time.Duration

	Logger *zerolog.Logger
}

// DefaultConfig returns a configuration suited to the API's pacing.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        60 * time.Second,
	}
}

// Fetcher fetches the payload for one key (a season, a game id).
type Fetcher interface {
	Fetch(ctx context.Context, key int) (json.RawMessage, error)
}

// FetchFunc adapts a function to the Fetcher interface.
type FetchFunc func(ctx context.Context, key int) (json.RawMessage, error)

// Fetch calls f.
func (f FetchFunc) Fetch(ctx context.Context, key int) (json.RawMessage, error) {
	return f(ctx, key)
}

// Result is the outcome of fetching one key.
type Result struct {
	Key   int
	Data  json.RawMessage
	Error error
}

// BatchFetcher fans a set of keys out over a worker pool.
type BatchFetcher struct {
	fetcher Fetcher
	config  Config
	logger  zerolog.Logger
}

// NewBatchFetcher creates a new batch fetcher.
func NewBatchFetcher(fetcher Fetcher, config Config) *BatchFetcher {
	defaults := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	logger := log.With().Str("component", "batch").Logger()
	if config.Logger != nil {
		logger = *config.Logger
	}

	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
		logger:  logger,
	}
}

// FetchAll fetches every key in parallel. Duplicate keys are fetched once.
// On failure the successfully fetched keys are still returned together
// with an error wrapping the first failure.
func (bf *BatchFetcher) FetchAll(ctx context.Context, keys []int) (map[int]json.RawMessage, error) {
	start := time.Now()

	unique := make([]int, 0, len(keys))
	seen := make(map[int]bool, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			unique = append(unique, k)
		}
	}

	results := make(map[int]json.RawMessage, len(unique))
	if len(unique) == 0 {
		return results, nil
	}

	workers := bf.config.MaxConcurrency
	if workers > len(unique) {
		workers = len(unique)
	}

	queue := make(chan int, len(unique))
	for _, k := range unique {
		queue <- k
	}
	close(queue)

	out := make(chan Result, len(unique))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go bf.worker(ctx, queue, out, &wg, i)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	var (
		firstErr error
		failed   int
	)
	for r := range out {
		if r.Error != nil {
			failed++
			if firstErr == nil {
				firstErr = fmt.Errorf("fetch %d: %w", r.Key, r.Error)
			}
			continue
		}
		results[r.Key] = r.Data
	}

	if firstErr == nil && len(results) < len(unique) {
		firstErr = fmt.Errorf("batch interrupted: %w", ctx.Err())
	}

	if firstErr != nil {
		bf.logger.Warn().
			Err(firstErr).
			Int("fetched", len(results)).
			Int("failed", failed).
			Int("total", len(unique)).
			Msg("Batch fetch incomplete - returning partial results")
		return results, fmt.Errorf("partial data %d/%d: %w", len(results), len(unique), firstErr)
	}

	bf.logger.Info().
		Int("keys", len(unique)).
		Int("workers", workers).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")

	return results, nil
}

// worker processes keys from the queue until it is drained or ctx ends.
func (bf *BatchFetcher) worker(ctx context.Context, queue <-chan int, out chan<- Result, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for key := range queue {
		if ctx.Err() != nil {
			bf.logger.Debug().
				Int("worker_id", workerID).
				Int("processed", processed).
				Msg("Worker stopping (context cancelled)")
			return
		}

		fetchCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
		data, err := bf.fetcher.Fetch(fetchCtx, key)
		cancel()

		// out is buffered for every key, so sends never block.
		out <- Result{Key: key, Data: data, Error: err}
		processed++
	}

	bf.logger.Debug().
		Int("worker_id", workerID).
		Int("processed", processed).
		Msg("Worker completed")
}
