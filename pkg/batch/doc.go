// Package batch fans many independent API calls out over a bounded worker
// pool.
//
// Typical use is fetching one endpoint for several seasons or games at once.
// Each call still goes through the client's cache and rate limiter, so the
// pool size bounds concurrency, not request rate.
//
// Example usage:
//
//	fetcher := batch.NewBatchFetcher(batch.FetchFunc(func(ctx context.Context, season int) (json.RawMessage, error) {
//		return c.Games(ctx, client.Filter{Season: season})
//	}), batch.DefaultConfig())
//	bySeason, err := fetcher.FetchAll(ctx, []int{2023, 2024, 2025})
//
// On failure FetchAll returns the keys that did succeed together with an
// error describing the first failure.
package batch
