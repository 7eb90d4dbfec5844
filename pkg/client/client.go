// Package client provides the CBBD API client session: a transport with
// rate limiting and retries, an owned memoizing cache, and typed endpoint
// methods whose payloads feed the normalization pipeline.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Sternrassler/cbbd-client/pkg/batch"
	"github.com/Sternrassler/cbbd-client/pkg/cache"
	"github.com/Sternrassler/cbbd-client/pkg/normalize"
	"github.com/Sternrassler/cbbd-client/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the production API.
const DefaultBaseURL = "https://api.collegebasketballdata.com"

// Client is a CBBD API session. It owns its cache; the cache is created
// with the client and never shared with other clients.
type Client struct {
	transport Transport
	limiter   *ratelimit.Limiter
	cache     *cache.Manager
	pipeline  *normalize.Pipeline
	batch     batch.Config
	config    Config
	logger    zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// APIKey is sent as a bearer token. Required unless Transport is set.
	APIKey string

	UserAgent string

	// Cache configures the owned call cache. Use cache.DefaultConfig for
	// an enabled cache; the zero value disables memoization.
	Cache cache.Config

	// Redis, when set, backs the cache's shared layer and shares rate
	// limit state between processes.
	Redis *redis.Client

	// RequestsPerSecond paces outgoing requests. Zero disables pacing.
	RequestsPerSecond float64

	// Retry selects backoff per error class. Defaults to RetryConfigForErrorClass.
	Retry RetryPolicy

	// Timeout bounds a single HTTP attempt when HTTPClient is not set.
	Timeout time.Duration

	HTTPClient *http.Client

	// Transport replaces the HTTP transport entirely.
	Transport Transport

	// Pipeline normalizes payloads for Table and FetchTable.
	Pipeline *normalize.Pipeline

	// Batch configures GamesForSeasons.
	Batch batch.Config

	Logger *zerolog.Logger
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(apiKey string) Config {
	return Config{
		BaseURL:           DefaultBaseURL,
		APIKey:            apiKey,
		UserAgent:         "cbbd-client-go/1.0",
		Cache:             cache.DefaultConfig(),
		RequestsPerSecond: 5,
		Timeout:           30 * time.Second,
		Batch:             batch.DefaultConfig(),
	}
}

// New creates a client session.
func New(cfg Config) (*Client, error) {
	if cfg.Transport == nil && cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	if cfg.Cache.MaxEntries < 0 {
		return nil, fmt.Errorf("cache max entries must be >= 0 (got %d)", cfg.Cache.MaxEntries)
	}
	if cfg.Cache.TTL < 0 {
		return nil, fmt.Errorf("cache ttl must be >= 0 (got %s)", cfg.Cache.TTL)
	}
	if cfg.RequestsPerSecond < 0 {
		return nil, fmt.Errorf("requests per second must be >= 0 (got %v)", cfg.RequestsPerSecond)
	}

	logger := log.With().Str("component", "cbbd-client").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	cacheCfg := cfg.Cache
	if cacheCfg.Logger == nil {
		l := logger.With().Str("component", "cache").Logger()
		cacheCfg.Logger = &l
	}
	if cacheCfg.Shared == nil && cfg.Redis != nil {
		cacheCfg.Shared = cache.NewRedisStore(cfg.Redis)
	}

	limiterLogger := logger.With().Str("component", "ratelimit").Logger()
	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             1,
		Redis:             cfg.Redis,
		Logger:            &limiterLogger,
	})

	transport := cfg.Transport
	if transport == nil {
		httpClient := cfg.HTTPClient
		if httpClient == nil {
			timeout := cfg.Timeout
			if timeout <= 0 {
				timeout = 30 * time.Second
			}
			httpClient = &http.Client{Timeout: timeout}
		}
		transportLogger := logger.With().Str("component", "transport").Logger()
		transport = NewHTTPTransport(HTTPTransportConfig{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			UserAgent:  cfg.UserAgent,
			HTTPClient: httpClient,
			Limiter:    limiter,
			Retry:      cfg.Retry,
			Logger:     &transportLogger,
		})
	}

	pipeline := cfg.Pipeline
	if pipeline == nil {
		pipeline = normalize.NewPipeline(normalize.WithLogger(logger.With().Str("component", "normalize").Logger()))
	}

	batchCfg := cfg.Batch
	if batchCfg.Logger == nil {
		l := logger.With().Str("component", "batch").Logger()
		batchCfg.Logger = &l
	}

	return &Client{
		transport: transport,
		limiter:   limiter,
		cache:     cache.NewManager(cacheCfg),
		pipeline:  pipeline,
		batch:     batchCfg,
		config:    cfg,
		logger:    logger,
	}, nil
}

// Cache returns the client's cache.
func (c *Client) Cache() *cache.Manager {
	return c.cache
}

// Limiter returns the rate limiter used by the HTTP transport. It is
// idle when Config.Transport replaces that transport.
func (c *Client) Limiter() *ratelimit.Limiter {
	return c.limiter
}

// Pipeline returns the normalization pipeline used by Table.
func (c *Client) Pipeline() *normalize.Pipeline {
	return c.pipeline
}

// ClearCache drops every cached payload.
func (c *Client) ClearCache(ctx context.Context) error {
	return c.cache.Clear(ctx)
}

// CacheStats reports cache size and counters.
func (c *Client) CacheStats() cache.Stats {
	return c.cache.Stats()
}

// SetCacheEnabled toggles memoization for subsequent calls.
func (c *Client) SetCacheEnabled(enabled bool) {
	c.cache.SetEnabled(enabled)
}

// Table normalizes a payload into canonical records. An empty recordType
// selects the record type from the payload shape.
func (c *Client) Table(recordType normalize.RecordType, raw json.RawMessage) ([]normalize.Record, error) {
	return c.pipeline.NormalizeJSON(raw, recordType)
}

// call executes an endpoint through the cache. The query parameters
// become the key's keyword arguments.
func (c *Client) call(ctx context.Context, key cache.Key, endpoint string, params url.Values) (json.RawMessage, error) {
	key = key.With(kwargs(params))

	return c.cache.GetOrComputeRaw(ctx, key, func(ctx context.Context) (json.RawMessage, error) {
		raw, err := c.transport.Execute(ctx, endpoint, params)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key.Operation, err)
		}
		return raw, nil
	})
}

// kwargs converts query parameters into cache key arguments. Multi-valued
// parameters are joined in order.
func kwargs(params url.Values) map[string]any {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]any, len(params))
	for name, values := range params {
		out[name] = strings.Join(values, ",")
	}
	return out
}
