// Command cbbd-proxy serves normalized CBBD tables over HTTP, backed by a
// cached client session.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/cbbd-client/pkg/cache"
	"github.com/Sternrassler/cbbd-client/pkg/client"
	"github.com/Sternrassler/cbbd-client/pkg/logging"
	"github.com/Sternrassler/cbbd-client/pkg/normalize"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("cbbd-proxy failed")
	}
}

func run() error {
	cfg, err := loadConfig(viper.New())
	if err != nil {
		return err
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger := logging.Setup(logging.Config{
		Level:   level,
		Pretty:  cfg.LogPretty,
		Output:  os.Stderr,
		Service: "cbbd-proxy",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		logger.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")
	}

	cbbd, err := newClient(cfg, redisClient)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(cbbd, redisClient, cfg.RequestTimeout),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("base_url", cfg.BaseURL).
			Bool("cache_enabled", cfg.CacheEnabled).
			Msg("Starting CBBD proxy server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newClient builds the client session described by cfg.
func newClient(cfg *proxyConfig, redisClient *redis.Client) (*client.Client, error) {
	var opts []normalize.Option
	opts = append(opts, normalize.WithLogger(logging.NewLogger("normalize")))
	if cfg.OverridesFile != "" {
		overrides, err := normalize.LoadOverridesFile(cfg.OverridesFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, normalize.WithOverrides(overrides))
	}

	ccfg := client.DefaultConfig(cfg.APIKey)
	ccfg.BaseURL = cfg.BaseURL
	ccfg.UserAgent = cfg.UserAgent
	ccfg.Cache = cache.Config{
		Enabled:    cfg.CacheEnabled,
		MaxEntries: cfg.CacheMaxEntries,
		TTL:        cfg.CacheTTL,
	}
	ccfg.RequestsPerSecond = cfg.RequestsPerSecond
	ccfg.Redis = redisClient
	ccfg.Pipeline = normalize.NewPipeline(opts...)

	logger := logging.NewLogger("cbbd-client")
	ccfg.Logger = &logger

	c, err := client.New(ccfg)
	if err != nil {
		return nil, fmt.Errorf("create CBBD client: %w", err)
	}
	return c, nil
}
