package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/cbbd-client/pkg/logging"
	"github.com/spf13/viper"
)

// proxyConfig is read from CBBD_-prefixed environment variables and an
// optional config file named by CBBD_CONFIG_FILE.
type proxyConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	UserAgent         string        `mapstructure:"user_agent"`
	CacheEnabled      bool          `mapstructure:"cache_enabled"`
	CacheMaxEntries   int           `mapstructure:"cache_max_entries"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	RedisAddr         string        `mapstructure:"redis_addr"`
	Port              string        `mapstructure:"port"`
	LogLevel          string        `mapstructure:"log_level"`
	LogPretty         bool          `mapstructure:"log_pretty"`
	OverridesFile     string        `mapstructure:"overrides_file"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
}

func loadConfig(v *viper.Viper) (*proxyConfig, error) {
	v.SetEnvPrefix("CBBD")
	v.AutomaticEnv()

	v.SetDefault("api_key", "")
	v.SetDefault("base_url", "https://api.collegebasketballdata.com")
	v.SetDefault("user_agent", "cbbd-proxy/1.0")
	v.SetDefault("cache_enabled", true)
	v.SetDefault("cache_max_entries", 128)
	v.SetDefault("cache_ttl", "5m")
	v.SetDefault("requests_per_second", 5)
	v.SetDefault("redis_addr", "")
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
	v.SetDefault("overrides_file", "")
	v.SetDefault("request_timeout", "30s")

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg proxyConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if cfg.APIKey == "" {
		return nil, errors.New("CBBD_API_KEY is required")
	}
	if cfg.CacheMaxEntries < 0 {
		return nil, fmt.Errorf("cache max entries must be >= 0 (got %d)", cfg.CacheMaxEntries)
	}
	if cfg.CacheTTL < 0 {
		return nil, fmt.Errorf("cache ttl must be >= 0 (got %s)", cfg.CacheTTL)
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	return &cfg, nil
}
