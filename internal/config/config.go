// Package config defines all configuration for the indexing/streaming
// core. Config is loaded from a YAML file (default: configs/config.yaml)
// with sensitive fields overridable via POLY_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Store     StoreConfig     `mapstructure:"store"`
	Indexer   IndexerConfig   `mapstructure:"indexer"`
	Streaming StreamingConfig `mapstructure:"streaming"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// APIConfig holds Polymarket API endpoints and optional pre-derived L2
// credentials for the authenticated user channel. The credentials are
// loaded but not passed on: the streaming service opens market-channel
// workers only and sends no auth in their subscribe frames. Nothing here
// derives or signs them (no EIP-712 signing is implemented).
type APIConfig struct {
	CLOBBaseURL  string `mapstructure:"clob_base_url"`
	GammaBaseURL string `mapstructure:"gamma_base_url"`
	WSMarketURL  string `mapstructure:"ws_market_url"`
	WSUserURL    string `mapstructure:"ws_user_url"`
	ApiKey       string `mapstructure:"api_key"`
	Secret       string `mapstructure:"secret"`
	Passphrase   string `mapstructure:"passphrase"`
}

// StoreConfig sets where the bbolt database lives on disk.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// IndexerConfig controls the chunk-file discovery and parallel-parse
// pipeline that populates the Store.
//
//   - SourceDir: directory scanned for markets_chunk_*.json / markets.json.
//   - SkipDuplicates: best-effort existence check before enqueuing a write.
//   - BatchSize: rows accumulated before an atomic batch commit.
//   - ThreadCount: size of the parse worker pool; 0 = runtime.NumCPU().
type IndexerConfig struct {
	SourceDir      string `mapstructure:"source_dir"`
	SkipDuplicates bool   `mapstructure:"skip_duplicates"`
	BatchSize      int    `mapstructure:"batch_size"`
	ThreadCount    int    `mapstructure:"thread_count"`
}

// StreamingConfig tunes the worker fleet the Streaming Service supervises.
//
//   - TokensPerWorker: upper bound on assignments per worker.
//   - EventBufferSize: default channel capacity for SubscribeEvents callers.
//   - WorkerEventBufferSize: channel capacity of the service's internal
//     book/activity subscriber. Workers have no outbound queue of their
//     own; they publish straight to the event bus.
//   - AutoReconnect: when true, a dropped connection re-enters Backoff
//     instead of the worker terminating outright.
//   - ReconnectDelayMs / MaxReconnectDelayMs: exponential backoff bounds.
//   - MaxReconnectAttempts: per-incident cap; 0 = unlimited.
//   - HealthCheckIntervalSecs: supervisor cadence for worker liveness review.
//   - StatsIntervalSecs: cadence for StreamingStats refresh.
//   - WorkerConnectionDelayMs: minimum gap between new worker connections.
//   - MaxConcurrentConnections: upper bound on simultaneous dial attempts.
type StreamingConfig struct {
	TokensPerWorker          int  `mapstructure:"tokens_per_worker"`
	EventBufferSize          int  `mapstructure:"event_buffer_size"`
	WorkerEventBufferSize    int  `mapstructure:"worker_event_buffer_size"`
	AutoReconnect            bool `mapstructure:"auto_reconnect"`
	ReconnectDelayMs         int  `mapstructure:"reconnect_delay_ms"`
	MaxReconnectDelayMs      int  `mapstructure:"max_reconnect_delay_ms"`
	MaxReconnectAttempts     int  `mapstructure:"max_reconnect_attempts"`
	HealthCheckIntervalSecs  int  `mapstructure:"health_check_interval_secs"`
	StatsIntervalSecs        int  `mapstructure:"stats_interval_secs"`
	WorkerConnectionDelayMs  int  `mapstructure:"worker_connection_delay_ms"`
	MaxConcurrentConnections int  `mapstructure:"max_concurrent_connections"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DashboardConfig controls the read-only web dashboard / metrics server.
type DashboardConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ReconnectDelay returns the configured base reconnect delay as a Duration.
func (s StreamingConfig) ReconnectDelay() time.Duration {
	return time.Duration(s.ReconnectDelayMs) * time.Millisecond
}

// MaxReconnectDelay returns the configured reconnect delay cap as a Duration.
func (s StreamingConfig) MaxReconnectDelay() time.Duration {
	return time.Duration(s.MaxReconnectDelayMs) * time.Millisecond
}

// Load reads config from a YAML file with env var overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("POLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("POLY_API_KEY"); key != "" {
		cfg.API.ApiKey = key
	}
	if secret := os.Getenv("POLY_API_SECRET"); secret != "" {
		cfg.API.Secret = secret
	}
	if pass := os.Getenv("POLY_PASSPHRASE"); pass != "" {
		cfg.API.Passphrase = pass
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("indexer.skip_duplicates", true)
	v.SetDefault("indexer.batch_size", 1000)
	v.SetDefault("indexer.thread_count", 0)

	v.SetDefault("streaming.tokens_per_worker", 25)
	v.SetDefault("streaming.event_buffer_size", 1024)
	v.SetDefault("streaming.worker_event_buffer_size", 256)
	v.SetDefault("streaming.auto_reconnect", true)
	v.SetDefault("streaming.reconnect_delay_ms", 1000)
	v.SetDefault("streaming.max_reconnect_delay_ms", 30000)
	v.SetDefault("streaming.max_reconnect_attempts", 0)
	v.SetDefault("streaming.health_check_interval_secs", 30)
	v.SetDefault("streaming.stats_interval_secs", 5)
	v.SetDefault("streaming.worker_connection_delay_ms", 100)
	v.SetDefault("streaming.max_concurrent_connections", 4)
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.API.CLOBBaseURL == "" {
		return fmt.Errorf("api.clob_base_url is required")
	}
	if c.API.WSMarketURL == "" {
		return fmt.Errorf("api.ws_market_url is required")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.Streaming.TokensPerWorker <= 0 {
		return fmt.Errorf("streaming.tokens_per_worker must be > 0")
	}
	if c.Streaming.MaxConcurrentConnections <= 0 {
		return fmt.Errorf("streaming.max_concurrent_connections must be > 0")
	}
	return nil
}
