// Package config defines the top-level configuration for the futures bot
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by FUTBOT_* environment variables.
type Config struct {
	Binance   BinanceConfig   `toml:"binance"`
	Trading   TradingSettings `toml:"trading"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Redis     RedisConfig     `toml:"redis"`
	Postgres  PostgresConfig  `toml:"postgres"`
	S3        S3Config        `toml:"s3"`
	Archive   ArchiveConfig   `toml:"archive"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// BinanceConfig holds futures API credentials and endpoints.
type BinanceConfig struct {
	APIKey              string   `toml:"api_key"`
	APISecret           string   `toml:"api_secret"`
	EncryptedSecretPath string   `toml:"encrypted_secret_path"`
	SecretPassphrase    string   `toml:"secret_passphrase"`
	BaseURL             string   `toml:"base_url"`
	Testnet             bool     `toml:"testnet"`
	RecvWindowMs        int64    `toml:"recv_window_ms"`
	Timeout             duration `toml:"timeout"`
	// RequestsPerMinute caps REST calls through the shared rate limiter.
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// SchedulerConfig holds loop pacing and concurrency parameters.
type SchedulerConfig struct {
	MonitorInterval duration `toml:"monitor_interval"`
	ScanInterval    duration `toml:"scan_interval"`
	Workers         int      `toml:"workers"`
	AutoStart       bool     `toml:"auto_start"`
	AutoTrade       bool     `toml:"auto_trade"`
	CloseBatch      int      `toml:"close_batch"`
	ClosePause      duration `toml:"close_pause"`
	KlineCacheTTL   duration `toml:"kline_cache_ttl"`
	OpenLockTTL     duration `toml:"open_lock_ttl"`
	DedupTTL        duration `toml:"dedup_ttl"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	// Namespace prefixes every key and channel so bots can share a server.
	Namespace string `toml:"namespace"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
	// LoadSettings restores the last saved trading settings on startup.
	LoadSettings bool `toml:"load_settings"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls moving old audit rows to object storage.
type ArchiveConfig struct {
	Enabled       bool   `toml:"enabled"`
	RetentionDays int    `toml:"retention_days"`
	Cron          string `toml:"cron"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Binance: BinanceConfig{
			BaseURL:           "https://fapi.binance.com",
			RecvWindowMs:      5000,
			Timeout:           duration{10 * time.Second},
			RequestsPerMinute: 1200,
		},
		Trading: DefaultTradingSettings(),
		Scheduler: SchedulerConfig{
			MonitorInterval: duration{4 * time.Second},
			ScanInterval:    duration{120 * time.Second},
			Workers:         5,
			AutoStart:       true,
			AutoTrade:       false,
			CloseBatch:      5,
			ClosePause:      duration{time.Second},
			KlineCacheTTL:   duration{20 * time.Second},
			OpenLockTTL:     duration{30 * time.Second},
			DedupTTL:        duration{2 * time.Minute},
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			Namespace:  "futbot",
		},
		Postgres: PostgresConfig{
			Enabled:       true,
			Host:          "localhost",
			Port:          5432,
			Database:      "futuresbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
			LoadSettings:  true,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "futuresbot-archive",
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 30,
			Cron:          "0 3 * * *",
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"position_opened", "position_closed", "emergency_stop", "error"},
		},
		Mode:     "trade",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"trade":   true,
	"monitor": true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// TestnetURL is the futures testnet REST endpoint.
const TestnetURL = "https://testnet.binancefuture.com"

// BinanceBaseURL returns the REST endpoint, honoring the testnet toggle.
func (c *Config) BinanceBaseURL() string {
	if c.Binance.Testnet {
		return TestnetURL
	}
	return c.Binance.BaseURL
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, monitor, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Binance
	if c.Binance.APIKey == "" {
		errs = append(errs, "binance: api_key must be set")
	}
	if c.Binance.APISecret == "" && c.Binance.EncryptedSecretPath == "" {
		errs = append(errs, "binance: either api_secret or encrypted_secret_path must be set")
	}
	if c.Binance.EncryptedSecretPath != "" && c.Binance.SecretPassphrase == "" {
		errs = append(errs, "binance: secret_passphrase is required when encrypted_secret_path is set")
	}
	if !c.Binance.Testnet && c.Binance.BaseURL == "" {
		errs = append(errs, "binance: base_url must not be empty")
	}
	if c.Binance.RequestsPerMinute < 1 {
		errs = append(errs, "binance: requests_per_minute must be >= 1")
	}

	if err := c.Trading.Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	// Scheduler
	if c.Scheduler.MonitorInterval.Duration <= 0 {
		errs = append(errs, "scheduler: monitor_interval must be > 0")
	}
	if c.Scheduler.ScanInterval.Duration <= 0 {
		errs = append(errs, "scheduler: scan_interval must be > 0")
	}
	if c.Scheduler.Workers < 1 {
		errs = append(errs, "scheduler: workers must be >= 1")
	}
	if c.Scheduler.CloseBatch < 1 {
		errs = append(errs, "scheduler: close_batch must be >= 1")
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Archive needs both the database and the bucket.
	if c.Archive.Enabled {
		if !c.Postgres.Enabled {
			errs = append(errs, "archive: requires postgres.enabled")
		}
		if c.S3.Endpoint == "" || c.S3.Bucket == "" {
			errs = append(errs, "archive: s3.endpoint and s3.bucket must be set")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
		if len(strings.Fields(c.Archive.Cron)) != 5 {
			errs = append(errs, fmt.Sprintf("archive: cron must have 5 fields, got %q", c.Archive.Cron))
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
