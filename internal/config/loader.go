package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies FUTBOT_* environment variable overrides, and
// returns the final Config. An empty path skips the file and uses defaults.
// The returned Config has NOT been validated; the caller should invoke
// Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known FUTBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Binance ──
	setStr(&cfg.Binance.APIKey, "FUTBOT_BINANCE_API_KEY")
	setStr(&cfg.Binance.APISecret, "FUTBOT_BINANCE_API_SECRET")
	setStr(&cfg.Binance.EncryptedSecretPath, "FUTBOT_BINANCE_ENCRYPTED_SECRET_PATH")
	setStr(&cfg.Binance.SecretPassphrase, "FUTBOT_BINANCE_SECRET_PASSPHRASE")
	setStr(&cfg.Binance.BaseURL, "FUTBOT_BINANCE_BASE_URL")
	setBool(&cfg.Binance.Testnet, "FUTBOT_BINANCE_TESTNET")
	setInt64(&cfg.Binance.RecvWindowMs, "FUTBOT_BINANCE_RECV_WINDOW_MS")
	setDuration(&cfg.Binance.Timeout, "FUTBOT_BINANCE_TIMEOUT")
	setInt(&cfg.Binance.RequestsPerMinute, "FUTBOT_BINANCE_REQUESTS_PER_MINUTE")

	// ── Trading ──
	setFloat64(&cfg.Trading.MinVolume, "FUTBOT_TRADING_MIN_VOLUME")
	setFloat64(&cfg.Trading.BudgetPct, "FUTBOT_TRADING_BUDGET_PCT")
	setFloat64(&cfg.Trading.StopLossPct, "FUTBOT_TRADING_STOP_LOSS_PCT")
	setFloat64(&cfg.Trading.TakeProfitPct, "FUTBOT_TRADING_TAKE_PROFIT_PCT")
	setFloat64(&cfg.Trading.MinRSI, "FUTBOT_TRADING_MIN_RSI")
	setFloat64(&cfg.Trading.MaxRSI, "FUTBOT_TRADING_MAX_RSI")
	setFloat64(&cfg.Trading.FundingMax, "FUTBOT_TRADING_FUNDING_MAX")
	setFloat64(&cfg.Trading.ScoreThreshold, "FUTBOT_TRADING_SCORE_THRESHOLD")
	setBool(&cfg.Trading.Isolated, "FUTBOT_TRADING_ISOLATED")
	setFloat64(&cfg.Trading.TrailMultiplier, "FUTBOT_TRADING_TRAIL_MULTIPLIER")
	setStr(&cfg.Trading.Interval, "FUTBOT_TRADING_INTERVAL")
	setInt(&cfg.Trading.KlineLimit, "FUTBOT_TRADING_KLINE_LIMIT")
	setStringSlice(&cfg.Trading.DisabledModules, "FUTBOT_TRADING_DISABLED_MODULES")

	// ── Scheduler ──
	setDuration(&cfg.Scheduler.MonitorInterval, "FUTBOT_SCHEDULER_MONITOR_INTERVAL")
	setDuration(&cfg.Scheduler.ScanInterval, "FUTBOT_SCHEDULER_SCAN_INTERVAL")
	setInt(&cfg.Scheduler.Workers, "FUTBOT_SCHEDULER_WORKERS")
	setBool(&cfg.Scheduler.AutoStart, "FUTBOT_SCHEDULER_AUTO_START")
	setBool(&cfg.Scheduler.AutoTrade, "FUTBOT_SCHEDULER_AUTO_TRADE")
	setInt(&cfg.Scheduler.CloseBatch, "FUTBOT_SCHEDULER_CLOSE_BATCH")
	setDuration(&cfg.Scheduler.ClosePause, "FUTBOT_SCHEDULER_CLOSE_PAUSE")
	setDuration(&cfg.Scheduler.KlineCacheTTL, "FUTBOT_SCHEDULER_KLINE_CACHE_TTL")
	setDuration(&cfg.Scheduler.OpenLockTTL, "FUTBOT_SCHEDULER_OPEN_LOCK_TTL")
	setDuration(&cfg.Scheduler.DedupTTL, "FUTBOT_SCHEDULER_DEDUP_TTL")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "FUTBOT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "FUTBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "FUTBOT_DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "FUTBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "FUTBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "FUTBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "FUTBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "FUTBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "FUTBOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "FUTBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "FUTBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "FUTBOT_POSTGRES_RUN_MIGRATIONS")
	setBool(&cfg.Postgres.LoadSettings, "FUTBOT_POSTGRES_LOAD_SETTINGS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "FUTBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "FUTBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "FUTBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "FUTBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "FUTBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "FUTBOT_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.Namespace, "FUTBOT_REDIS_NAMESPACE")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "FUTBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "FUTBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "FUTBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "FUTBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "FUTBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "FUTBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "FUTBOT_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "FUTBOT_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "FUTBOT_ARCHIVE_RETENTION_DAYS")
	setStr(&cfg.Archive.Cron, "FUTBOT_ARCHIVE_CRON")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "FUTBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "FUTBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "FUTBOT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "FUTBOT_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "FUTBOT_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "FUTBOT_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "FUTBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "FUTBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "FUTBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "FUTBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "FUTBOT_MODE")
	setStr(&cfg.LogLevel, "FUTBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
