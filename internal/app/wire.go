package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/alanyoungcy/futuresbot/internal/blob/s3"
	"github.com/alanyoungcy/futuresbot/internal/cache/redis"
	"github.com/alanyoungcy/futuresbot/internal/config"
	"github.com/alanyoungcy/futuresbot/internal/crypto"
	"github.com/alanyoungcy/futuresbot/internal/domain"
	"github.com/alanyoungcy/futuresbot/internal/notify"
	"github.com/alanyoungcy/futuresbot/internal/pipeline"
	"github.com/alanyoungcy/futuresbot/internal/platform/binance"
	"github.com/alanyoungcy/futuresbot/internal/store/postgres"
)

// Dependencies bundles the infrastructure the modes run on. It is built by
// Wire and released by the returned cleanup function.
type Dependencies struct {
	Exchange domain.Exchange

	// Caches
	KlineCache    domain.KlineCache
	TrailingStore domain.TrailingStore
	LockManager   domain.LockManager
	RateLimiter   domain.RateLimiter
	SignalBus     domain.SignalBus

	// Stores, nil when postgres is disabled.
	AuditStore    domain.AuditStore
	SettingsStore domain.SettingsStore

	// Archiver is set only in full mode with archiving enabled.
	Archiver *pipeline.Archiver

	Notifier *notify.Notifier

	// Health probes keyed by dependency name.
	Checks map[string]func(context.Context) error
}

// needsArchive reports whether the audit archiver should be wired.
func needsArchive(cfg *config.Config) bool {
	return strings.ToLower(cfg.Mode) == "full" && cfg.Archive.Enabled
}

// Wire constructs every concrete dependency from cfg and returns them with
// a cleanup function that releases connections in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Checks: make(map[string]func(context.Context) error)}

	// ---- Redis ----
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
		Namespace:  cfg.Redis.Namespace,
	})
	if err != nil {
		return nil, cleanup, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })
	logger.InfoContext(ctx, "wire: redis connected", slog.String("addr", cfg.Redis.Addr))

	deps.KlineCache = redis.NewKlineCache(redisClient, cfg.Scheduler.KlineCacheTTL.Duration)
	deps.TrailingStore = redis.NewTrailingStore(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)
	deps.Checks["redis"] = redisClient.Ping

	// ---- Binance ----
	secret, err := crypto.LoadSecret(crypto.SecretConfig{
		Raw:           cfg.Binance.APISecret,
		EncryptedPath: cfg.Binance.EncryptedSecretPath,
		Passphrase:    cfg.Binance.SecretPassphrase,
	})
	if err != nil {
		return nil, cleanup, fmt.Errorf("wire: binance secret: %w", err)
	}
	deps.Exchange = binance.NewClient(&crypto.HMACAuth{
		Key:        cfg.Binance.APIKey,
		Secret:     secret,
		RecvWindow: cfg.Binance.RecvWindowMs,
	}, binance.Options{
		BaseURL:           cfg.BinanceBaseURL(),
		Timeout:           cfg.Binance.Timeout.Duration,
		Limiter:           deps.RateLimiter,
		RequestsPerMinute: cfg.Binance.RequestsPerMinute,
	})
	logger.InfoContext(ctx, "wire: binance client ready",
		slog.String("base_url", cfg.BinanceBaseURL()),
		slog.Bool("testnet", cfg.Binance.Testnet),
	)

	// ---- PostgreSQL ----
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return nil, cleanup, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				return nil, cleanup, fmt.Errorf("wire: postgres migrations: %w", err)
			}
			logger.InfoContext(ctx, "wire: postgres migrations applied")
		}

		deps.AuditStore = postgres.NewAuditStore(pgClient.Pool())
		deps.SettingsStore = postgres.NewSettingsStore(pgClient.Pool())
		deps.Checks["postgres"] = pgClient.Ping
		logger.InfoContext(ctx, "wire: postgres connected", slog.String("database", cfg.Postgres.Database))
	}

	// ---- S3 archive ----
	if needsArchive(cfg) {
		if deps.AuditStore == nil {
			return nil, cleanup, errors.New("wire: archive requires postgres")
		}
		if err := pipeline.ValidateCron(cfg.Archive.Cron); err != nil {
			return nil, cleanup, fmt.Errorf("wire: archive cron: %w", err)
		}
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return nil, cleanup, fmt.Errorf("wire: s3: %w", err)
		}
		blobArchiver := s3blob.NewArchiver(s3blob.NewWriter(s3Client), s3blob.NewReader(s3Client), deps.AuditStore, logger)
		deps.Archiver = pipeline.NewArchiver(blobArchiver, cfg.Archive.RetentionDays, logger)
		deps.Checks["s3"] = s3Client.Health
		logger.InfoContext(ctx, "wire: s3 archive ready", slog.String("bucket", s3Client.Bucket()))
	}

	// ---- Notifications ----
	deps.Notifier = notify.FromConfig(cfg.Notify, logger)

	return deps, cleanup, nil
}
