package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/carmandale/trade-strategies-sub001/internal/blob/s3"
	"github.com/carmandale/trade-strategies-sub001/internal/cache/redis"
	"github.com/carmandale/trade-strategies-sub001/internal/config"
	"github.com/carmandale/trade-strategies-sub001/internal/domain"
	"github.com/carmandale/trade-strategies-sub001/internal/server/handler"
	"github.com/carmandale/trade-strategies-sub001/internal/store/postgres"
)

// Dependencies bundles the backend implementations the server needs. Optional
// backends stay nil when not configured and the corresponding endpoints
// degrade instead of failing startup.
type Dependencies struct {
	// Postgres
	PostgresPinger handler.Pinger
	SettingsStore  domain.SettingsStore

	// Redis
	RedisPinger   handler.Pinger
	SnapshotCache domain.SnapshotCache
	UpdateBus     domain.UpdateBus
	RateLimiter   domain.RateLimiter

	// S3
	TradeLogStore domain.TradeLogStore
}

// Wire constructs the configured backends and returns them together with a
// cleanup function that releases resources in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	if cfg.Postgres.Enabled() {
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
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.PostgresPinger = pgClient
		deps.SettingsStore = postgres.NewSettingsStore(pgClient.Pool())
	} else {
		logger.InfoContext(ctx, "wire: postgres not configured, settings endpoints disabled")
	}

	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.RedisPinger = redisClient
		deps.SnapshotCache = redis.NewSnapshotCache(redisClient)
		deps.UpdateBus = redis.NewUpdateBus(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
	} else {
		logger.InfoContext(ctx, "wire: redis not configured, updates broadcast in-process only")
	}

	if cfg.S3.Enabled() {
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
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.TradeLogStore = s3blob.NewTradeLogStore(s3Client)
	} else {
		logger.InfoContext(ctx, "wire: s3 not configured, trade log endpoints disabled")
	}

	return deps, cleanup, nil
}
