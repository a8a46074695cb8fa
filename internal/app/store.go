package app

import (
	"context"
	"fmt"
	"log/slog"

	"wallet_api/internal/config"
	"wallet_api/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenStore connects the backend selected by cfg.StoreBackend, applies the
// schema and wraps the result in the redis read cache when REDIS_URL is set.
// The returned func releases every connection it opened.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Store, func(), error) {
	var (
		store   repository.Store
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		poolConfig, err := pgxpool.ParseConfig(cfg.DBURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse db config: %w", err)
		}
		poolConfig.MaxConns = int32(cfg.DBMaxConns)
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		closers = append(closers, pool.Close)
		if err := repository.Migrate(ctx, pool); err != nil {
			closeAll()
			return nil, nil, err
		}
		store = repository.NewWalletPGRepository(pool, logger)

	case config.BackendGorm:
		db, err := gorm.Open(postgres.Open(cfg.DBURL), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("database handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(cfg.DBMaxConns)
		closers = append(closers, func() { _ = sqlDB.Close() })
		repo := repository.NewWalletGormRepository(db, logger)
		if err := repo.AutoMigrate(); err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		store = repo

	case config.BackendMemory:
		store = repository.NewWalletMemoryRepository()

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		closers = append(closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		store = repository.NewCachedWalletStore(store, client, cfg.CacheTTL, logger)
		logger.Info("Wallet read cache enabled", slog.Duration("ttl", cfg.CacheTTL))
	}

	logger.Info("Wallet store ready", slog.String("backend", cfg.StoreBackend))
	return store, closeAll, nil
}
