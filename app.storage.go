package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// OpenBookStorage connects to the configured storage backend and
// provides the book storage on top of it.
func OpenBookStorage(ctx context.Context, logger *zap.Logger, config *Config, clock Clocker) (BookStorage, error) {
	logger = logger.With(zap.String("storage.driver", config.Storage.Driver))
	switch config.Storage.Driver {
	case PostgresDriver:
		pool, err := GetPostgresPool(ctx, &config.Postgres)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres server: %w", err)
		}
		if config.Postgres.MigrateOnStart {
			if err = MigratePostgres(pool, config.Postgres.MigrationsTable); err != nil {
				pool.Close()
				return nil, fmt.Errorf("failed to migrate postgres schema: %w", err)
			}
			logger.Info("postgres schema migrated")
		}
		return NewPostgresBookStorage(logger, clock, pool), nil

	case RedisDriver:
		client, err := GetRedisClient(&config.Redis)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis server: %w", err)
		}
		return NewRedisBookStorage(logger, clock, client), nil

	case BoltDriver:
		client, err := GetBoltDBClient(&config.BoltDB)
		if err != nil {
			return nil, fmt.Errorf("failed to open boltdb file: %w", err)
		}
		return NewBoltBookStorage(logger, &config.BoltDB, clock, client), nil
	}
	return nil, fmt.Errorf("unsupported storage driver %q", config.Storage.Driver)
}
