package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/redis/go-redis/v9"

	"github.com/Kyoronginus/accountlink/config"
	"github.com/Kyoronginus/accountlink/internal/data"
	httpx "github.com/Kyoronginus/accountlink/internal/http"
)

// Infrastructure holds the connections a process needs for its configured backends.
type Infrastructure struct {
	DB    *sql.DB               // nil unless STORE_BACKEND=postgres
	Redis redis.UniversalClient // nil unless CACHE_BACKEND=redis
	AWS   aws.Config
}

// Connect opens only the connections the configuration asks for and runs
// migrations when the Postgres store is selected and enabled.
func Connect(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*Infrastructure, error) {
	infra := &Infrastructure{}

	awsCfg, err := LoadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		return nil, err
	}
	infra.AWS = awsCfg

	if cfg.Store.Backend == config.StoreBackendPostgres {
		infra.DB, err = ConnectDB(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect db: %w", err)
		}
		if cfg.Postgres.RunMigrationsOnStart {
			if err = RunMigrations(ctx, infra.DB, logger); err != nil {
				return nil, errors.Join(err, infra.Close())
			}
		} else {
			logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
		}
	}

	if cfg.Cache.Backend == config.CacheBackendRedis {
		infra.Redis, err = ConnectRedis(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("connect redis: %w", err), infra.Close())
		}
	}

	return infra, nil
}

// Close releases every open connection.
func (i *Infrastructure) Close() error {
	if i == nil {
		return nil
	}
	var errs []error
	if i.DB != nil {
		if err := i.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

// StoreDeps returns the store dependencies backed by these connections.
func (i *Infrastructure) StoreDeps(cfg *config.AppConfig, logger *slog.Logger) StoreDeps {
	return StoreDeps{Config: cfg, DB: i.DB, Redis: i.Redis, AWS: i.AWS, Logger: logger}
}

// HealthChecks returns a readiness check per open connection.
func (i *Infrastructure) HealthChecks() map[string]httpx.HealthCheck {
	checks := map[string]httpx.HealthCheck{}
	if i.DB != nil {
		checks["postgres"] = i.DB.PingContext
	}
	if i.Redis != nil {
		checks["redis"] = data.NewRedisCacheRepo(i.Redis).Health
	}
	return checks
}
