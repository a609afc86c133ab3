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
	"github.com/Kyoronginus/accountlink/internal/adapters/cache"
	"github.com/Kyoronginus/accountlink/internal/adapters/dynamo"
	"github.com/Kyoronginus/accountlink/internal/data"
	"github.com/Kyoronginus/accountlink/internal/ports"
)

// StoreDeps groups the infrastructure an account store may need.
// Only the pieces required by the configured backends must be set.
type StoreDeps struct {
	Config *config.AppConfig // Required
	DB     *sql.DB
	Redis  redis.UniversalClient
	AWS    aws.Config
	Logger *slog.Logger
}

// BuildAccountStore constructs the configured account store, wrapped in the lookup
// cache when one is enabled.
//
//nolint:ireturn // the concrete store depends on configuration.
func BuildAccountStore(ctx context.Context, deps StoreDeps) (ports.AccountStore, error) {
	if deps.Config == nil {
		return nil, errors.New("config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	var (
		store ports.AccountStore
		err   error
	)
	switch cfg.Store.Backend {
	case config.StoreBackendPostgres:
		if deps.DB == nil {
			return nil, errors.New("postgres store requires a database connection")
		}
		store = data.NewAccountRepo(deps.DB)
	case config.StoreBackendDynamoDB, "":
		store, err = buildDynamoStore(ctx, deps, logger)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}

	logger.InfoContext(ctx, "account store ready", "backend", cfg.Store.Backend, "cache", cfg.Cache.Backend)
	return wrapWithCache(store, deps, logger)
}

func buildDynamoStore(ctx context.Context, deps StoreDeps, logger *slog.Logger) (*dynamo.Store, error) {
	cfg := deps.Config
	if cfg.DynamoDB.TableName == "" {
		return nil, errors.New("dynamodb store requires a table name")
	}
	client := NewDynamoDBClient(deps.AWS, cfg.AWS)

	if cfg.DynamoDB.CreateTable {
		created, err := dynamo.EnsureTable(ctx, client, cfg.DynamoDB.TableName, cfg.DynamoDB.EmailIndex)
		if err != nil {
			return nil, fmt.Errorf("ensure dynamodb table: %w", err)
		}
		if created {
			logger.InfoContext(ctx, "created dynamodb table", "table", cfg.DynamoDB.TableName)
		}
	}

	return dynamo.NewStore(dynamo.StoreOptions{
		Client:     client,
		Table:      cfg.DynamoDB.TableName,
		EmailIndex: cfg.DynamoDB.EmailIndex,
		Logger:     logger,
	}), nil
}

//nolint:ireturn // returns the input store unchanged when caching is off.
func wrapWithCache(store ports.AccountStore, deps StoreDeps, logger *slog.Logger) (ports.AccountStore, error) {
	cfg := deps.Config.Cache

	var backend cache.Backend
	switch cfg.Backend {
	case config.CacheBackendMemory:
		backend = cache.NewMemory(cfg.TTL)
	case config.CacheBackendRedis:
		if deps.Redis == nil {
			return nil, errors.New("redis cache requires a redis client")
		}
		backend = data.NewRedisCacheRepo(deps.Redis)
	default:
		return store, nil
	}

	return cache.NewStore(cache.StoreOptions{
		Next:    store,
		Backend: backend,
		TTL:     cfg.TTL,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	}), nil
}
