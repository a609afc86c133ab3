package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Kyoronginus/accountlink/config"
	"github.com/Kyoronginus/accountlink/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		slog.Default().ErrorContext(ctx, "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
	logger := bootstrap.InitLogger(cfg.Log)
	if err = run(ctx, &cfg, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logStartupInfo(ctx, logger, cfg)

	infra, err := bootstrap.Connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := infra.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close infrastructure failed", "error", cerr)
		}
	}()

	store, err := bootstrap.BuildAccountStore(ctx, infra.StoreDeps(cfg, logger))
	if err != nil {
		return fmt.Errorf("build account store: %w", err)
	}
	services, err := bootstrap.NewServices(bootstrap.ServiceDeps{
		Config: cfg,
		Store:  store,
		AWS:    infra.AWS,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	verifier, err := bootstrap.BuildVerifier(ctx, cfg.TriggerAuth)
	if err != nil {
		return fmt.Errorf("build trigger verifier: %w", err)
	}

	return bootstrap.RunHTTPWithShutdown(ctx, &bootstrap.HTTPServerConfig{
		Config:   cfg,
		Services: services,
		Verifier: verifier,
		Checks:   infra.HealthChecks(),
		Logger:   logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting accountlink service",
		"store", cfg.Store.Backend,
		"cache", cfg.Cache.Backend,
		"idp_mode", cfg.IdP.Mode,
		"trigger_auth", cfg.TriggerAuth.Enabled(),
		"metrics", cfg.Metrics.Enabled,
		"dev", cfg.IsDev)
}
