// Command accountlink-lambda serves Cognito user pool triggers as an AWS Lambda function.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/Kyoronginus/accountlink/config"
	"github.com/Kyoronginus/accountlink/internal/adapters/cognito"
	"github.com/Kyoronginus/accountlink/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		slog.Default().ErrorContext(ctx, "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // Lambda init failures must surface as a failed cold start.
	}
	logger := bootstrap.InitLogger(cfg.Log)

	dispatcher, cleanup, err := build(ctx, &cfg, logger)
	if err != nil {
		logger.ErrorContext(ctx, "lambda init failed", "error", err)
		os.Exit(1) //nolint:forbidigo // Lambda init failures must surface as a failed cold start.
	}
	defer cleanup()

	lambda.Start(dispatcher.LambdaHandler())
}

func build(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*cognito.Dispatcher, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	// Metrics have no scrape endpoint inside Lambda.
	cfg.Metrics.Enabled = false

	infra, err := bootstrap.Connect(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if cerr := infra.Close(); cerr != nil {
			logger.Error("close infrastructure failed", "error", cerr)
		}
	}

	store, err := bootstrap.BuildAccountStore(ctx, infra.StoreDeps(cfg, logger))
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("build account store: %w", err)
	}
	services, err := bootstrap.NewServices(bootstrap.ServiceDeps{Config: cfg, Store: store, AWS: infra.AWS, Logger: logger})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return services.Dispatcher, cleanup, nil
}
