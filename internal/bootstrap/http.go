package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kyoronginus/accountlink/config"
	"github.com/Kyoronginus/accountlink/internal/adapters/oidc"
	httpx "github.com/Kyoronginus/accountlink/internal/http"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	// Verifier guards the /v1 routes; nil leaves them open.
	Verifier *oidc.Verifier
	// Checks are the readiness checks, usually Infrastructure.HealthChecks.
	Checks   map[string]httpx.HealthCheck
	Logger   *slog.Logger
}

// BuildVerifier discovers the trigger auth issuer. It returns nil when auth is disabled.
func BuildVerifier(ctx context.Context, cfg config.TriggerAuthConfig) (*oidc.Verifier, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	return oidc.NewVerifier(ctx, oidc.VerifierConfig{Issuer: cfg.Issuer, Audience: cfg.Audience})
}

// BuildHTTPHandler assembles the router from the wired services.
func BuildHTTPHandler(cfg *HTTPServerConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	services := httpx.RouterServices{
		Dispatcher: cfg.Services.Dispatcher,
		Accounts:   cfg.Services.Accounts,
		Evaluator:  cfg.Services.Linking,
		Metrics:    cfg.Services.HTTPMetrics,
		Checks:     cfg.Checks,
		Logger:     logger,
	}
	// Assign through the nil checks so the interfaces stay nil.
	if cfg.Verifier != nil {
		services.Verifier = cfg.Verifier
	}
	if cfg.Services.Registry != nil {
		services.Gatherer = cfg.Services.Registry
	}
	return httpx.NewRouter(services)
}

// StartHTTPServer creates and starts the HTTP server.
// Returns the server instance for graceful shutdown.
func StartHTTPServer(cfg *HTTPServerConfig) *http.Server {
	if cfg == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	httpCfg := config.HTTPConfig{}
	if cfg.Config != nil {
		httpCfg = cfg.Config.HTTP
	}
	httpCfg.Sanitize()

	server := &http.Server{
		Addr:              httpCfg.Addr,
		Handler:           BuildHTTPHandler(cfg),
		ReadTimeout:       httpCfg.ReadTimeout,
		ReadHeaderTimeout: httpCfg.ReadTimeout,
		WriteTimeout:      httpCfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
		}
	}()

	return server
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Timeout time.Duration
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	parent := cfg.Context
	if parent == nil {
		parent = context.Background()
	}
	shutdownCtx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}

	return nil
}

// RunHTTPWithShutdown starts the server and blocks until SIGINT or SIGTERM.
func RunHTTPWithShutdown(ctx context.Context, cfg *HTTPServerConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("http server config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	server := StartHTTPServer(cfg)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case <-ctx.Done():
	}
	logger.Info("shutting down services...")

	return ShutdownHTTPServer(ShutdownConfig{
		Context: context.WithoutCancel(ctx),
		Server:  server,
		Timeout: cfg.Config.HTTP.ShutdownTimeout,
		Logger:  logger,
	})
}
