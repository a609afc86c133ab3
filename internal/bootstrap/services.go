package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Kyoronginus/accountlink/config"
	"github.com/Kyoronginus/accountlink/internal/adapters/cognito"
	"github.com/Kyoronginus/accountlink/internal/adapters/devidp"
	"github.com/Kyoronginus/accountlink/internal/observability/metrics"
	"github.com/Kyoronginus/accountlink/internal/ports"
	"github.com/Kyoronginus/accountlink/internal/service"
)

// ServiceContainer holds the wired application services.
type ServiceContainer struct {
	Linking    *service.LinkingService
	Accounts   *service.AccountAdminService
	Dispatcher *cognito.Dispatcher
	// Registry is nil when metrics are disabled.
	Registry    *prometheus.Registry
	HTTPMetrics *metrics.HTTP
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config *config.AppConfig  // Required
	Store  ports.AccountStore // Required
	// AWS is used to reach the Cognito admin API when IDP_MODE=cognito.
	AWS    aws.Config
	Logger *slog.Logger
}

// NewServices wires the linking pipeline, its entry points and metrics.
func NewServices(deps ServiceDeps) (ServiceContainer, error) {
	if deps.Config == nil || deps.Store == nil {
		return ServiceContainer{}, errors.New("config and account store are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		registry    *prometheus.Registry
		linkMetrics *metrics.Linking
		httpMetrics *metrics.HTTP
		err         error
	)
	if deps.Config.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		if linkMetrics, err = metrics.NewLinking(registry); err != nil {
			return ServiceContainer{}, fmt.Errorf("register linking metrics: %w", err)
		}
		if httpMetrics, err = metrics.NewHTTP(registry); err != nil {
			return ServiceContainer{}, fmt.Errorf("register http metrics: %w", err)
		}
	}

	idp := BuildIdentityProvider(deps.Config, deps.AWS, logger)
	linker, err := BuildLinkingService(LinkingDeps{
		Config:  deps.Config,
		Store:   deps.Store,
		IdP:     idp,
		Metrics: linkMetrics,
		Logger:  logger,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	return ServiceContainer{
		Linking:     linker,
		Accounts:    service.NewAccountAdminService(deps.Store),
		Dispatcher:  cognito.NewDispatcher(cognito.DispatcherOptions{Linker: linker, Logger: logger}),
		Registry:    registry,
		HTTPMetrics: httpMetrics,
	}, nil
}

// BuildIdentityProvider returns the Cognito admin adapter or, in log mode, a
// provider that only records what it would have done.
//
//nolint:ireturn // the concrete provider depends on configuration.
func BuildIdentityProvider(cfg *config.AppConfig, awsCfg aws.Config, logger *slog.Logger) ports.IdentityProvider {
	if cfg.IdP.Mode == config.IdPModeLog {
		logger.Warn("identity provider in log mode; session markers will not be persisted")
		return devidp.NewProvider(logger)
	}
	return cognito.NewIdentityProvider(cognito.IdentityProviderOptions{
		Client:             NewCognitoClient(awsCfg, cfg.AWS),
		UserPoolID:         cfg.IdP.UserPoolID,
		NativeProviderName: cfg.IdP.NativeProviderName,
		Logger:             logger,
	})
}

// LinkingDeps groups dependencies for BuildLinkingService.
type LinkingDeps struct {
	Config  *config.AppConfig
	Store   ports.AccountStore
	IdP     ports.IdentityProvider
	Metrics *metrics.Linking
	Logger  *slog.Logger
}

// BuildLinkingService validates the classifier expression and assembles the service.
func BuildLinkingService(deps LinkingDeps) (*service.LinkingService, error) {
	classifier, err := service.NewProviderClassifier(service.ProviderClassifierOptions{
		MetadataExpr: deps.Config.Linking.ProviderMetadataExpr,
	})
	if err != nil {
		return nil, err
	}
	return service.NewLinkingService(service.LinkingServiceOptions{
		Store: deps.Store,
		IdP:   deps.IdP,
		Config: service.LinkingConfig{
			AttributePrefix:      deps.Config.IdP.AttributePrefix,
			Classifier:           classifier,
			BridgeFederatedLinks: deps.Config.IdP.BridgeFederatedLinks,
			Logger:               deps.Logger,
			Metrics:              deps.Metrics,
		},
	}), nil
}
