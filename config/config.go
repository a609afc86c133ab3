package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - store.go: Account store backend, DynamoDB and PostgreSQL configuration
//   - cache.go: Lookup cache and Redis configuration
//   - idp.go: Identity provider and linking configuration
//   - http.go: HTTP server and trigger endpoint authentication
//   - observability.go: Logging and metrics
type AppConfig struct {
	// IsDev controls development mode behavior (text logs, log-only identity provider).
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	Log LogConfig

	// Account store configuration
	Store    StoreConfig
	Postgres DBConfig       `envPrefix:"DB_"`
	DynamoDB DynamoDBConfig `envPrefix:"DYNAMODB_"`
	AWS      AWSConfig      `envPrefix:"AWS_"`

	// Cache configuration
	Redis RedisConfig `envPrefix:"REDIS_"`
	Cache CacheConfig `envPrefix:"CACHE_"`

	// Identity provider and policy configuration
	IdP     IdPConfig     `envPrefix:"IDP_"`
	Linking LinkingConfig `envPrefix:"LINKING_"`

	// HTTP server configuration
	HTTP        HTTPConfig
	TriggerAuth TriggerAuthConfig `envPrefix:"TRIGGER_AUTH_"`

	Metrics MetricsConfig `envPrefix:"METRICS_"`
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.detectDevMode()

	c.Log.Sanitize()
	c.DynamoDB.Sanitize()
	c.AWS.Sanitize()
	c.Cache.Sanitize()
	c.IdP.Sanitize()
	c.Linking.Sanitize()
	c.HTTP.Sanitize()
	c.TriggerAuth.Sanitize()

	// Without a user pool there is nothing to call; fall back to logging the mutations.
	if c.IdP.Mode == IdPModeCognito && c.IdP.UserPoolID == "" && c.IsDev {
		c.IdP.Mode = IdPModeLog
	}
}

// Validate reports configuration that cannot produce a working process.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Store.Backend == StoreBackendDynamoDB && c.DynamoDB.TableName == "" {
		errs = append(errs, errors.New("DYNAMODB_TABLE_NAME is required when STORE_BACKEND=dynamodb"))
	}
	if c.IdP.Mode == IdPModeCognito && c.IdP.UserPoolID == "" {
		errs = append(errs, errors.New("IDP_USER_POOL_ID is required when IDP_MODE=cognito"))
	}
	if c.TriggerAuth.Audience != "" && c.TriggerAuth.Issuer == "" {
		errs = append(errs, errors.New("TRIGGER_AUTH_ISSUER is required when TRIGGER_AUTH_AUDIENCE is set"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
