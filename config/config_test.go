package config

import (
	"reflect"
	"strings"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func parse(t *testing.T, vars map[string]string) AppConfig {
	t.Helper()
	var cfg AppConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	return cfg
}

func TestAppConfig_Defaults(t *testing.T) {
	cfg := parse(t, map[string]string{})
	cfg.Sanitize()

	if cfg.Store.Backend != StoreBackendDynamoDB {
		t.Errorf("expected dynamodb backend, got %q", cfg.Store.Backend)
	}
	if cfg.DynamoDB.EmailIndex != "byEmail" {
		t.Errorf("expected byEmail index, got %q", cfg.DynamoDB.EmailIndex)
	}
	if cfg.Cache.Backend != CacheBackendNone || cfg.Cache.Enabled() {
		t.Errorf("expected cache disabled, got %q", cfg.Cache.Backend)
	}
	if cfg.Cache.TTL != 30*time.Second {
		t.Errorf("expected 30s TTL, got %s", cfg.Cache.TTL)
	}
	if cfg.IdP.Mode != IdPModeCognito || cfg.IdP.AttributePrefix != "custom:" || cfg.IdP.NativeProviderName != "Cognito" {
		t.Errorf("unexpected idp defaults: %+v", cfg.IdP)
	}
	if cfg.Linking.ProviderMetadataExpr != "provider" {
		t.Errorf("expected provider expression, got %q", cfg.Linking.ProviderMetadataExpr)
	}
	if cfg.HTTP.Addr != ":8080" || cfg.Log.Format != "json" || !cfg.Metrics.Enabled {
		t.Errorf("unexpected ambient defaults: http=%+v log=%+v metrics=%+v", cfg.HTTP, cfg.Log, cfg.Metrics)
	}
	if cfg.TriggerAuth.Enabled() {
		t.Error("expected trigger auth disabled by default")
	}
}

func TestAppConfig_ParseEnv(t *testing.T) {
	cfg := parse(t, map[string]string{
		"STORE_BACKEND":                  "Postgres",
		"DB_HOST":                        "db",
		"DB_PORT":                        "6543",
		"DYNAMODB_TABLE_NAME":            " accounts ",
		"AWS_REGION":                     "eu-west-1",
		"AWS_ENDPOINT_URL":               "http://localstack:4566",
		"CACHE_BACKEND":                  "redis",
		"CACHE_TTL":                      "1m",
		"REDIS_URI":                      "redis://cache:6379/2",
		"REDIS_CLUSTER_NODES":            "a:1,b:2",
		"IDP_MODE":                       "log",
		"IDP_USER_POOL_ID":               "us-east-1_abc",
		"IDP_BRIDGE_FEDERATED_LINKS":     "true",
		"LINKING_PROVIDER_METADATA_EXPR": "auth.provider",
		"TRIGGER_AUTH_ISSUER":            "https://issuer.example.com",
		"TRIGGER_AUTH_AUDIENCE":          "accountlink",
		"METRICS_ENABLED":                "false",
		"LOG_LEVEL":                      "DEBUG",
		"LOG_FORMAT":                     "text",
	})
	cfg.Sanitize()

	if cfg.Store.Backend != StoreBackendPostgres {
		t.Errorf("expected postgres, got %q", cfg.Store.Backend)
	}
	if cfg.Postgres.Host != "db" || cfg.Postgres.Port != 6543 {
		t.Errorf("unexpected postgres config: %+v", cfg.Postgres)
	}
	if cfg.DynamoDB.TableName != "accounts" {
		t.Errorf("expected trimmed table name, got %q", cfg.DynamoDB.TableName)
	}
	if cfg.AWS != (AWSConfig{Region: "eu-west-1", EndpointURL: "http://localstack:4566"}) {
		t.Errorf("unexpected aws config: %+v", cfg.AWS)
	}
	if cfg.Cache.Backend != CacheBackendRedis || cfg.Cache.TTL != time.Minute {
		t.Errorf("unexpected cache config: %+v", cfg.Cache)
	}
	if !reflect.DeepEqual(cfg.Redis.ClusterNodes, []string{"a:1", "b:2"}) {
		t.Errorf("unexpected cluster nodes: %v", cfg.Redis.ClusterNodes)
	}
	if cfg.IdP.Mode != IdPModeLog || !cfg.IdP.BridgeFederatedLinks || cfg.IdP.UserPoolID != "us-east-1_abc" {
		t.Errorf("unexpected idp config: %+v", cfg.IdP)
	}
	if cfg.Linking.ProviderMetadataExpr != "auth.provider" {
		t.Errorf("unexpected expression %q", cfg.Linking.ProviderMetadataExpr)
	}
	if !cfg.TriggerAuth.Enabled() || cfg.TriggerAuth.Audience != "accountlink" {
		t.Errorf("unexpected trigger auth: %+v", cfg.TriggerAuth)
	}
	if cfg.Metrics.Enabled {
		t.Error("expected metrics disabled")
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("unexpected log config: %+v", cfg.Log)
	}
}

func TestAppConfig_InvalidEnums(t *testing.T) {
	for _, vars := range []map[string]string{
		{"STORE_BACKEND": "mongo"},
		{"CACHE_BACKEND": "memcached"},
		{"IDP_MODE": "okta"},
	} {
		var cfg AppConfig
		if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err == nil {
			t.Errorf("expected parse error for %v", vars)
		}
	}
}

func TestAppConfig_Validate(t *testing.T) {
	t.Setenv("NODE_ENV", "")
	tests := []struct {
		name    string
		vars    map[string]string
		wantErr string
	}{
		{
			name:    "dynamodb without table",
			vars:    map[string]string{"IDP_USER_POOL_ID": "pool"},
			wantErr: "DYNAMODB_TABLE_NAME",
		},
		{
			name:    "cognito without pool",
			vars:    map[string]string{"DYNAMODB_TABLE_NAME": "accounts"},
			wantErr: "IDP_USER_POOL_ID",
		},
		{
			name:    "audience without issuer",
			vars:    map[string]string{"STORE_BACKEND": "postgres", "IDP_MODE": "log", "TRIGGER_AUTH_AUDIENCE": "x"},
			wantErr: "TRIGGER_AUTH_ISSUER",
		},
		{
			name: "postgres with log idp",
			vars: map[string]string{"STORE_BACKEND": "postgres", "IDP_MODE": "log"},
		},
		{
			name: "dev mode without pool falls back to log",
			vars: map[string]string{"DEV": "true", "DYNAMODB_TABLE_NAME": "accounts"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := parse(t, tt.vars)
			cfg.Sanitize()
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAppConfig_DetectDevModeFromNodeEnv(t *testing.T) {
	t.Setenv("NODE_ENV", "development")
	cfg := parse(t, map[string]string{})
	cfg.Sanitize()
	if !cfg.IsDev {
		t.Fatal("expected NODE_ENV=development to enable dev mode")
	}
}

func TestCacheConfig_Sanitize(t *testing.T) {
	cfg := CacheConfig{TTL: -1, Prefix: " "}
	cfg.Sanitize()
	if cfg.TTL != 30*time.Second || cfg.Prefix != "accountlink:account:" {
		t.Fatalf("unexpected sanitized cache config: %+v", cfg)
	}

	cfg = CacheConfig{TTL: time.Hour, Prefix: "x:"}
	cfg.Sanitize()
	if cfg.TTL != 10*time.Minute {
		t.Fatalf("expected TTL clamp to 10m, got %s", cfg.TTL)
	}
}

func TestLogConfig_SlogLevel(t *testing.T) {
	tests := map[string]string{"debug": "DEBUG", "warning": "WARN", "error": "ERROR", "": "INFO", "bogus": "INFO"}
	for in, want := range tests {
		cfg := LogConfig{Level: in}
		if got := cfg.SlogLevel().String(); got != want {
			t.Errorf("level %q: expected %s, got %s", in, want, got)
		}
	}
}
