package config

import (
	"fmt"
	"strings"
	"time"
)

// CacheBackend selects the account lookup cache.
type CacheBackend string

const (
	// CacheBackendNone disables caching.
	CacheBackendNone CacheBackend = "none"
	// CacheBackendMemory caches in process.
	CacheBackendMemory CacheBackend = "memory"
	// CacheBackendRedis caches in Redis, shared across instances.
	CacheBackendRedis CacheBackend = "redis"
)

// UnmarshalText implements encoding.TextUnmarshaler for CacheBackend.
func (b *CacheBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "", "none", "off":
		*b = CacheBackendNone
		return nil
	case "memory", "redis":
		*b = CacheBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid CacheBackend: %q (valid options: none, memory, redis)", v)
	}
}

// CacheConfig controls the read-through account cache.
type CacheConfig struct {
	Backend CacheBackend  `env:"BACKEND" envDefault:"none"`
	TTL     time.Duration `env:"TTL"     envDefault:"30s"`
	Prefix  string        `env:"PREFIX"  envDefault:"accountlink:account:"`
}

// Sanitize applies guardrails to cache settings.
func (c *CacheConfig) Sanitize() {
	if c.TTL <= 0 {
		c.TTL = 30 * time.Second
	}
	if c.TTL > 10*time.Minute {
		c.TTL = 10 * time.Minute
	}
	if strings.TrimSpace(c.Prefix) == "" {
		c.Prefix = "accountlink:account:"
	}
}

// Enabled reports whether a cache backend is selected.
func (c CacheConfig) Enabled() bool { return c.Backend == CacheBackendMemory || c.Backend == CacheBackendRedis }

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}
