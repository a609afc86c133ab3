package config

import (
	"fmt"
	"strings"
	"time"
)

// StoreBackend selects the account store implementation.
type StoreBackend string

const (
	// StoreBackendDynamoDB keeps accounts in a DynamoDB table.
	StoreBackendDynamoDB StoreBackend = "dynamodb"
	// StoreBackendPostgres keeps accounts in PostgreSQL.
	StoreBackendPostgres StoreBackend = "postgres"
)

// UnmarshalText implements encoding.TextUnmarshaler for StoreBackend.
func (b *StoreBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "dynamodb", "dynamo":
		*b = StoreBackendDynamoDB
		return nil
	case "postgres", "postgresql":
		*b = StoreBackendPostgres
		return nil
	default:
		return fmt.Errorf("invalid StoreBackend: %q (valid options: dynamodb, postgres)", v)
	}
}

// StoreConfig selects where accounts live.
type StoreConfig struct {
	Backend StoreBackend `env:"STORE_BACKEND" envDefault:"dynamodb"`
}

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"                    envDefault:"localhost"`
	Port     int    `env:"PORT"                    envDefault:"5432"`
	User     string `env:"USER"                    envDefault:"accountlink"`
	Password string `env:"PASSWORD"                envDefault:"accountlink"`
	Name     string `env:"NAME"                    envDefault:"accountlink"`
	SSLMode  string `env:"SSL_MODE"                envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// Pool sizing; values <= 0 fall back to the database/sql defaults.
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS"    envDefault:"10"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS"    envDefault:"2"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// DynamoDBConfig describes the accounts table.
type DynamoDBConfig struct {
	TableName  string `env:"TABLE_NAME"`
	EmailIndex string `env:"EMAIL_INDEX"  envDefault:"byEmail"`
	// CreateTable creates the table and index when missing. Intended for local stacks.
	CreateTable bool `env:"CREATE_TABLE" envDefault:"false"`
}

// Sanitize trims names and restores the default index.
func (c *DynamoDBConfig) Sanitize() {
	c.TableName = strings.TrimSpace(c.TableName)
	if c.EmailIndex = strings.TrimSpace(c.EmailIndex); c.EmailIndex == "" {
		c.EmailIndex = "byEmail"
	}
}

// AWSConfig overrides the SDK's default region and endpoint resolution.
// Credentials always come from the default chain.
type AWSConfig struct {
	Region string `env:"REGION"`
	// EndpointURL points every AWS client at a local emulator such as LocalStack.
	EndpointURL string `env:"ENDPOINT_URL"`
}

// Sanitize trims whitespace.
func (c *AWSConfig) Sanitize() {
	c.Region = strings.TrimSpace(c.Region)
	c.EndpointURL = strings.TrimSpace(c.EndpointURL)
}
