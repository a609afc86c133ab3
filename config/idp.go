package config

import (
	"fmt"
	"strings"
)

// IdPMode represents how session markers reach the identity provider.
type IdPMode string

const (
	// IdPModeCognito calls the Cognito admin API.
	IdPModeCognito IdPMode = "cognito"
	// IdPModeLog only logs the mutations (for development only).
	IdPModeLog IdPMode = "log"
)

// UnmarshalText implements encoding.TextUnmarshaler for IdPMode.
func (m *IdPMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "cognito", "log":
		*m = IdPMode(v)
		return nil
	default:
		return fmt.Errorf("invalid IdPMode: %q (valid options: cognito, log)", v)
	}
}

// IdPConfig contains identity provider configuration.
type IdPConfig struct {
	Mode       IdPMode `env:"MODE"         envDefault:"cognito"`
	UserPoolID string  `env:"USER_POOL_ID"`
	// AttributePrefix namespaces the session marker attributes.
	AttributePrefix string `env:"ATTRIBUTE_PREFIX" envDefault:"custom:"`
	// BridgeFederatedLinks also links a federated identity to the native user after an autolink.
	BridgeFederatedLinks bool   `env:"BRIDGE_FEDERATED_LINKS" envDefault:"false"`
	NativeProviderName   string `env:"NATIVE_PROVIDER_NAME"   envDefault:"Cognito"`
}

// Sanitize trims identifiers and restores defaults.
func (c *IdPConfig) Sanitize() {
	c.UserPoolID = strings.TrimSpace(c.UserPoolID)
	if c.AttributePrefix = strings.TrimSpace(c.AttributePrefix); c.AttributePrefix == "" {
		c.AttributePrefix = "custom:"
	}
	if c.NativeProviderName = strings.TrimSpace(c.NativeProviderName); c.NativeProviderName == "" {
		c.NativeProviderName = "Cognito"
	}
}

// LinkingConfig tunes provider classification.
type LinkingConfig struct {
	// ProviderMetadataExpr is a JMESPath expression that selects the provider hint
	// from a trigger's client metadata.
	ProviderMetadataExpr string `env:"PROVIDER_METADATA_EXPR" envDefault:"provider"`
}

// Sanitize restores the default expression.
func (c *LinkingConfig) Sanitize() {
	if c.ProviderMetadataExpr = strings.TrimSpace(c.ProviderMetadataExpr); c.ProviderMetadataExpr == "" {
		c.ProviderMetadataExpr = "provider"
	}
}
