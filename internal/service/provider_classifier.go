package service

import (
	"fmt"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/Kyoronginus/accountlink/internal/domain/account"
	"github.com/Kyoronginus/accountlink/internal/ports"
)

// DefaultProviderMetadataExpr selects the provider hint from client metadata.
const DefaultProviderMetadataExpr = "provider"

// ProviderClassifierOptions configures ProviderClassifier.
type ProviderClassifierOptions struct {
	// MetadataExpr is a JMESPath expression evaluated against the event's client metadata.
	// Empty means DefaultProviderMetadataExpr.
	MetadataExpr string
}

// ProviderClassifier maps raw trigger metadata to a canonical provider tag.
type ProviderClassifier struct {
	expr string
}

// NewProviderClassifier validates the metadata expression and returns a classifier.
func NewProviderClassifier(opts ProviderClassifierOptions) (*ProviderClassifier, error) {
	expr := strings.TrimSpace(opts.MetadataExpr)
	if expr == "" {
		expr = DefaultProviderMetadataExpr
	}
	if _, err := jmespath.Compile(expr); err != nil {
		return nil, fmt.Errorf("compile provider metadata expression %q: %w", expr, err)
	}
	return &ProviderClassifier{expr: expr}, nil
}

// Classify returns the provider tag for ev. It never fails: native sign-ins are Email
// and unrecognised federated sign-ins are OAuth.
func (c *ProviderClassifier) Classify(ev ports.TriggerEvent) account.Provider {
	if !ev.IsExternalProvider() {
		return account.ProviderEmail
	}
	if p, ok := providerFromUsername(ev.Username); ok {
		return p
	}
	if p, ok := providerFromUsername(ev.Attributes[ports.AttrCognitoUsername]); ok {
		return p
	}
	if p, ok := c.providerFromMetadata(ev.ClientMetadata); ok {
		return p
	}
	return account.ProviderOAuth
}

func providerFromUsername(username string) (account.Provider, bool) {
	u := strings.ToLower(username)
	switch {
	case strings.HasPrefix(u, "google_"):
		return account.ProviderGoogle, true
	case strings.HasPrefix(u, "facebook_"):
		return account.ProviderFacebook, true
	default:
		return "", false
	}
}

func (c *ProviderClassifier) providerFromMetadata(md map[string]string) (account.Provider, bool) {
	if c == nil || len(md) == 0 {
		return "", false
	}
	data := make(map[string]any, len(md))
	for k, v := range md {
		data[k] = v
	}
	res, err := jmespath.Search(c.expr, data)
	if err != nil {
		return "", false
	}
	s, ok := res.(string)
	if !ok {
		return "", false
	}
	p, err := account.ParseProvider(s)
	if err != nil || p == account.ProviderEmail {
		return "", false
	}
	return p, true
}
