package oidc

// Package oidc verifies bearer tokens presented by callers of the trigger endpoint.

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// ErrMissingToken is returned when no bearer token was presented.
var ErrMissingToken = errors.New("bearer token is required")

// VerifierConfig holds configuration for the token verifier.
type VerifierConfig struct {
	// Issuer is the OIDC issuer URL; discovery is fetched from it.
	Issuer string
	// Audience is the expected "aud" claim. Empty disables the audience check.
	Audience   string
	HTTPClient *http.Client // Optional, defaults to a client with a 30s timeout
}

// Caller is the verified identity of a machine caller.
type Caller struct {
	Subject   string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
}

// Verifier validates signed JWTs against an issuer's published keys.
type Verifier struct {
	verifier *gooidc.IDTokenVerifier
}

// NewVerifier performs OIDC discovery against cfg.Issuer and returns a Verifier.
func NewVerifier(ctx context.Context, cfg VerifierConfig) (*Verifier, error) {
	if cfg.Issuer == "" {
		return nil, errors.New("issuer is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	issuer := strings.TrimSuffix(cfg.Issuer, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}
	// The verifier keeps using this context to refresh keys.
	return &Verifier{verifier: op.Verifier(verifierConfig(cfg.Audience))}, nil
}

// NewStaticVerifier returns a Verifier that trusts a fixed set of public keys.
func NewStaticVerifier(issuer, audience string, keys ...crypto.PublicKey) *Verifier {
	ks := &gooidc.StaticKeySet{PublicKeys: keys}
	return &Verifier{verifier: gooidc.NewVerifier(issuer, ks, verifierConfig(audience))}
}

func verifierConfig(audience string) *gooidc.Config {
	if audience == "" {
		return &gooidc.Config{SkipClientIDCheck: true}
	}
	return &gooidc.Config{ClientID: audience}
}

// Verify checks the token's signature, issuer, audience and expiry.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (Caller, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return Caller{}, ErrMissingToken
	}
	tok, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return Caller{}, fmt.Errorf("verify token: %w", err)
	}
	return Caller{
		Subject:   tok.Subject,
		Issuer:    tok.Issuer,
		Audience:  tok.Audience,
		ExpiresAt: tok.Expiry,
	}, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
