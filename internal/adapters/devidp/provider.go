package devidp

// Package devidp provides an in-process IdentityProvider for local development.
// It logs every admin call and keeps the resulting user attributes in memory
// instead of calling a real user pool.

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"

	"github.com/Kyoronginus/accountlink/internal/ports"
)

// Provider implements ports.IdentityProvider for local development.
type Provider struct {
	logger *slog.Logger

	mu    sync.Mutex
	attrs map[string]map[string]string
	links map[string]string
}

var _ ports.IdentityProvider = (*Provider)(nil)

// NewProvider constructs a dev identity provider.
func NewProvider(logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		logger: logger.With("component", "dev_idp"),
		attrs:  make(map[string]map[string]string),
		links:  make(map[string]string),
	}
}

// UpdateUserAttributes merges the attributes into the user's in-memory record.
func (p *Provider) UpdateUserAttributes(ctx context.Context, in ports.UpdateAttributesInput) error {
	if in.Username == "" {
		return errors.New("dev idp: username is required")
	}
	p.mu.Lock()
	cur := p.attrs[in.Username]
	if cur == nil {
		cur = make(map[string]string, len(in.Attributes))
		p.attrs[in.Username] = cur
	}
	maps.Copy(cur, in.Attributes)
	p.mu.Unlock()

	p.logger.InfoContext(ctx, "dev idp: update user attributes",
		"user_pool_id", in.UserPoolID, "username", in.Username, "attributes", in.Attributes)
	return nil
}

// LinkProviderIdentity records that the source identity now belongs to the destination user.
func (p *Provider) LinkProviderIdentity(ctx context.Context, in ports.LinkIdentityInput) error {
	if in.DestinationUsername == "" || in.SourceProvider == "" || in.SourceSubject == "" {
		return errors.New("dev idp: destination and source identity are required")
	}
	p.mu.Lock()
	p.links[in.SourceProvider+"_"+in.SourceSubject] = in.DestinationUsername
	p.mu.Unlock()

	p.logger.InfoContext(ctx, "dev idp: link provider identity",
		"user_pool_id", in.UserPoolID,
		"destination", in.DestinationUsername,
		"source_provider", in.SourceProvider,
		"source_subject", in.SourceSubject,
	)
	return nil
}

// Attributes returns a copy of the attributes recorded for username.
func (p *Provider) Attributes(username string) map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return maps.Clone(p.attrs[username])
}

// LinkedTo returns the destination user a federated username was linked to.
func (p *Provider) LinkedTo(federatedUsername string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	dest, ok := p.links[federatedUsername]
	return dest, ok
}
