package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Kyoronginus/accountlink/internal/domain/account"
	"github.com/Kyoronginus/accountlink/internal/domain/linking"
	apperrors "github.com/Kyoronginus/accountlink/internal/errors"
	"github.com/Kyoronginus/accountlink/internal/observability/metrics"
	"github.com/Kyoronginus/accountlink/internal/ports"
)

// Mutation operation labels.
const (
	opCreate       = "create"
	opLinkMethod   = "add_linked_method"
	opBridge       = "link_provider_identity"
	opStampMarkers = "update_user_attributes"
)

// ApplierConfig holds the optional behaviour of MutationApplier.
type ApplierConfig struct {
	// BridgeFederatedLinks links the federated identity to the native user in the IdP
	// when a social method is linked to an Email-primary account.
	BridgeFederatedLinks bool
	Logger               *slog.Logger
	Metrics              *metrics.Linking
	// Now defaults to time.Now.
	Now func() time.Time
}

// MutationApplierOptions groups dependencies for MutationApplier.
type MutationApplierOptions struct {
	Store  ports.AccountStore     // Required
	IdP    ports.IdentityProvider // Optional: skips bridging and marker sync when nil
	Config ApplierConfig
}

// MutationApplier executes the side effects of a linking decision.
type MutationApplier struct {
	store   ports.AccountStore
	idp     ports.IdentityProvider
	bridge  bool
	logger  *slog.Logger
	metrics *metrics.Linking
	now     func() time.Time
}

// NewMutationApplier constructs a MutationApplier.
func NewMutationApplier(opts MutationApplierOptions) *MutationApplier {
	if opts.Store == nil {
		panic("AccountStore is required")
	}
	logger := opts.Config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Config.Now
	if now == nil {
		now = time.Now
	}
	return &MutationApplier{
		store:   opts.Store,
		idp:     opts.IdP,
		bridge:  opts.Config.BridgeFederatedLinks,
		logger:  logger.With("component", "mutation_applier"),
		metrics: opts.Config.Metrics,
		now:     now,
	}
}

// Apply performs the writes d calls for and returns the account as stored afterwards.
// acct is the account d was decided against (nil for create).
//
// A duplicate create is a success: the stored winner is returned when it can be read.
// Blocks return an error with code ErrCodeBlocked.
func (a *MutationApplier) Apply(
	ctx context.Context,
	d linking.Decision,
	acct *account.Account,
	ev ports.TriggerEvent,
) (*account.Account, error) {
	switch d.Action {
	case linking.ActionBlock:
		return nil, apperrors.Blocked(d.Err())
	case linking.ActionCreate:
		return a.create(ctx, d, ev)
	case linking.ActionAllowAutolink:
		return a.link(ctx, d, ev)
	case linking.ActionAllowPrimary, linking.ActionAllowLinked:
		return acct, nil
	default:
		return nil, fmt.Errorf("apply decision: unknown action %q", d.Action)
	}
}

func (a *MutationApplier) create(ctx context.Context, d linking.Decision, ev ports.TriggerEvent) (*account.Account, error) {
	acct := account.New(ev.Subject(), ev.Email(), ev.DisplayName(), d.Provider, a.now())
	err := a.store.CreateIfAbsent(ctx, acct)
	switch {
	case err == nil:
		a.metrics.ObserveMutation(opCreate, metrics.ResultSuccess)
		a.logger.InfoContext(ctx, "account created",
			"account_id", acct.ID, "primary_auth_method", acct.PrimaryAuthMethod)
		return &acct, nil
	case errors.Is(err, ports.ErrAccountExists):
		a.metrics.ObserveMutation(opCreate, metrics.ResultNoop)
		a.logger.InfoContext(ctx, "account already created by a concurrent registration", "subject", acct.ID)
		winner, readErr := a.store.FindByEmail(ctx, acct.Email)
		if readErr != nil {
			a.logger.WarnContext(ctx, "read back existing account failed", "error", readErr)
			return nil, nil //nolint:nilnil // the create itself succeeded as a no-op
		}
		return winner, nil
	default:
		a.metrics.ObserveMutation(opCreate, metrics.ResultError)
		return nil, fmt.Errorf("create account: %w", asTransport(err, "create account"))
	}
}

func (a *MutationApplier) link(ctx context.Context, d linking.Decision, ev ports.TriggerEvent) (*account.Account, error) {
	updated, err := a.store.AddLinkedMethod(ctx, d.AccountID, d.Provider, a.now())
	if err != nil {
		a.metrics.ObserveMutation(opLinkMethod, metrics.ResultError)
		if errors.Is(err, ports.ErrAccountNotFound) {
			return nil, apperrors.Wrapf(err, apperrors.ErrCodeInternal, "link %s to account %s", d.Provider, d.AccountID)
		}
		return nil, fmt.Errorf("add linked method: %w", asTransport(err, "add linked method"))
	}
	a.metrics.ObserveMutation(opLinkMethod, metrics.ResultSuccess)
	a.logger.InfoContext(ctx, "auth method linked",
		"account_id", d.AccountID, "provider", d.Provider, "reason", d.Reason)

	if a.bridge && d.PrimaryMethod == account.ProviderEmail {
		a.bridgeIdentity(ctx, d, ev)
	}
	return updated, nil
}

// bridgeIdentity is best effort: the store already records the link, so a failure only
// leaves the IdP with a separate federated user.
func (a *MutationApplier) bridgeIdentity(ctx context.Context, d linking.Decision, ev ports.TriggerEvent) {
	if a.idp == nil || !ev.IsExternalProvider() {
		return
	}
	provider, subject, ok := ev.ProviderSubject()
	if !ok {
		return
	}
	err := a.idp.LinkProviderIdentity(ctx, ports.LinkIdentityInput{
		UserPoolID:          ev.UserPoolID,
		DestinationUsername: d.AccountID,
		SourceProvider:      provider,
		SourceSubject:       subject,
	})
	if err != nil {
		a.metrics.ObserveMutation(opBridge, metrics.ResultError)
		a.logger.WarnContext(ctx, "link provider identity failed",
			"account_id", d.AccountID, "provider", provider, "error", err)
		return
	}
	a.metrics.ObserveMutation(opBridge, metrics.ResultSuccess)
}

// SyncMarkers writes the session markers onto the IdP user. Failures are logged and
// reported as false, never returned.
func (a *MutationApplier) SyncMarkers(ctx context.Context, ev ports.TriggerEvent, attrs map[string]string) bool {
	if a.idp == nil || len(attrs) == 0 || ev.Username == "" {
		return false
	}
	err := a.idp.UpdateUserAttributes(ctx, ports.UpdateAttributesInput{
		UserPoolID: ev.UserPoolID,
		Username:   ev.Username,
		Attributes: attrs,
	})
	if err != nil {
		a.metrics.ObserveMutation(opStampMarkers, metrics.ResultError)
		a.logger.WarnContext(ctx, "update session markers failed", "username", ev.Username, "error", err)
		return false
	}
	a.metrics.ObserveMutation(opStampMarkers, metrics.ResultSuccess)
	return true
}
