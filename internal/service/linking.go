package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/Kyoronginus/accountlink/internal/domain/account"
	"github.com/Kyoronginus/accountlink/internal/domain/linking"
	apperrors "github.com/Kyoronginus/accountlink/internal/errors"
	"github.com/Kyoronginus/accountlink/internal/observability/metrics"
	"github.com/Kyoronginus/accountlink/internal/ports"
)

// Entry point names used in logs and metric labels.
const (
	EntryPreRegistration  = "pre_registration"
	EntryPreLogin         = "pre_login"
	EntryPostLogin        = "post_login"
	EntryPostRegistration = "post_registration"
	EntryTokenGeneration  = "token_generation"
)

// DefaultAttributePrefix is the custom attribute namespace used by Cognito user pools.
const DefaultAttributePrefix = "custom:"

// LinkingConfig holds the tunables and observability hooks of LinkingService.
type LinkingConfig struct {
	// AttributePrefix is prepended to every session marker name. Defaults to DefaultAttributePrefix.
	AttributePrefix string
	// Classifier defaults to a classifier using DefaultProviderMetadataExpr.
	Classifier           *ProviderClassifier
	BridgeFederatedLinks bool
	Logger               *slog.Logger
	Metrics              *metrics.Linking
	Now                  func() time.Time
}

// LinkingServiceOptions groups dependencies for LinkingService.
type LinkingServiceOptions struct {
	Store  ports.AccountStore     // Required
	IdP    ports.IdentityProvider // Optional
	Config LinkingConfig
}

// LinkingService runs the classify, resolve, decide, apply pipeline for each identity
// provider lifecycle hook.
type LinkingService struct {
	classifier *ProviderClassifier
	resolver   *AccountResolver
	applier    *MutationApplier
	prefix     string
	logger     *slog.Logger
	metrics    *metrics.Linking
}

// NewLinkingService constructs a LinkingService.
func NewLinkingService(opts LinkingServiceOptions) *LinkingService {
	if opts.Store == nil {
		panic("AccountStore is required")
	}
	cfg := opts.Config
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	classifier := cfg.Classifier
	if classifier == nil {
		classifier = &ProviderClassifier{expr: DefaultProviderMetadataExpr}
	}
	prefix := cfg.AttributePrefix
	if prefix == "" {
		prefix = DefaultAttributePrefix
	}
	return &LinkingService{
		classifier: classifier,
		resolver:   NewAccountResolver(opts.Store),
		applier: NewMutationApplier(MutationApplierOptions{
			Store: opts.Store,
			IdP:   opts.IdP,
			Config: ApplierConfig{
				BridgeFederatedLinks: cfg.BridgeFederatedLinks,
				Logger:               logger,
				Metrics:              cfg.Metrics,
				Now:                  cfg.Now,
			},
		}),
		prefix:  prefix,
		logger:  logger.With("component", "linking"),
		metrics: cfg.Metrics,
	}
}

// evaluation is one pass through classifier, resolver and policy.
type evaluation struct {
	provider account.Provider
	acct     *account.Account
	decision linking.Decision
}

func (s *LinkingService) evaluate(
	ctx context.Context,
	entry string,
	ev ports.TriggerEvent,
	phase linking.Phase,
) (evaluation, error) {
	provider := s.classifier.Classify(ev)
	acct, err := s.resolver.Resolve(ctx, ev.Email())
	if err != nil {
		return evaluation{provider: provider}, err
	}
	d := linking.Decide(acct, provider, phase)
	s.metrics.ObserveDecision(entry, d)
	s.logger.DebugContext(ctx, "linking decision",
		"entry", entry,
		"trigger_source", ev.Source,
		"provider", provider,
		"action", d.Action,
		"reason", d.Reason,
		"account_id", d.AccountID,
	)
	return evaluation{provider: provider, acct: acct, decision: d}, nil
}

func (s *LinkingService) result(d linking.Decision, acct *account.Account, provider account.Provider) ports.TriggerResult {
	res := ports.TriggerResult{Decision: d, Attributes: map[string]string{}}
	if acct != nil {
		res.Markers = account.MarkersFor(*acct, provider)
		res.Attributes = res.Markers.Attributes(s.prefix)
	}
	return res
}

func (s *LinkingService) observe(entry string, start time.Time, err error) {
	result := metrics.ResultSuccess
	switch {
	case apperrors.IsBlocked(err):
		result = metrics.ResultBlocked
	case err != nil:
		result = metrics.ResultError
	}
	s.metrics.ObserveEntry(entry, time.Since(start), result)
}

// PreRegistration decides whether a sign-up may proceed. Blocks are returned as
// ErrCodeBlocked errors carrying the user-facing reason. No store writes happen here;
// they are deferred to PostRegistration once the identity provider has created the user.
func (s *LinkingService) PreRegistration(ctx context.Context, ev ports.TriggerEvent) (res ports.TriggerResult, err error) {
	defer func(start time.Time) { s.observe(EntryPreRegistration, start, err) }(time.Now())

	e, err := s.evaluate(ctx, EntryPreRegistration, ev, linking.PhaseRegistration)
	if err != nil {
		return ports.TriggerResult{}, err
	}
	if e.decision.Blocked() {
		s.logger.InfoContext(ctx, "registration blocked", "reason", e.decision.Reason, "provider", e.provider)
		return s.result(e.decision, nil, e.provider), apperrors.Blocked(e.decision.Err())
	}
	return s.result(e.decision, e.acct, e.provider), nil
}

// PreLogin decides whether a sign-in may proceed and applies automatic links.
func (s *LinkingService) PreLogin(ctx context.Context, ev ports.TriggerEvent) (res ports.TriggerResult, err error) {
	defer func(start time.Time) { s.observe(EntryPreLogin, start, err) }(time.Now())

	e, err := s.evaluate(ctx, EntryPreLogin, ev, linking.PhaseLogin)
	if err != nil {
		return ports.TriggerResult{}, err
	}
	if e.decision.Blocked() {
		s.logger.InfoContext(ctx, "login blocked", "reason", e.decision.Reason, "provider", e.provider)
		return s.result(e.decision, nil, e.provider), apperrors.Blocked(e.decision.Err())
	}
	acct, err := s.applier.Apply(ctx, e.decision, e.acct, ev)
	if err != nil {
		return ports.TriggerResult{}, err
	}
	return s.result(e.decision, acct, e.provider), nil
}

// PostLogin refreshes the session markers after a successful sign-in. It never fails:
// every error is logged and swallowed so an authenticated user is never locked out.
func (s *LinkingService) PostLogin(ctx context.Context, ev ports.TriggerEvent) ports.TriggerResult {
	start := time.Now()
	defer func() { s.metrics.ObserveEntry(EntryPostLogin, time.Since(start), metrics.ResultSuccess) }()

	e, err := s.evaluate(ctx, EntryPostLogin, ev, linking.PhaseLogin)
	if err != nil {
		s.swallow(ctx, EntryPostLogin, "resolve account", err)
		return ports.TriggerResult{Attributes: map[string]string{}}
	}
	if e.decision.Blocked() {
		s.logger.WarnContext(ctx, "post-login decision is a block, skipping markers",
			"reason", e.decision.Reason, "provider", e.provider)
		return s.result(e.decision, nil, e.provider)
	}

	acct := e.acct
	if e.decision.ShouldLinkMethod {
		updated, err := s.applier.Apply(ctx, e.decision, e.acct, ev)
		if err != nil {
			s.swallow(ctx, EntryPostLogin, "apply link", err)
		} else if updated != nil {
			acct = updated
		}
	}

	res := s.result(e.decision, acct, e.provider)
	s.applier.SyncMarkers(ctx, ev, res.Attributes)
	return res
}

// PostRegistration records the account for a newly confirmed user. A block at this
// point means a concurrent registration for the same email won; it is logged and
// treated as success. Store transport errors are returned.
func (s *LinkingService) PostRegistration(ctx context.Context, ev ports.TriggerEvent) (res ports.TriggerResult, err error) {
	defer func(start time.Time) { s.observe(EntryPostRegistration, start, err) }(time.Now())

	e, err := s.evaluate(ctx, EntryPostRegistration, ev, linking.PhaseRegistration)
	if err != nil {
		return ports.TriggerResult{}, err
	}

	if e.decision.Blocked() {
		if e.acct != nil && e.acct.ID == ev.Subject() {
			// The account was already written for this very user, e.g. on a redelivered event.
			res = s.result(e.decision, e.acct, e.provider)
			s.applier.SyncMarkers(ctx, ev, res.Attributes)
			return res, nil
		}
		s.logger.InfoContext(ctx, "registration superseded, no account written",
			"reason", e.decision.Reason, "account_id", e.decision.AccountID)
		return s.result(e.decision, nil, e.provider), nil
	}

	acct, err := s.applier.Apply(ctx, e.decision, e.acct, ev)
	if err != nil {
		return ports.TriggerResult{}, err
	}
	res = s.result(e.decision, acct, e.provider)
	s.applier.SyncMarkers(ctx, ev, res.Attributes)
	return res, nil
}

// TokenGeneration returns the session markers to embed as token claims. Like PostLogin
// it never fails and never writes.
func (s *LinkingService) TokenGeneration(ctx context.Context, ev ports.TriggerEvent) ports.TriggerResult {
	start := time.Now()
	defer func() { s.metrics.ObserveEntry(EntryTokenGeneration, time.Since(start), metrics.ResultSuccess) }()

	e, err := s.evaluate(ctx, EntryTokenGeneration, ev, linking.PhaseLogin)
	if err != nil {
		s.swallow(ctx, EntryTokenGeneration, "resolve account", err)
		return ports.TriggerResult{Attributes: map[string]string{}}
	}
	if e.decision.Blocked() {
		return s.result(e.decision, nil, e.provider)
	}
	return s.result(e.decision, e.acct, e.provider)
}

// Evaluate runs classifier-free policy evaluation for an explicit provider. It performs
// no writes and is used for dry runs.
func (s *LinkingService) Evaluate(
	ctx context.Context,
	email string,
	provider account.Provider,
	phase linking.Phase,
) (linking.Decision, *account.Account, error) {
	if !phase.Valid() {
		return linking.Decision{}, nil, apperrors.ValidationField("phase", "phase must be registration or login")
	}
	if !provider.Valid() {
		return linking.Decision{}, nil, apperrors.ValidationField("provider", "unknown auth provider")
	}
	acct, err := s.resolver.Resolve(ctx, email)
	if err != nil {
		return linking.Decision{}, nil, err
	}
	return linking.Decide(acct, provider, phase), acct, nil
}

func (s *LinkingService) swallow(ctx context.Context, entry, op string, err error) {
	s.metrics.ObserveSwallowed(entry, err)
	s.logger.WarnContext(ctx, "ignoring error in non-blocking entry point",
		"entry", entry, "op", op, "error", err)
}
