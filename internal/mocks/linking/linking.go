package linking

// Package linking contains simple hand-written test doubles for the account-linking ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Kyoronginus/accountlink/internal/domain/account"
	"github.com/Kyoronginus/accountlink/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AccountStore     = (*MemoryAccountStore)(nil)
	_ ports.IdentityProvider = (*RecordingIdentityProvider)(nil)
)

// MemoryAccountStore is an in-memory AccountStore with the same create-if-absent and
// set-union guarantees as the real adapters. Safe for concurrent use.
type MemoryAccountStore struct {
	mu       sync.Mutex
	byID     map[string]account.Account
	idByMail map[string]string

	// Err, when set, is returned from every call to simulate an unreachable store.
	Err error
}

// NewMemoryAccountStore creates an empty store, optionally seeded with accounts.
func NewMemoryAccountStore(seed ...account.Account) *MemoryAccountStore {
	s := &MemoryAccountStore{
		byID:     make(map[string]account.Account),
		idByMail: make(map[string]string),
	}
	for _, a := range seed {
		s.byID[a.ID] = a
		s.idByMail[account.NormalizeEmail(a.Email)] = a.ID
	}
	return s
}

func (s *MemoryAccountStore) FindByEmail(_ context.Context, email string) (*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	id, ok := s.idByMail[account.NormalizeEmail(email)]
	if !ok {
		return nil, ports.ErrAccountNotFound
	}
	a := clone(s.byID[id])
	return &a, nil
}

func (s *MemoryAccountStore) GetByID(_ context.Context, id string) (*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	a, ok := s.byID[id]
	if !ok {
		return nil, ports.ErrAccountNotFound
	}
	a = clone(a)
	return &a, nil
}

func (s *MemoryAccountStore) CreateIfAbsent(_ context.Context, acct account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	email := account.NormalizeEmail(acct.Email)
	if _, ok := s.byID[acct.ID]; ok {
		return ports.ErrAccountExists
	}
	if _, ok := s.idByMail[email]; ok {
		return ports.ErrAccountExists
	}
	acct.Email = email
	s.byID[acct.ID] = clone(acct)
	s.idByMail[email] = acct.ID
	return nil
}

func (s *MemoryAccountStore) AddLinkedMethod(_ context.Context, id string, p account.Provider, at time.Time) (*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	a, ok := s.byID[id]
	if !ok {
		return nil, ports.ErrAccountNotFound
	}
	a.LinkedAuthMethods = a.LinkedAuthMethods.Union(p)
	a.UpdatedAt = at.UTC()
	s.byID[id] = a
	out := clone(a)
	return &out, nil
}

// Len returns the number of stored accounts.
func (s *MemoryAccountStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func clone(a account.Account) account.Account {
	a.LinkedAuthMethods = append(account.LinkedMethods(nil), a.LinkedAuthMethods...)
	return a
}

// RecordingIdentityProvider records every call and delegates to the Func fields when set.
type RecordingIdentityProvider struct {
	UpdateUserAttributesFunc func(ctx context.Context, in ports.UpdateAttributesInput) error
	LinkProviderIdentityFunc func(ctx context.Context, in ports.LinkIdentityInput) error

	mu      sync.Mutex
	updates []ports.UpdateAttributesInput
	links   []ports.LinkIdentityInput
}

func (r *RecordingIdentityProvider) UpdateUserAttributes(ctx context.Context, in ports.UpdateAttributesInput) error {
	r.mu.Lock()
	r.updates = append(r.updates, in)
	r.mu.Unlock()
	if r.UpdateUserAttributesFunc != nil {
		return r.UpdateUserAttributesFunc(ctx, in)
	}
	return nil
}

func (r *RecordingIdentityProvider) LinkProviderIdentity(ctx context.Context, in ports.LinkIdentityInput) error {
	r.mu.Lock()
	r.links = append(r.links, in)
	r.mu.Unlock()
	if r.LinkProviderIdentityFunc != nil {
		return r.LinkProviderIdentityFunc(ctx, in)
	}
	return nil
}

// Updates returns a copy of the recorded attribute updates.
func (r *RecordingIdentityProvider) Updates() []ports.UpdateAttributesInput {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.UpdateAttributesInput(nil), r.updates...)
}

// Links returns a copy of the recorded identity links.
func (r *RecordingIdentityProvider) Links() []ports.LinkIdentityInput {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.LinkIdentityInput(nil), r.links...)
}

// Event builds a trigger event for tests. provider is "" for native users, otherwise
// the federated provider name that prefixes the username.
func Event(source, provider, sub, email string) ports.TriggerEvent {
	username := sub
	if provider != "" {
		username = provider + "_" + strings.TrimPrefix(sub, provider+"_")
	}
	return ports.TriggerEvent{
		Source:     source,
		UserPoolID: "us-east-1_test",
		Username:   username,
		Attributes: map[string]string{
			ports.AttrEmail: email,
			ports.AttrSub:   sub,
		},
		ClientMetadata: map[string]string{},
	}
}
