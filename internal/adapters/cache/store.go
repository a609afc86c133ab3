// Package cache provides a read-through caching decorator for ports.AccountStore.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Kyoronginus/accountlink/internal/domain/account"
	"github.com/Kyoronginus/accountlink/internal/ports"
)

// DefaultTTL bounds how stale a cached account can be.
const DefaultTTL = 30 * time.Second

// Backend is a byte-oriented cache. Get returns (nil, nil) on a miss.
// *data.RedisCacheRepo and *Memory implement it.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) (int64, error)
}

// StoreOptions configures a cached AccountStore.
type StoreOptions struct {
	Next    ports.AccountStore // Required
	Backend Backend            // Required
	TTL     time.Duration
	Prefix  string
	Logger  *slog.Logger
}

// Store caches account reads in front of another AccountStore.
// Absent accounts are never cached, and every write invalidates both keys of
// the affected account.
type Store struct {
	next    ports.AccountStore
	backend Backend
	ttl     time.Duration
	prefix  string
	logger  *slog.Logger
	group   singleflight.Group

	// fillMu orders fills against invalidations. writes counts invalidations; a
	// load that observed an older count must not write its result back.
	fillMu sync.RWMutex
	writes uint64
}

var _ ports.AccountStore = (*Store)(nil)

// NewStore wraps opts.Next. Panics if Next or Backend is nil.
func NewStore(opts StoreOptions) *Store {
	if opts.Next == nil {
		panic("cache: Next store is required")
	}
	if opts.Backend == nil {
		panic("cache: Backend is required")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "accountlink:account:"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		next:    opts.Next,
		backend: opts.Backend,
		ttl:     ttl,
		prefix:  prefix,
		logger:  logger.With("component", "account_cache"),
	}
}

func (s *Store) emailKey(email string) string { return s.prefix + "email:" + email }
func (s *Store) idKey(id string) string       { return s.prefix + "id:" + id }

// FindByEmail serves from cache, collapsing concurrent misses into one store read.
func (s *Store) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	email = account.NormalizeEmail(email)
	return s.readThrough(ctx, s.emailKey(email), func(ctx context.Context) (*account.Account, error) {
		return s.next.FindByEmail(ctx, email)
	})
}

// GetByID serves from cache, collapsing concurrent misses into one store read.
func (s *Store) GetByID(ctx context.Context, id string) (*account.Account, error) {
	return s.readThrough(ctx, s.idKey(id), func(ctx context.Context) (*account.Account, error) {
		return s.next.GetByID(ctx, id)
	})
}

// CreateIfAbsent delegates and then drops any cached entries for the account.
func (s *Store) CreateIfAbsent(ctx context.Context, acct account.Account) error {
	err := s.next.CreateIfAbsent(ctx, acct)
	if err == nil || errors.Is(err, ports.ErrAccountExists) {
		s.invalidate(ctx, s.emailKey(account.NormalizeEmail(acct.Email)), s.idKey(acct.ID))
	}
	return err
}

// AddLinkedMethod delegates and then drops the cached entries for the account.
func (s *Store) AddLinkedMethod(
	ctx context.Context,
	id string,
	p account.Provider,
	at time.Time,
) (*account.Account, error) {
	acct, err := s.next.AddLinkedMethod(ctx, id, p, at)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, s.emailKey(acct.Email), s.idKey(acct.ID))
	return acct, nil
}

func (s *Store) readThrough(
	ctx context.Context,
	key string,
	load func(context.Context) (*account.Account, error),
) (*account.Account, error) {
	if acct, ok := s.lookup(ctx, key); ok {
		return acct, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		// The load is shared by every waiter, so one caller giving up must not fail the rest.
		shared := context.WithoutCancel(ctx)
		gen := s.generation()
		acct, err := load(shared)
		if err != nil {
			return nil, err
		}
		s.fill(shared, acct, gen)
		return acct, nil
	})
	if err != nil {
		return nil, err
	}
	// Each caller gets its own copy since singleflight shares the result.
	acct := *v.(*account.Account)
	acct.LinkedAuthMethods = account.NewLinkedMethods(acct.LinkedAuthMethods...)
	return &acct, nil
}

// lookup treats any backend failure as a miss.
func (s *Store) lookup(ctx context.Context, key string) (*account.Account, bool) {
	raw, err := s.backend.Get(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "account cache read failed", "key", key, "error", err)
		return nil, false
	}
	if len(raw) == 0 {
		return nil, false
	}
	var acct account.Account
	if err := json.Unmarshal(raw, &acct); err != nil {
		s.logger.WarnContext(ctx, "discarding undecodable cache entry", "key", key, "error", err)
		s.invalidate(ctx, key)
		return nil, false
	}
	return &acct, true
}

func (s *Store) generation() uint64 {
	s.fillMu.RLock()
	defer s.fillMu.RUnlock()
	return s.writes
}

// fill caches acct unless a write invalidated the account since gen was taken.
func (s *Store) fill(ctx context.Context, acct *account.Account, gen uint64) {
	raw, err := json.Marshal(acct)
	if err != nil {
		return
	}
	s.fillMu.RLock()
	defer s.fillMu.RUnlock()
	if s.writes != gen {
		return
	}
	for _, key := range []string{s.emailKey(acct.Email), s.idKey(acct.ID)} {
		if err := s.backend.Set(ctx, key, raw, s.ttl); err != nil {
			s.logger.WarnContext(ctx, "account cache write failed", "key", key, "error", err)
			return
		}
	}
}

func (s *Store) invalidate(ctx context.Context, keys ...string) {
	s.fillMu.Lock()
	defer s.fillMu.Unlock()
	s.writes++
	if _, err := s.backend.Delete(ctx, keys...); err != nil {
		s.logger.WarnContext(ctx, "account cache invalidation failed", "keys", keys, "error", err)
	}
}
