package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kyoronginus/accountlink/internal/data"
	"github.com/Kyoronginus/accountlink/internal/domain/account"
	mocklinking "github.com/Kyoronginus/accountlink/internal/mocks/linking"
	"github.com/Kyoronginus/accountlink/internal/ports"
	"github.com/Kyoronginus/accountlink/internal/testutil"
)

var (
	_ Backend = (*Memory)(nil)
	_ Backend = (*data.RedisCacheRepo)(nil)
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// countingStore counts reads that reach the underlying store.
type countingStore struct {
	*mocklinking.MemoryAccountStore
	finds atomic.Int32
	gets  atomic.Int32
	delay time.Duration
}

func (c *countingStore) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	c.finds.Add(1)
	time.Sleep(c.delay)
	return c.MemoryAccountStore.FindByEmail(ctx, email)
}

func (c *countingStore) GetByID(ctx context.Context, id string) (*account.Account, error) {
	c.gets.Add(1)
	return c.MemoryAccountStore.GetByID(ctx, id)
}

type failingBackend struct{}

func (failingBackend) Get(context.Context, string) ([]byte, error) { return nil, errors.New("down") }
func (failingBackend) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("down")
}
func (failingBackend) Delete(context.Context, ...string) (int64, error) { return 0, errors.New("down") }

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newCached(next ports.AccountStore, b Backend) *Store {
	return NewStore(StoreOptions{Next: next, Backend: b, TTL: time.Minute, Logger: quietLogger()})
}

func seeded() *countingStore {
	return &countingStore{MemoryAccountStore: mocklinking.NewMemoryAccountStore(
		account.New("sub-1", "alice@example.com", "Alice", account.ProviderEmail, fixedNow),
	)}
}

func TestNewStore_Panics(t *testing.T) {
	assert.Panics(t, func() { NewStore(StoreOptions{Backend: NewMemory(time.Minute)}) })
	assert.Panics(t, func() { NewStore(StoreOptions{Next: mocklinking.NewMemoryAccountStore()}) })
}

func TestStore_ReadThrough(t *testing.T) {
	next := seeded()
	s := newCached(next, NewMemory(time.Minute))
	ctx := context.Background()

	for range 3 {
		got, err := s.FindByEmail(ctx, "Alice@Example.com")
		require.NoError(t, err)
		assert.Equal(t, "sub-1", got.ID)
	}
	assert.Equal(t, int32(1), next.finds.Load())

	// The email read also warms the id key.
	got, err := s.GetByID(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, int32(0), next.gets.Load())
}

func TestStore_NotFoundIsNotCached(t *testing.T) {
	next := seeded()
	mem := NewMemory(time.Minute)
	s := newCached(next, mem)
	ctx := context.Background()

	_, err := s.FindByEmail(ctx, "bob@example.com")
	require.ErrorIs(t, err, ports.ErrAccountNotFound)
	assert.Zero(t, mem.Len())

	require.NoError(t, s.CreateIfAbsent(ctx, account.New("sub-2", "bob@example.com", "Bob", account.ProviderGoogle, fixedNow)))

	got, err := s.FindByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, "sub-2", got.ID)
}

func TestStore_WritesInvalidate(t *testing.T) {
	next := seeded()
	s := newCached(next, NewMemory(time.Minute))
	ctx := context.Background()

	_, err := s.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)

	updated, err := s.AddLinkedMethod(ctx, "sub-1", account.ProviderGoogle, fixedNow.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, updated.HasMethod(account.ProviderGoogle))

	got, err := s.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, got.HasMethod(account.ProviderGoogle), "cached entry must not outlive a link")
	assert.Equal(t, int32(2), next.finds.Load())

	err = s.CreateIfAbsent(ctx, account.New("sub-9", "alice@example.com", "Alice", account.ProviderFacebook, fixedNow))
	assert.ErrorIs(t, err, ports.ErrAccountExists)
}

func TestStore_ConcurrentMissesCollapse(t *testing.T) {
	next := seeded()
	next.delay = 50 * time.Millisecond
	s := newCached(next, NewMemory(time.Minute))
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := s.FindByEmail(ctx, "alice@example.com")
			assert.NoError(t, err)
			assert.Equal(t, "sub-1", got.ID)
		}()
	}
	wg.Wait()
	assert.Less(t, next.finds.Load(), int32(10))
}

func TestStore_BackendFailureFallsThrough(t *testing.T) {
	next := seeded()
	s := newCached(next, failingBackend{})
	ctx := context.Background()

	got, err := s.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", got.ID)

	_, err = s.AddLinkedMethod(ctx, "sub-1", account.ProviderFacebook, fixedNow)
	require.NoError(t, err)
}

func TestStore_StoreErrorsPropagate(t *testing.T) {
	next := seeded()
	next.Err = errors.New("unreachable")
	s := newCached(next, NewMemory(time.Minute))

	_, err := s.FindByEmail(context.Background(), "alice@example.com")
	require.EqualError(t, err, "unreachable")
}

func TestStore_Redis(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	client := testutil.SetupTestRedis(t)

	next := seeded()
	s := newCached(next, data.NewRedisCacheRepo(client))
	ctx := context.Background()

	for range 2 {
		got, err := s.GetByID(ctx, "sub-1")
		require.NoError(t, err)
		assert.Equal(t, account.NewLinkedMethods(account.ProviderEmail), got.LinkedAuthMethods)
	}
	assert.Equal(t, int32(1), next.gets.Load())

	_, err := s.AddLinkedMethod(ctx, "sub-1", account.ProviderGoogle, fixedNow)
	require.NoError(t, err)
	exists, err := client.Exists(ctx, "accountlink:account:id:sub-1").Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

// gatedStore blocks GetByID until release is closed and records the context it saw.
type gatedStore struct {
	*mocklinking.MemoryAccountStore
	started chan struct{}
	release chan struct{}
	ctxErr  error
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		MemoryAccountStore: seeded().MemoryAccountStore,
		started:            make(chan struct{}),
		release:            make(chan struct{}),
	}
}

func (g *gatedStore) GetByID(ctx context.Context, id string) (*account.Account, error) {
	close(g.started)
	<-g.release
	g.ctxErr = ctx.Err()
	return g.MemoryAccountStore.GetByID(ctx, id)
}

func TestStore_SharedLoadOutlivesCallerCancel(t *testing.T) {
	next := newGatedStore()
	s := newCached(next, NewMemory(time.Minute))
	ctx, cancel := context.WithCancel(context.Background())

	type result struct {
		acct *account.Account
		err  error
	}
	done := make(chan result, 1)
	go func() {
		acct, err := s.GetByID(ctx, "sub-1")
		done <- result{acct, err}
	}()

	<-next.started
	cancel()
	close(next.release)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, "sub-1", res.acct.ID)
	assert.NoError(t, next.ctxErr)
}

func TestStore_WriteDuringLoadSkipsFill(t *testing.T) {
	next := newGatedStore()
	mem := NewMemory(time.Minute)
	s := newCached(next, mem)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := s.GetByID(ctx, "sub-1")
		done <- err
	}()

	<-next.started
	_, err := s.AddLinkedMethod(ctx, "sub-1", account.ProviderGoogle, fixedNow)
	require.NoError(t, err)
	close(next.release)
	require.NoError(t, <-done)

	assert.Zero(t, mem.Len(), "a load that raced a write must not repopulate the cache")
}
