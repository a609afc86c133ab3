package data

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kyoronginus/accountlink/internal/domain/account"
	"github.com/Kyoronginus/accountlink/internal/ports"
	"github.com/Kyoronginus/accountlink/internal/testutil"
)

var _ ports.AccountStore = (*AccountRepo)(nil)

func newAccountRepo(t *testing.T) *AccountRepo {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	return NewAccountRepo(testutil.SetupAutoDB(t))
}

func TestAccountRepo_CreateAndRead(t *testing.T) {
	repo := newAccountRepo(t)
	ctx := context.Background()
	now := testutil.TestTime()

	acct := account.New("sub-1", "Alice@Example.com", "Alice", account.ProviderEmail, now)
	require.NoError(t, repo.CreateIfAbsent(ctx, acct))

	got, err := repo.FindByEmail(ctx, " ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", got.ID)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, account.ProviderEmail, got.PrimaryAuthMethod)
	assert.Equal(t, account.NewLinkedMethods(account.ProviderEmail), got.LinkedAuthMethods)
	assert.True(t, got.CreatedAt.Equal(now))

	byID, err := repo.GetByID(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, got, byID)
}

func TestAccountRepo_NotFound(t *testing.T) {
	repo := newAccountRepo(t)
	ctx := context.Background()

	_, err := repo.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ports.ErrAccountNotFound)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ports.ErrAccountNotFound)

	_, err = repo.AddLinkedMethod(ctx, "missing", account.ProviderGoogle, time.Now())
	assert.ErrorIs(t, err, ports.ErrAccountNotFound)
}

func TestAccountRepo_CreateIfAbsent_Duplicate(t *testing.T) {
	repo := newAccountRepo(t)
	ctx := context.Background()
	now := testutil.TestTime()

	require.NoError(t, repo.CreateIfAbsent(ctx, account.New("sub-1", "bob@example.com", "Bob", account.ProviderGoogle, now)))

	t.Run("same email", func(t *testing.T) {
		err := repo.CreateIfAbsent(ctx, account.New("sub-2", "bob@example.com", "Bob", account.ProviderEmail, now))
		assert.ErrorIs(t, err, ports.ErrAccountExists)
	})

	t.Run("same id", func(t *testing.T) {
		err := repo.CreateIfAbsent(ctx, account.New("sub-1", "other@example.com", "Bob", account.ProviderEmail, now))
		assert.ErrorIs(t, err, ports.ErrAccountExists)
	})

	got, err := repo.FindByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.ProviderGoogle, got.PrimaryAuthMethod, "first writer must win")
}

func TestAccountRepo_CreateIfAbsent_Concurrent(t *testing.T) {
	repo := newAccountRepo(t)
	ctx := context.Background()
	now := testutil.TestTime()

	const writers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			acct := account.New("sub-"+string(rune('a'+i)), "race@example.com", "Race", account.ProviderFacebook, now)
			if err := repo.CreateIfAbsent(ctx, acct); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ports.ErrAccountExists)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)
}

func TestAccountRepo_AddLinkedMethod(t *testing.T) {
	repo := newAccountRepo(t)
	ctx := context.Background()
	now := testutil.TestTime()

	require.NoError(t, repo.CreateIfAbsent(ctx, account.New("sub-1", "carol@example.com", "Carol", account.ProviderEmail, now)))

	later := now.Add(time.Hour)
	got, err := repo.AddLinkedMethod(ctx, "sub-1", account.ProviderGoogle, later)
	require.NoError(t, err)
	assert.Equal(t, account.NewLinkedMethods(account.ProviderEmail, account.ProviderGoogle), got.LinkedAuthMethods)
	assert.True(t, got.UpdatedAt.Equal(later))
	assert.True(t, got.CreatedAt.Equal(now))

	again, err := repo.AddLinkedMethod(ctx, "sub-1", account.ProviderGoogle, later.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, got.LinkedAuthMethods, again.LinkedAuthMethods, "adding twice must not duplicate")
	assert.Equal(t, account.ProviderEmail, again.PrimaryAuthMethod)
}
