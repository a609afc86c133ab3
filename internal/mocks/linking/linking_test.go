package linking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kyoronginus/accountlink/internal/domain/account"
	"github.com/Kyoronginus/accountlink/internal/ports"
)

func TestMemoryAccountStore_CreateIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAccountStore()
	a := account.New("sub-1", "A@B.c", "A", account.ProviderEmail, time.Now())

	require.NoError(t, s.CreateIfAbsent(ctx, a))
	assert.ErrorIs(t, s.CreateIfAbsent(ctx, a), ports.ErrAccountExists)

	other := account.New("sub-2", "a@b.c", "A", account.ProviderGoogle, time.Now())
	assert.ErrorIs(t, s.CreateIfAbsent(ctx, other), ports.ErrAccountExists, "email must stay unique")

	got, err := s.FindByEmail(ctx, " a@B.C")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", got.ID)
}

func TestMemoryAccountStore_ConcurrentCreateSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAccountStore()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a := account.New("sub-"+string(rune('a'+i)), "race@example.com", "", account.ProviderEmail, time.Now())
			if err := s.CreateIfAbsent(ctx, a); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryAccountStore_AddLinkedMethod(t *testing.T) {
	ctx := context.Background()
	created := time.Unix(100, 0)
	s := NewMemoryAccountStore(account.New("sub-1", "a@b.c", "", account.ProviderEmail, created))

	later := time.Unix(200, 0)
	got, err := s.AddLinkedMethod(ctx, "sub-1", account.ProviderGoogle, later)
	require.NoError(t, err)
	assert.Equal(t, account.NewLinkedMethods(account.ProviderEmail, account.ProviderGoogle), got.LinkedAuthMethods)
	assert.True(t, got.UpdatedAt.Equal(later))

	again, err := s.AddLinkedMethod(ctx, "sub-1", account.ProviderGoogle, later)
	require.NoError(t, err)
	assert.Equal(t, got.LinkedAuthMethods, again.LinkedAuthMethods)

	_, err = s.AddLinkedMethod(ctx, "missing", account.ProviderGoogle, later)
	assert.ErrorIs(t, err, ports.ErrAccountNotFound)
}

func TestMemoryAccountStore_Err(t *testing.T) {
	s := NewMemoryAccountStore()
	s.Err = errors.New("down")
	_, err := s.FindByEmail(context.Background(), "a@b.c")
	assert.EqualError(t, err, "down")
}

func TestRecordingIdentityProvider(t *testing.T) {
	idp := &RecordingIdentityProvider{
		LinkProviderIdentityFunc: func(context.Context, ports.LinkIdentityInput) error {
			return errors.New("denied")
		},
	}
	ctx := context.Background()
	require.NoError(t, idp.UpdateUserAttributes(ctx, ports.UpdateAttributesInput{Username: "u"}))
	require.Error(t, idp.LinkProviderIdentity(ctx, ports.LinkIdentityInput{SourceProvider: "Google"}))

	assert.Len(t, idp.Updates(), 1)
	assert.Equal(t, "Google", idp.Links()[0].SourceProvider)
}

func TestEvent(t *testing.T) {
	e := Event("PreSignUp_ExternalProvider", "Google", "1234", "a@b.c")
	assert.Equal(t, "Google_1234", e.Username)
	assert.True(t, e.IsExternalProvider())

	native := Event("PreSignUp_SignUp", "", "sub-1", "a@b.c")
	assert.Equal(t, "sub-1", native.Username)
	assert.False(t, native.IsExternalProvider())
}
