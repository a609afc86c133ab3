package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kyoronginus/accountlink/internal/domain/account"
	apperrors "github.com/Kyoronginus/accountlink/internal/errors"
	fakes "github.com/Kyoronginus/accountlink/internal/mocks/linking"
)

func TestAccountAdminService(t *testing.T) {
	ctx := context.Background()
	store := fakes.NewMemoryAccountStore(account.New("sub-1", "a@x.com", "A", account.ProviderEmail, time.Now()))
	svc := NewAccountAdminService(store)

	got, err := svc.GetByEmail(ctx, "A@X.com")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", got.ID)

	_, err = svc.GetByID(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.GetByEmail(ctx, "")
	assert.True(t, apperrors.IsValidation(err))

	linked, err := svc.LinkMethod(ctx, "sub-1", account.ProviderFacebook)
	require.NoError(t, err)
	assert.True(t, linked.LinkedAuthMethods.Contains(account.ProviderFacebook))

	_, err = svc.LinkMethod(ctx, "sub-1", "Myspace")
	assert.True(t, apperrors.IsValidation(err))
}
