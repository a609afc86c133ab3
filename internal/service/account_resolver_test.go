package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Kyoronginus/accountlink/internal/domain/account"
	apperrors "github.com/Kyoronginus/accountlink/internal/errors"
	"github.com/Kyoronginus/accountlink/internal/mocks"
	"github.com/Kyoronginus/accountlink/internal/ports"
)

func TestAccountResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	existing := account.New("sub-1", "jane@example.com", "Jane", account.ProviderEmail, time.Now())

	t.Run("found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockAccountStore(ctrl)
		store.EXPECT().FindByEmail(ctx, "jane@example.com").Return(&existing, nil)

		got, err := NewAccountResolver(store).Resolve(ctx, " Jane@Example.com ")
		require.NoError(t, err)
		assert.Equal(t, "sub-1", got.ID)
	})

	t.Run("absent is nil without error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockAccountStore(ctrl)
		store.EXPECT().FindByEmail(ctx, "nobody@example.com").Return(nil, ports.ErrAccountNotFound)

		got, err := NewAccountResolver(store).Resolve(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("store failure is a transport error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockAccountStore(ctrl)
		cause := errors.New("connection reset by peer")
		store.EXPECT().FindByEmail(ctx, "jane@example.com").Return(nil, cause).Times(1)

		_, err := NewAccountResolver(store).Resolve(ctx, "jane@example.com")
		require.Error(t, err)
		assert.True(t, apperrors.IsTransport(err))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("classified errors pass through", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockAccountStore(ctrl)
		timeout := &apperrors.AppError{Code: apperrors.ErrCodeTimeout, Message: "timed out"}
		store.EXPECT().FindByEmail(ctx, "jane@example.com").Return(nil, timeout)

		_, err := NewAccountResolver(store).Resolve(ctx, "jane@example.com")
		assert.Same(t, timeout, err)
	})

	t.Run("empty email is a validation error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockAccountStore(ctrl)

		_, err := NewAccountResolver(store).Resolve(ctx, "  ")
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestNewAccountResolver_PanicsWithoutStore(t *testing.T) {
	assert.Panics(t, func() { NewAccountResolver(nil) })
}
