package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kyoronginus/accountlink/internal/testutil"
)

func TestRedisCacheRepo_Set_Get_Delete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := testutil.SetupTestRedis(t)

	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		key := "test:key:1"
		value := []byte("test value")
		ttl := 5 * time.Minute

		require.NoError(t, repo.Set(ctx, key, value, ttl))

		result, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, value, result)

		actualTTL := client.TTL(ctx, key).Val()
		assert.True(t, actualTTL > 0 && actualTTL <= ttl)
	})

	t.Run("get non-existent key", func(t *testing.T) {
		result, err := repo.Get(ctx, "non:existent:key")
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("delete existing and missing keys", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, "test:key:2", []byte("to be deleted"), time.Minute))

		n, err := repo.Delete(ctx, "test:key:2", "non:existent:key")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		result, err := repo.Get(ctx, "test:key:2")
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("health", func(t *testing.T) {
		require.NoError(t, repo.Health(ctx))
	})
}

func TestRedisCacheRepo_EmptyKey(t *testing.T) {
	repo := NewRedisCacheRepo(nil)
	ctx := context.Background()

	assert.ErrorIs(t, repo.Set(ctx, "", nil, 0), ErrEmptyKey)
	_, err := repo.Get(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyKey)
	_, err = repo.Delete(ctx, "a", "")
	assert.ErrorIs(t, err, ErrEmptyKey)

	n, err := repo.Delete(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
