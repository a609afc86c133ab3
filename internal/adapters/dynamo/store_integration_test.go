//go:build integration

package dynamo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/localstack"

	"github.com/Kyoronginus/accountlink/internal/domain/account"
	"github.com/Kyoronginus/accountlink/internal/ports"
)

// newLocalStackClient starts LocalStack and returns a DynamoDB client pointed at it.
// Requires Docker.
func newLocalStackClient(t *testing.T) *dynamodb.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := localstack.Run(ctx, "localstack/localstack:3.0")
	if err != nil {
		t.Fatalf("Failed to start LocalStack: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.PortEndpoint(ctx, "4566/tcp", "http")
	require.NoError(t, err)

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "test")),
	)
	require.NoError(t, err)

	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
}

func TestStore_LocalStack(t *testing.T) {
	client := newLocalStackClient(t)
	ctx := context.Background()

	created, err := EnsureTable(ctx, client, "accounts", "")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = EnsureTable(ctx, client, "accounts", "")
	require.NoError(t, err)
	assert.False(t, created, "second call should find the table")

	store := NewStore(StoreOptions{Client: client, Table: "accounts"})
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("create then find", func(t *testing.T) {
		acct := account.New("sub-alice", "alice@example.com", "Alice", account.ProviderEmail, now)
		require.NoError(t, store.CreateIfAbsent(ctx, acct))

		got, err := store.FindByEmail(ctx, "ALICE@example.com")
		require.NoError(t, err)
		assert.Equal(t, "sub-alice", got.ID)
		assert.Equal(t, account.ProviderEmail, got.PrimaryAuthMethod)
	})

	t.Run("concurrent creates have one winner", func(t *testing.T) {
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for _, id := range []string{"sub-1", "sub-2", "sub-3", "sub-4"} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := store.CreateIfAbsent(ctx, account.New(id, "race@example.com", "Race", account.ProviderGoogle, now))
				if err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)
	})

	t.Run("link is idempotent", func(t *testing.T) {
		_, err := store.AddLinkedMethod(ctx, "sub-alice", account.ProviderGoogle, now.Add(time.Minute))
		require.NoError(t, err)
		got, err := store.AddLinkedMethod(ctx, "sub-alice", account.ProviderGoogle, now.Add(2*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, account.NewLinkedMethods(account.ProviderEmail, account.ProviderGoogle), got.LinkedAuthMethods)
	})

	t.Run("missing account", func(t *testing.T) {
		_, err := store.AddLinkedMethod(ctx, "sub-missing", account.ProviderGoogle, now)
		assert.ErrorIs(t, err, ports.ErrAccountNotFound)
		_, err = store.FindByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ports.ErrAccountNotFound)
	})
}
