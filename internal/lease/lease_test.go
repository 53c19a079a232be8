package lease

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_InvalidURL(t *testing.T) {
	client, err := NewClient(context.Background(), "http://localhost:6379")
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "parse redis url")
}

// redisURL returns the server used by the lease tests, skipping when none is configured.
func redisURL(t *testing.T) string {
	t.Helper()
	u := os.Getenv("TEST_REDIS_URL")
	if u == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	return u
}

func TestRedisLease(t *testing.T) {
	ctx := context.Background()
	client, err := NewClient(ctx, redisURL(t))
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	key := "eventhub:test:" + uuid.NewString()
	first := NewRedisLease(client, key, time.Minute)
	second := NewRedisLease(client, key, time.Minute)

	release, ok, err := first.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = second.TryAcquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "lease must be exclusive")

	require.NoError(t, release(ctx))

	release2, ok, err := second.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// a stale release from the first holder must not drop the new holder's lease
	require.NoError(t, release(ctx))
	_, ok, err = first.TryAcquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, release2(ctx))
}

func TestRedisLease_Expires(t *testing.T) {
	ctx := context.Background()
	client, err := NewClient(ctx, redisURL(t))
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	l := NewRedisLease(client, "eventhub:test:"+uuid.NewString(), 50*time.Millisecond)
	_, ok, err := l.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		release, ok, err := l.TryAcquire(ctx)
		if err != nil || !ok {
			return false
		}
		_ = release(ctx)
		return true
	}, 2*time.Second, 20*time.Millisecond)
}
