package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRateLimitStore(t *testing.T) (*RateLimitStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRateLimitStore(client), mr
}

func TestRateLimitStore_AllowWithinLimit(t *testing.T) {
	store, _ := setupRateLimitStore(t)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		res, err := store.Allow(ctx, "192.168.1.1", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d should be allowed", i)
		assert.Equal(t, int64(5), res.Limit)
		assert.Equal(t, 5-i, res.Remaining)
	}
}

func TestRateLimitStore_BlockOverLimit(t *testing.T) {
	store, _ := setupRateLimitStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := store.Allow(ctx, "10.0.0.1", 3, time.Minute)
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}

	res, err := store.Allow(ctx, "10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(0), res.Remaining)
}

func TestRateLimitStore_IndependentKeys(t *testing.T) {
	store, _ := setupRateLimitStore(t)
	ctx := context.Background()

	res, err := store.Allow(ctx, "client-a", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = store.Allow(ctx, "client-a", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	// A different identity gets its own counter.
	res, err = store.Allow(ctx, "client-b", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRateLimitStore_WindowExpiry(t *testing.T) {
	store, mr := setupRateLimitStore(t)
	ctx := context.Background()

	res, err := store.Allow(ctx, "1.2.3.4", 1, time.Second)
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = store.Allow(ctx, "1.2.3.4", 1, time.Second)
	require.NoError(t, err)
	require.False(t, res.Allowed)

	// The counter key carries a TTL so a stale window cannot linger.
	mr.FastForward(3 * time.Second)
	assert.Empty(t, mr.Keys())
}

func TestRateLimitStore_ResetAtFallsAfterNow(t *testing.T) {
	store, _ := setupRateLimitStore(t)

	res, err := store.Allow(context.Background(), "someone", 10, time.Minute)
	require.NoError(t, err)
	assert.Greater(t, res.ResetAt, time.Now().Unix())
	assert.LessOrEqual(t, res.ResetAt, time.Now().Add(time.Minute+time.Second).Unix())
}
