package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGuard(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, ttl), mr
}

func TestRedisCache_AcquireIsExclusivePerPair(t *testing.T) {
	ctx := context.Background()
	guard, mr := newGuard(t, time.Minute)

	ok, err := guard.Acquire(ctx, 1, 10)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = guard.Acquire(ctx, 1, 10)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = guard.Acquire(ctx, 1, 11)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.True(t, mr.Exists("lock:flight:1:user:10"))
	require.NoError(t, guard.Release(ctx, 1, 10))
	assert.False(t, mr.Exists("lock:flight:1:user:10"))

	ok, err = guard.Acquire(ctx, 1, 10)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisCache_LockExpires(t *testing.T) {
	ctx := context.Background()
	guard, mr := newGuard(t, 30*time.Second)

	ok, err := guard.Acquire(ctx, 2, 5)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(31 * time.Second)
	ok, err = guard.Acquire(ctx, 2, 5)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisCache_ErrorsWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	guard, mr := newGuard(t, time.Minute)
	require.NoError(t, guard.Ping(ctx))

	mr.Close()
	_, err := guard.Acquire(ctx, 1, 1)
	assert.Error(t, err)
	assert.Error(t, guard.Ping(ctx))
}
