package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := &RedisCache{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

type profile struct {
	Username string `json:"username"`
	Likes    int64  `json:"likes"`
}

func TestProfileJSON_RoundTripAndTTL(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	var got profile
	hit, err := c.GetJSON(ctx, KeyForProfile("bob"), &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.SetJSON(ctx, KeyForProfile("bob"), profile{Username: "bob", Likes: 3}, time.Minute))
	hit, err = c.GetJSON(ctx, KeyForProfile("bob"), &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int64(3), got.Likes)

	mr.FastForward(2 * time.Minute)
	hit, err = c.GetJSON(ctx, KeyForProfile("bob"), &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestGetJSON_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set(KeyForProfile("bob"), "{not json"))

	var got profile
	hit, err := c.GetJSON(ctx, KeyForProfile("bob"), &got)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.False(t, mr.Exists(KeyForProfile("bob")))
}

func TestInvalidateProfiles(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	for _, u := range []string{"a", "b", "c"} {
		require.NoError(t, c.SetJSON(ctx, KeyForProfile(u), profile{Username: u}, time.Minute))
	}
	require.NoError(t, mr.Set("unrelated", "1"))

	require.NoError(t, c.InvalidateProfiles(ctx, "a"))
	assert.False(t, mr.Exists(KeyForProfile("a")))
	assert.True(t, mr.Exists(KeyForProfile("b")))

	n, err := c.InvalidateAllProfiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, mr.Exists(KeyForProfile("c")))
	assert.True(t, mr.Exists("unrelated"))
}

func TestLease_ExclusiveUntilReleasedOrExpired(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	ok, err := c.AcquireLease(ctx, "reconcile", "node-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.AcquireLease(ctx, "reconcile", "node-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// a non-holder cannot release
	require.NoError(t, c.ReleaseLease(ctx, "reconcile", "node-b"))
	assert.True(t, mr.Exists("jobs:lease:reconcile"))

	require.NoError(t, c.ReleaseLease(ctx, "reconcile", "node-a"))
	ok, err = c.AcquireLease(ctx, "reconcile", "node-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = c.AcquireLease(ctx, "reconcile", "node-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNilCacheIsNoop(t *testing.T) {
	ctx := context.Background()
	var c *RedisCache

	hit, err := c.GetJSON(ctx, "k", &profile{})
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, c.SetJSON(ctx, "k", 1, time.Minute))
	assert.NoError(t, c.InvalidateProfiles(ctx, "a"))

	ok, err := c.AcquireLease(ctx, "x", "y", time.Minute)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Error(t, c.Ping(ctx))
}
