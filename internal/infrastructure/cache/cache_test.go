package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFormat(t *testing.T) {
	t.Parallel()

	key := Key("body", "summary")
	require.True(t, strings.HasPrefix(key, "llm_summary_"))
	require.Len(t, strings.TrimPrefix(key, "llm_summary_"), 64)
	require.NotEqual(t, key, Key("body", "investment_suggestion"))
	require.Equal(t, key, Key("body", "summary"))
}

func TestMemoryCacheRoundTripAndExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache(time.Hour, 10)
	c.now = func() time.Time { return now }

	_, ok := c.Get(ctx, "body", "summary")
	require.False(t, ok)

	c.Put(ctx, "body", "summary", "cached summary", 0)
	got, ok := c.Get(ctx, "body", "summary")
	require.True(t, ok)
	require.Equal(t, "cached summary", got)

	_, ok = c.Get(ctx, "body", "investment_suggestion")
	require.False(t, ok, "kinds must not collide")

	now = now.Add(time.Hour)
	_, ok = c.Get(ctx, "body", "summary")
	require.False(t, ok, "entry should expire after ttl")
}

func TestMemoryCacheCapacityAndClear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := NewMemoryCache(time.Hour, 2)

	c.Put(ctx, "a", "summary", "1", time.Minute)
	c.Put(ctx, "b", "summary", "2", time.Hour)
	c.Put(ctx, "c", "summary", "3", time.Hour)

	stats := c.Stats(ctx)
	assert.Equal(t, "memory", stats.Backend)
	assert.EqualValues(t, 2, stats.Entries)

	_, ok := c.Get(ctx, "a", "summary")
	assert.False(t, ok, "entry closest to expiry is evicted first")

	require.NoError(t, c.Clear(ctx))
	assert.EqualValues(t, 0, c.Stats(ctx).Entries)
}

func newRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisCache(client, 24*time.Hour, nil), mr
}

func TestRedisCacheRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c, mr := newRedisCache(t)

	_, ok := c.Get(ctx, "body", "summary")
	require.False(t, ok)

	c.Put(ctx, "body", "summary", "cached", 0)
	got, ok := c.Get(ctx, "body", "summary")
	require.True(t, ok)
	require.Equal(t, "cached", got)

	ttl := mr.TTL(Key("body", "summary"))
	require.Equal(t, 24*time.Hour, ttl)

	mr.FastForward(25 * time.Hour)
	_, ok = c.Get(ctx, "body", "summary")
	require.False(t, ok)
}

func TestRedisCacheClearOnlyTouchesPrefix(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c, mr := newRedisCache(t)

	c.Put(ctx, "one", "summary", "1", 0)
	c.Put(ctx, "two", "investment_suggestion", "2", 0)
	require.NoError(t, mr.Set("unrelated", "keep"))

	require.EqualValues(t, 2, c.Stats(ctx).Entries)
	require.NoError(t, c.Clear(ctx))

	require.EqualValues(t, 0, c.Stats(ctx).Entries)
	require.True(t, mr.Exists("unrelated"))
}

func TestRedisCacheErrorsAreMisses(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c, mr := newRedisCache(t)
	mr.Close()

	c.Put(ctx, "body", "summary", "value", 0)
	_, ok := c.Get(ctx, "body", "summary")
	require.False(t, ok)
	require.Equal(t, "error", c.Stats(ctx).Status)
}
