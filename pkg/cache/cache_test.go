package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Tag  string `json:"tag"`
	Flag bool   `json:"flag"`
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)

	var got entry
	assert.True(t, errors.Is(c.Get(ctx, "k", &got), ErrCacheMiss))

	require.NoError(t, c.Set(ctx, "k", entry{Tag: "Scam", Flag: true}, time.Minute))
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, entry{Tag: "Scam", Flag: true}, got)

	require.NoError(t, c.Delete(ctx, "k"))
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	c := NewRedisCache(client, "risk:")

	require.NoError(t, c.Set(ctx, "T1", entry{Tag: "x"}, time.Minute))
	assert.True(t, mr.Exists("risk:T1"))

	var got entry
	require.NoError(t, c.Get(ctx, "T1", &got))
	assert.Equal(t, "x", got.Tag)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, c.Get(ctx, "T1", &got), ErrCacheMiss)
}

func TestMultiLevelCacheBackfillsL1(t *testing.T) {
	ctx := context.Background()
	_, client := newRedis(t)

	local := NewMemoryCache(time.Minute, time.Minute)
	remote := NewRedisCache(client, "")
	m := NewMultiLevelCache(local, remote)

	// 只写 L2，读取后应回写 L1
	require.NoError(t, remote.Set(ctx, "k", entry{Tag: "grey"}, time.Minute))

	var got entry
	require.NoError(t, m.Get(ctx, "k", &got))
	assert.Equal(t, "grey", got.Tag)

	var fromL1 entry
	require.NoError(t, local.Get(ctx, "k", &fromL1))
	assert.Equal(t, "grey", fromL1.Tag)

	require.NoError(t, m.Delete(ctx, "k"))
	assert.ErrorIs(t, m.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestMultiLevelCacheRedisDown(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	m := NewMultiLevelCache(NewMemoryCache(time.Minute, time.Minute), NewRedisCache(client, ""))

	mr.Close()

	var got entry
	assert.ErrorIs(t, m.Get(ctx, "k", &got), ErrCacheMiss)
	assert.Error(t, m.Set(ctx, "k", entry{}, time.Minute))
}
