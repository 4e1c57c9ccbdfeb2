package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	ID      string `json:"id"`
	Version int    `json:"version"`
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client), mr
}

func TestCache_SetGet(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", []entry{{ID: "doc_1", Version: 2}}, time.Minute))

	var got []entry
	found, err := cache.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []entry{{ID: "doc_1", Version: 2}}, got)

	found, err = cache.Get(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_Expiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", entry{ID: "a"}, time.Second))
	mr.FastForward(2 * time.Second)

	var got entry
	found, err := cache.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_Versions(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	v, err := cache.GetVersion(ctx, "owner:u1:docs:version")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	require.NoError(t, cache.IncrementVersion(ctx, "owner:u1:docs:version"))
	require.NoError(t, cache.IncrementVersion(ctx, "owner:u1:docs:version"))
	v, err = cache.GetVersion(ctx, "owner:u1:docs:version")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestCache_VersionReadErrorIsReturned(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, cache.IncrementVersion(ctx, "k"))

	mr.SetError("ERR injected failure")
	_, err := cache.GetVersion(ctx, "k")
	assert.Error(t, err)
	assert.Error(t, cache.IncrementVersion(ctx, "k"))
}

func TestCache_NilIsNoop(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	assert.NoError(t, cache.Set(ctx, "k", 1, time.Minute))
	assert.NoError(t, cache.IncrementVersion(ctx, "k"))
	v, err := cache.GetVersion(ctx, "k")
	assert.NoError(t, err)
	assert.Zero(t, v)

	var n int
	found, err := cache.Get(ctx, "k", &n)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.False(t, NewCache(nil).enabled())
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client := Connect(context.Background(), mr.Addr(), zerolog.Nop())
	require.NotNil(t, client)
	_ = client.Close()

	assert.Nil(t, Connect(context.Background(), "", zerolog.Nop()))

	addr := mr.Addr()
	mr.Close()
	assert.Nil(t, Connect(context.Background(), addr, zerolog.Nop()))
}
