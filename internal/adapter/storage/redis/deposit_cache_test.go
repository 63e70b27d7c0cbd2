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

func TestDepositCache_SeenAfterMark(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewDepositCache(client)
	ctx := context.Background()

	seen, err := cache.Seen(ctx, "txhash-1")
	require.NoError(t, err)
	assert.False(t, seen, "unmarked tx should not be seen")

	err = cache.Mark(ctx, "txhash-1", time.Hour)
	require.NoError(t, err)

	seen, err = cache.Seen(ctx, "txhash-1")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestDepositCache_IndependentKeys(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewDepositCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Mark(ctx, "txhash-a", time.Hour))

	seen, err := cache.Seen(ctx, "txhash-b")
	require.NoError(t, err)
	assert.False(t, seen, "marking one tx must not mark another")
}

func TestDepositCache_Expiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewDepositCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Mark(ctx, "txhash-ttl", time.Minute))

	s.FastForward(2 * time.Minute)

	seen, err := cache.Seen(ctx, "txhash-ttl")
	require.NoError(t, err)
	assert.False(t, seen, "marker should expire with its TTL")
}
