package rediscache_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/portal-api/internal/adapters/rediscache"
	"github.com/campushq/portal-api/internal/testutil"
)

func TestTokenCache_LoadEmptyWhenUnset(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	cache := rediscache.NewTokenCache(client, "test:token")

	token, err := cache.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestTokenCache_SaveLoadClear(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	cache := rediscache.NewTokenCache(client, "test:token")
	ctx := context.Background()

	require.NoError(t, cache.Save(ctx, "refresh-abc123"))

	token, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "refresh-abc123", token)

	require.NoError(t, cache.Clear(ctx))

	token, err = cache.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestTokenCache_SaveRejectsEmptyToken(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	cache := rediscache.NewTokenCache(client, "test:token")

	require.Error(t, cache.Save(context.Background(), ""))
}

func TestTokenCache_KeysAreIsolated(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	ctx := context.Background()

	a := rediscache.NewTokenCache(client, "test:token:a")
	b := rediscache.NewTokenCache(client, "test:token:b")

	require.NoError(t, a.Save(ctx, "token-a"))

	token, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}
