package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lws803/soul/internal/cache"
)

func TestChallengeCacheTakeIsSingleUse(t *testing.T) {
	pkce := NewChallengeCache(cache.NewMemory("test"), time.Minute)
	ctx := context.Background()

	key, err := pkce.NewKey()
	require.NoError(t, err)
	require.NotEmpty(t, key)

	require.NoError(t, pkce.Put(ctx, key, "challenge-value"))

	got, ok, err := pkce.Take(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "challenge-value", got)

	// Segunda lectura: ya fue consumido.
	_, ok, err = pkce.Take(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChallengeCacheUnknownKey(t *testing.T) {
	pkce := NewChallengeCache(cache.NewMemory("test"), time.Minute)

	_, ok, err := pkce.Take(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChallengeCacheKeysAreUnique(t *testing.T) {
	pkce := NewChallengeCache(cache.NewMemory("test"), time.Minute)

	a, err := pkce.NewKey()
	require.NoError(t, err)
	b, err := pkce.NewKey()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
