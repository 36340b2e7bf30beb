package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetNX(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	set, err := store.SetNX(ctx, "k", "v1", time.Minute)
	require.NoError(t, err)
	assert.True(t, set)

	set, err = store.SetNX(ctx, "k", "v2", time.Minute)
	require.NoError(t, err)
	assert.False(t, set, "second SetNX on a live key must not store")

	val, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", val)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	store := NewMemoryStoreWithClock(func() time.Time { return now })

	set, err := store.SetNX(ctx, "k", "v", 10*time.Minute)
	require.NoError(t, err)
	require.True(t, set)

	now = now.Add(9 * time.Minute)
	val, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// Expired key can be reclaimed.
	set, err = store.SetNX(ctx, "k", "v2", time.Minute)
	require.NoError(t, err)
	assert.True(t, set)
}

func TestMemoryStoreDel(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.SetNX(ctx, "k", "v", time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.Del(ctx, "k"))

	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
