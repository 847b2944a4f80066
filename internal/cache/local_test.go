package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBackend_SetGetDelete(t *testing.T) {
	b := NewLocalBackend(10, 0)
	ctx := context.Background()

	_, err := b.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, b.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, b.Delete(ctx, "k"))
	_, err = b.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)

	// Deleting an absent key is fine
	require.NoError(t, b.Delete(ctx, "k"))
}

func TestLocalBackend_LazyExpiry(t *testing.T) {
	b := NewLocalBackend(10, 0)
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "k", []byte("v"), -time.Second))

	_, err := b.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
	assert.Zero(t, b.Len())
}

func TestLocalBackend_EvictsAtCapacity(t *testing.T) {
	b := NewLocalBackend(2, 0)
	ctx := context.Background()

	// First entry expires soonest, making it the eviction victim
	require.NoError(t, b.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, b.Set(ctx, "b", []byte("2"), time.Hour))
	require.NoError(t, b.Set(ctx, "c", []byte("3"), time.Hour))

	assert.Equal(t, 2, b.Len())
	_, err := b.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrMiss)

	_, err = b.Get(ctx, "b")
	assert.NoError(t, err)
}

func TestLocalBackend_OverwriteDoesNotEvict(t *testing.T) {
	b := NewLocalBackend(2, 0)
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, b.Set(ctx, "b", []byte("2"), time.Minute))
	require.NoError(t, b.Set(ctx, "a", []byte("1b"), time.Minute))

	assert.Equal(t, 2, b.Len())
	got, err := b.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1b"), got)
}

func TestLocalBackend_HonorsContext(t *testing.T) {
	b := NewLocalBackend(10, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Error(t, b.Set(ctx, "k", []byte("v"), time.Minute))
	assert.Error(t, b.Delete(ctx, "k"))
}

func TestLocalBackend_BackgroundSweep(t *testing.T) {
	b := NewLocalBackend(10, 10*time.Millisecond)
	defer b.Stop()
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "k", []byte("v"), time.Millisecond))

	assert.Eventually(t, func() bool {
		return b.Len() == 0
	}, time.Second, 10*time.Millisecond)
}
