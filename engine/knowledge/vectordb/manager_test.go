package vectordb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager(t *testing.T) {
	ctx := context.Background()

	t.Run("ShouldShareStoreAcrossAcquirers", func(t *testing.T) {
		manager := NewManager()
		cfg := &Config{ID: "kb", Provider: ProviderMemory, Dimension: 2}
		first, releaseFirst, err := manager.AcquireShared(ctx, cfg)
		require.NoError(t, err)
		second, releaseSecond, err := manager.AcquireShared(ctx, cfg)
		require.NoError(t, err)
		assert.Same(t, first, second)

		require.NoError(t, first.Upsert(ctx, []Record{{ID: "x", Embedding: []float32{1, 0}}}))
		matches, err := second.Search(ctx, []float32{1, 0}, SearchOptions{TopK: 1})
		require.NoError(t, err)
		assert.Len(t, matches, 1)

		require.NoError(t, releaseFirst(ctx))
		require.NoError(t, releaseSecond(ctx))
	})

	t.Run("ShouldRejectMismatchedConfigForSameID", func(t *testing.T) {
		manager := NewManager()
		cfg := &Config{ID: "kb", Provider: ProviderMemory, Dimension: 2}
		_, release, err := manager.AcquireShared(ctx, cfg)
		require.NoError(t, err)
		defer func() { require.NoError(t, release(ctx)) }()

		other := &Config{ID: "kb", Provider: ProviderMemory, Dimension: 3}
		_, _, err = manager.AcquireShared(ctx, other)
		require.Error(t, err)
	})

	t.Run("ShouldInstantiateFreshStoreAfterFullRelease", func(t *testing.T) {
		manager := NewManager()
		cfg := &Config{ID: "kb", Provider: ProviderMemory, Dimension: 2}
		store, release, err := manager.AcquireShared(ctx, cfg)
		require.NoError(t, err)
		require.NoError(t, store.Upsert(ctx, []Record{{ID: "x", Embedding: []float32{1, 0}}}))
		require.NoError(t, release(ctx))

		fresh, releaseFresh, err := manager.AcquireShared(ctx, cfg)
		require.NoError(t, err)
		defer func() { require.NoError(t, releaseFresh(ctx)) }()
		matches, err := fresh.Search(ctx, []float32{1, 0}, SearchOptions{TopK: 1})
		require.NoError(t, err)
		assert.Len(t, matches, 0)
	})

	t.Run("ShouldRequireConfigID", func(t *testing.T) {
		manager := NewManager()
		_, _, err := manager.AcquireShared(ctx, &Config{Provider: ProviderMemory, Dimension: 2})
		require.Error(t, err)
	})
}
