package embedder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/coursepilot/engine/core"
)

// fakeEmbedder derives deterministic vectors from text length so tests can
// assert order preservation and determinism without a provider.
type fakeEmbedder struct {
	calls int
	fail  error
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.fail != nil {
		return nil, f.fail
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), float32(i)}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func testConfig(cacheSize int) *Config {
	return &Config{
		Provider:  ProviderOpenAI,
		Model:     "text-embedding-3-small",
		Dimension: 2,
		BatchSize: 8,
		CacheSize: cacheSize,
	}
}

func TestAdapter(t *testing.T) {
	ctx := context.Background()

	t.Run("ShouldPreserveInputOrder", func(t *testing.T) {
		adapter, err := Wrap(testConfig(0), &fakeEmbedder{})
		require.NoError(t, err)
		vectors, err := adapter.EmbedDocuments(ctx, []string{"a", "bb", "ccc"})
		require.NoError(t, err)
		require.Len(t, vectors, 3)
		assert.Equal(t, float32(1), vectors[0][0])
		assert.Equal(t, float32(2), vectors[1][0])
		assert.Equal(t, float32(3), vectors[2][0])
	})

	t.Run("ShouldProduceIdenticalVectorsForIdenticalText", func(t *testing.T) {
		adapter, err := Wrap(testConfig(0), &fakeEmbedder{})
		require.NoError(t, err)
		first, err := adapter.EmbedQuery(ctx, "same text")
		require.NoError(t, err)
		second, err := adapter.EmbedQuery(ctx, "same text")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("ShouldServeRepeatsFromCache", func(t *testing.T) {
		fake := &fakeEmbedder{}
		adapter, err := Wrap(testConfig(16), fake)
		require.NoError(t, err)
		_, err = adapter.EmbedQuery(ctx, "cached")
		require.NoError(t, err)
		_, err = adapter.EmbedQuery(ctx, "cached")
		require.NoError(t, err)
		assert.Equal(t, 1, fake.calls)
	})

	t.Run("ShouldOnlyEmbedCacheMissesInBatch", func(t *testing.T) {
		fake := &fakeEmbedder{}
		adapter, err := Wrap(testConfig(16), fake)
		require.NoError(t, err)
		_, err = adapter.EmbedQuery(ctx, "warm")
		require.NoError(t, err)
		vectors, err := adapter.EmbedDocuments(ctx, []string{"warm", "cold"})
		require.NoError(t, err)
		require.Len(t, vectors, 2)
		assert.Equal(t, 2, fake.calls)
	})

	t.Run("ShouldWrapProviderFailureOntoEmbeddingError", func(t *testing.T) {
		adapter, err := Wrap(testConfig(0), &fakeEmbedder{fail: errors.New("429 rate limited")})
		require.NoError(t, err)
		_, err = adapter.EmbedQuery(ctx, "anything")
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrEmbedding)
	})

	t.Run("ShouldRejectInvalidConfig", func(t *testing.T) {
		cfg := testConfig(0)
		cfg.Dimension = 0
		_, err := Wrap(cfg, &fakeEmbedder{})
		require.Error(t, err)
	})

	t.Run("ShouldReturnNilForEmptyBatch", func(t *testing.T) {
		adapter, err := Wrap(testConfig(0), &fakeEmbedder{})
		require.NoError(t, err)
		vectors, err := adapter.EmbedDocuments(ctx, nil)
		require.NoError(t, err)
		assert.Nil(t, vectors)
	})
}
