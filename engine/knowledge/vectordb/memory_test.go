package vectordb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(&Config{Dimension: 3})

	t.Run("ShouldUpsertAndSearchByCosine", func(t *testing.T) {
		records := []Record{
			{ID: "sky", Text: "The sky is blue.", Embedding: []float32{1, 0, 0}, Metadata: map[string]any{"document_id": "doc-1"}},
			{ID: "grass", Text: "Grass is green.", Embedding: []float32{0, 1, 0}, Metadata: map[string]any{"document_id": "doc-2"}},
		}
		require.NoError(t, store.Upsert(ctx, records))
		matches, err := store.Search(ctx, []float32{1, 0, 0}, SearchOptions{TopK: 1})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "sky", matches[0].ID)
		assert.Equal(t, "The sky is blue.", matches[0].Text)
	})

	t.Run("ShouldFilterByMetadata", func(t *testing.T) {
		matches, err := store.Search(
			ctx,
			[]float32{1, 0, 0},
			SearchOptions{TopK: 2, Filters: map[string]string{"document_id": "doc-2"}},
		)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "grass", matches[0].ID)
	})

	t.Run("ShouldDeleteByMetadataFilter", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, Filter{Metadata: map[string]string{"document_id": "doc-1"}}))
		matches, err := store.Search(ctx, []float32{1, 0, 0}, SearchOptions{TopK: 2, MinScore: 0.5})
		require.NoError(t, err)
		require.Len(t, matches, 0)
	})

	t.Run("ShouldDeleteByID", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, Filter{IDs: []string{"grass"}}))
		matches, err := store.Search(ctx, []float32{0, 1, 0}, SearchOptions{TopK: 2, MinScore: 0.1})
		require.NoError(t, err)
		require.Len(t, matches, 0)
	})

	t.Run("ShouldFailUpsertWhenDimensionMismatch", func(t *testing.T) {
		mismatchStore := newMemoryStore(&Config{Dimension: 3})
		err := mismatchStore.Upsert(ctx, []Record{{ID: "bad", Embedding: []float32{1, 1}}})
		require.Error(t, err)
	})

	t.Run("ShouldFailSearchWhenQueryDimensionMismatch", func(t *testing.T) {
		otherStore := newMemoryStore(&Config{Dimension: 2})
		require.NoError(t, otherStore.Upsert(ctx, []Record{{ID: "c", Embedding: []float32{1, 0}}}))
		_, err := otherStore.Search(ctx, []float32{1, 0, 0}, SearchOptions{TopK: 1})
		require.Error(t, err)
	})

	t.Run("ShouldOrderDeterministicallyOnScoreTies", func(t *testing.T) {
		tieStore := newMemoryStore(&Config{Dimension: 2})
		records := []Record{
			{ID: "b", Embedding: []float32{1, 0}},
			{ID: "a", Embedding: []float32{2, 0}},
		}
		require.NoError(t, tieStore.Upsert(ctx, records))
		matches, err := tieStore.Search(ctx, []float32{1, 0}, SearchOptions{TopK: 2})
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, "a", matches[0].ID)
		assert.Equal(t, "b", matches[1].ID)
	})

	t.Run("ShouldRespectTopKWhenExceedingAvailableRecords", func(t *testing.T) {
		limitedStore := newMemoryStore(&Config{Dimension: 2})
		records := []Record{
			{ID: "d", Text: "delta", Embedding: []float32{1, 0}},
			{ID: "e", Text: "echo", Embedding: []float32{0, 1}},
		}
		require.NoError(t, limitedStore.Upsert(ctx, records))
		matches, err := limitedStore.Search(ctx, []float32{1, 0}, SearchOptions{TopK: 10})
		require.NoError(t, err)
		require.Len(t, matches, 2)
	})
}
