package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/coursepilot/engine/core"
	"github.com/compozy/coursepilot/engine/knowledge/vectordb"
)

type fixedEmbedder struct {
	vector []float32
	err    error
}

func (f fixedEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func (f fixedEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f fixedEmbedder) Dimension() int { return len(f.vector) }

type failingStore struct{}

func (failingStore) Upsert(context.Context, []vectordb.Record) error { return nil }

func (failingStore) Search(context.Context, []float32, vectordb.SearchOptions) ([]vectordb.Match, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) Delete(context.Context, vectordb.Filter) error { return nil }

func (failingStore) Close(context.Context) error { return nil }

func seededStore(t *testing.T) vectordb.Store {
	t.Helper()
	ctx := context.Background()
	store, err := vectordb.New(ctx, &vectordb.Config{
		ID:        "kb",
		Provider:  vectordb.ProviderMemory,
		Dimension: 2,
	})
	require.NoError(t, err)
	records := []vectordb.Record{
		{ID: "a", Text: "The sky is blue.", Embedding: []float32{1, 0}, Metadata: map[string]any{"document_id": "doc-1"}},
		{ID: "b", Text: "Grass is green.", Embedding: []float32{0.9, 0.1}, Metadata: map[string]any{"document_id": "doc-2"}},
		{ID: "c", Text: "Rivers run downhill.", Embedding: []float32{0, 1}, Metadata: map[string]any{"document_id": "doc-3"}},
	}
	require.NoError(t, store.Upsert(ctx, records))
	return store
}

func TestService(t *testing.T) {
	ctx := context.Background()
	query := fixedEmbedder{vector: []float32{1, 0}}

	t.Run("ShouldReturnContextsOrderedByScore", func(t *testing.T) {
		service, err := NewService(query, seededStore(t), runeEstimator{}, Options{TopK: 3})
		require.NoError(t, err)
		contexts, err := service.Retrieve(ctx, "what color is the sky", Options{})
		require.NoError(t, err)
		require.NotEmpty(t, contexts)
		assert.Equal(t, "The sky is blue.", contexts[0].Content)
		for i := 1; i < len(contexts); i++ {
			assert.GreaterOrEqual(t, contexts[i-1].Score, contexts[i].Score)
		}
	})

	t.Run("ShouldLimitResultsToTopK", func(t *testing.T) {
		service, err := NewService(query, seededStore(t), runeEstimator{}, Options{TopK: 3})
		require.NoError(t, err)
		contexts, err := service.Retrieve(ctx, "anything", Options{TopK: 1})
		require.NoError(t, err)
		assert.Len(t, contexts, 1)
	})

	t.Run("ShouldTrimContextsToTokenBudget", func(t *testing.T) {
		service, err := NewService(query, seededStore(t), runeEstimator{}, Options{TopK: 3})
		require.NoError(t, err)
		contexts, err := service.Retrieve(ctx, "anything", Options{TopK: 3, MaxTokens: 4})
		require.NoError(t, err)
		require.NotEmpty(t, contexts)
		total := 0
		for _, c := range contexts {
			total += c.TokenEstimate
		}
		assert.LessOrEqual(t, total, 4)
		assert.Equal(t, "The sky is blue.", contexts[0].Content)
	})

	t.Run("ShouldReturnEmptyForNoMatches", func(t *testing.T) {
		service, err := NewService(query, seededStore(t), runeEstimator{}, Options{TopK: 3})
		require.NoError(t, err)
		contexts, err := service.Retrieve(ctx, "anything", Options{MinScore: 1.01, TopK: 3})
		require.NoError(t, err)
		assert.Empty(t, contexts)
	})

	t.Run("ShouldRejectEmptyQuery", func(t *testing.T) {
		service, err := NewService(query, seededStore(t), runeEstimator{}, Options{})
		require.NoError(t, err)
		_, err = service.Retrieve(ctx, "  ", Options{})
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	})

	t.Run("ShouldWrapSearchFailureOntoRetrievalError", func(t *testing.T) {
		service, err := NewService(query, failingStore{}, runeEstimator{}, Options{})
		require.NoError(t, err)
		_, err = service.Retrieve(ctx, "anything", Options{})
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrRetrieval)
	})
}
