package ingest

import (
	"context"
	"crypto/sha256"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/coursepilot/engine/core"
	"github.com/compozy/coursepilot/engine/knowledge/vectordb"
)

// staticEmbedder derives deterministic vectors from a content hash.
type staticEmbedder struct{}

func (staticEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = embedText(text)
	}
	return out, nil
}

func (s staticEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return embedText(text), nil
}

func (staticEmbedder) Dimension() int { return 3 }

func embedText(text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	return []float32{float32(sum[0]) + 1, float32(sum[1]) + 1, float32(sum[2]) + 1}
}

// flakyStore fails the first N upserts before delegating.
type flakyStore struct {
	vectordb.Store
	failures int
	calls    int
}

func (f *flakyStore) Upsert(ctx context.Context, records []vectordb.Record) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("transient upsert failure")
	}
	return f.Store.Upsert(ctx, records)
}

func newTestStore(t *testing.T) vectordb.Store {
	t.Helper()
	store, err := vectordb.New(context.Background(), &vectordb.Config{
		ID:        "kb",
		Provider:  vectordb.ProviderMemory,
		Dimension: 3,
	})
	require.NoError(t, err)
	return store
}

func newTestPipeline(t *testing.T, store vectordb.Store, retry Retry) *Pipeline {
	t.Helper()
	pipeline, err := NewPipeline(staticEmbedder{}, store, Config{
		ChunkSize:    120,
		ChunkOverlap: 20,
		BatchSize:    4,
		Retry:        retry,
	})
	require.NoError(t, err)
	return pipeline
}

func TestPipeline(t *testing.T) {
	ctx := context.Background()

	t.Run("ShouldIngestAndDeleteWithoutOrphans", func(t *testing.T) {
		store := newTestStore(t)
		pipeline := newTestPipeline(t, store, Retry{})
		docID, err := pipeline.Ingest(ctx, "The sky is blue. Grass is green. Rivers run downhill.", map[string]any{"source": "facts.txt"})
		require.NoError(t, err)
		require.NotEmpty(t, docID)

		matches, err := store.Search(ctx, embedText("The sky is blue. Grass is green. Rivers run downhill."), vectordb.SearchOptions{
			TopK:    10,
			Filters: map[string]string{"document_id": docID},
		})
		require.NoError(t, err)
		require.NotEmpty(t, matches)
		assert.Equal(t, "facts.txt", matches[0].Metadata["source"])

		require.NoError(t, pipeline.Delete(ctx, docID))
		matches, err = store.Search(ctx, embedText("anything"), vectordb.SearchOptions{
			TopK:    10,
			Filters: map[string]string{"document_id": docID},
		})
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("ShouldTrackIngestedDocuments", func(t *testing.T) {
		pipeline := newTestPipeline(t, newTestStore(t), Retry{})
		docID, err := pipeline.Ingest(ctx, "Some course material.", map[string]any{"source": "notes.md"})
		require.NoError(t, err)
		info, ok := pipeline.Document(docID)
		require.True(t, ok)
		assert.Equal(t, "notes.md", info.Source)
		assert.Equal(t, 1, info.Chunks)
		assert.WithinDuration(t, time.Now().UTC(), info.IngestedAt, time.Minute)
		assert.Len(t, pipeline.Documents(), 1)
	})

	t.Run("ShouldRejectEmptyText", func(t *testing.T) {
		pipeline := newTestPipeline(t, newTestStore(t), Retry{})
		_, err := pipeline.Ingest(ctx, "   \n\t", nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrIngestion)
	})

	t.Run("ShouldReturnNotFoundForUnknownDocument", func(t *testing.T) {
		pipeline := newTestPipeline(t, newTestStore(t), Retry{})
		err := pipeline.Delete(ctx, "nonexistent-doc")
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("ShouldRetryTransientUpsertFailures", func(t *testing.T) {
		flaky := &flakyStore{Store: newTestStore(t), failures: 1}
		pipeline := newTestPipeline(t, flaky, Retry{Attempts: 3, Backoff: time.Millisecond})
		docID, err := pipeline.Ingest(ctx, "Retried content.", nil)
		require.NoError(t, err)
		require.NotEmpty(t, docID)
		assert.Equal(t, 2, flaky.calls)
	})

	t.Run("ShouldWrapPersistFailureOntoStoreError", func(t *testing.T) {
		flaky := &flakyStore{Store: newTestStore(t), failures: 10}
		pipeline := newTestPipeline(t, flaky, Retry{})
		_, err := pipeline.Ingest(ctx, "Doomed content.", nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrStore)
		assert.Equal(t, 1, flaky.calls)
	})
}
