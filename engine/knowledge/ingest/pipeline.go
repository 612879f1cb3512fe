package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/compozy/coursepilot/engine/core"
	"github.com/compozy/coursepilot/engine/knowledge/chunk"
	"github.com/compozy/coursepilot/engine/knowledge/embedder"
	"github.com/compozy/coursepilot/engine/knowledge/vectordb"
	"github.com/compozy/coursepilot/engine/loader"
	"github.com/compozy/coursepilot/pkg/logger"
)

// Retry configures bounded exponential backoff for embed and upsert calls.
// Attempts of one (or less) disables retries entirely.
type Retry struct {
	Attempts   int
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// Config captures the knobs for document ingestion.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
	Retry        Retry
}

// DocumentInfo describes a document known to the pipeline.
type DocumentInfo struct {
	DocumentID string
	Chunks     int
	Source     string
	IngestedAt time.Time
}

// Pipeline turns raw text into embedded chunks persisted to the vector store.
// Persistence is best effort: a failure mid-batch leaves earlier batches in
// the store, and re-ingesting produces a new document id.
type Pipeline struct {
	chunker   *chunk.Processor
	embedder  embedder.Embedder
	store     vectordb.Store
	batchSize int
	retry     Retry

	mu   sync.RWMutex
	docs map[string]DocumentInfo
}

func NewPipeline(emb embedder.Embedder, store vectordb.Store, cfg Config) (*Pipeline, error) {
	if emb == nil {
		return nil, errors.New("ingest: embedder implementation is required")
	}
	if store == nil {
		return nil, errors.New("ingest: vector store is required")
	}
	chunker, err := chunk.NewProcessor(chunk.Settings{
		Size:              cfg.ChunkSize,
		Overlap:           cfg.ChunkOverlap,
		Deduplicate:       true,
		NormalizeNewlines: true,
	})
	if err != nil {
		return nil, err
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}
	return &Pipeline{
		chunker:   chunker,
		embedder:  emb,
		store:     store,
		batchSize: batchSize,
		retry:     cfg.Retry,
		docs:      make(map[string]DocumentInfo),
	}, nil
}

// Ingest splits, embeds, and persists the text. It returns the generated
// document id under which every chunk is stored.
func (p *Pipeline) Ingest(ctx context.Context, text string, metadata map[string]any) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("ingest: document text is empty: %w", core.ErrIngestion)
	}
	docID := uuid.NewString()
	chunks, err := p.chunker.Process([]chunk.Document{{ID: docID, Text: text, Metadata: metadata}})
	if err != nil {
		return "", fmt.Errorf("ingest: %w: %w", core.ErrIngestion, err)
	}
	if len(chunks) == 0 {
		return "", fmt.Errorf("ingest: document produced no chunks: %w", core.ErrIngestion)
	}
	persisted, err := p.persistChunks(ctx, chunks)
	if err != nil {
		return "", err
	}
	p.track(docID, persisted, metadata)
	logger.FromContext(ctx).Debug(
		"document ingested",
		"document_id", docID,
		"chunks", len(chunks),
		"persisted", persisted,
	)
	return docID, nil
}

// IngestDocument ingests a loader output, carrying its metadata through.
func (p *Pipeline) IngestDocument(ctx context.Context, doc *loader.Document) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("ingest: document is required: %w", core.ErrIngestion)
	}
	return p.Ingest(ctx, doc.Text, doc.Metadata)
}

// Delete removes every chunk stored under the document id. Unknown ids
// yield core.ErrNotFound.
func (p *Pipeline) Delete(ctx context.Context, documentID string) error {
	p.mu.RLock()
	_, known := p.docs[documentID]
	p.mu.RUnlock()
	if !known {
		return fmt.Errorf("ingest: document %q: %w", documentID, core.ErrNotFound)
	}
	filter := vectordb.Filter{Metadata: map[string]string{"document_id": documentID}}
	if err := p.store.Delete(ctx, filter); err != nil {
		return fmt.Errorf("ingest: delete document %q: %w: %w", documentID, core.ErrStore, err)
	}
	p.mu.Lock()
	delete(p.docs, documentID)
	p.mu.Unlock()
	return nil
}

// Document reports the registry entry for a document id.
func (p *Pipeline) Document(documentID string) (DocumentInfo, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	info, ok := p.docs[documentID]
	return info, ok
}

// Documents lists every document the pipeline has ingested this process.
func (p *Pipeline) Documents() []DocumentInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]DocumentInfo, 0, len(p.docs))
	for _, info := range p.docs {
		out = append(out, info)
	}
	return out
}

func (p *Pipeline) persistChunks(ctx context.Context, chunks []chunk.Chunk) (int, error) {
	total := 0
	for start := 0; start < len(chunks); start += p.batchSize {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		end := start + p.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		vectors, err := p.embedBatch(ctx, batch)
		if err != nil {
			return total, err
		}
		if len(vectors) != len(batch) {
			return total, fmt.Errorf(
				"ingest: embedder returned %d vectors for %d chunks: %w",
				len(vectors),
				len(batch),
				core.ErrEmbedding,
			)
		}
		records := make([]vectordb.Record, len(batch))
		for i := range batch {
			meta := core.CloneMap(batch[i].Metadata)
			if meta == nil {
				meta = make(map[string]any, 2)
			}
			meta["chunk_hash"] = batch[i].Hash
			records[i] = vectordb.Record{
				ID:        batch[i].ID,
				Text:      batch[i].Text,
				Embedding: vectors[i],
				Metadata:  meta,
			}
		}
		if err := p.upsertBatch(ctx, records); err != nil {
			return total, err
		}
		total += len(records)
	}
	return total, nil
}

func (p *Pipeline) embedBatch(ctx context.Context, batch []chunk.Chunk) ([][]float32, error) {
	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = batch[i].Text
	}
	var vectors [][]float32
	err := p.withRetry(ctx, func(ctx context.Context) error {
		out, err := p.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return err
		}
		vectors = out
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ingest: embed chunks: %w", err)
	}
	return vectors, nil
}

func (p *Pipeline) upsertBatch(ctx context.Context, records []vectordb.Record) error {
	err := p.withRetry(ctx, func(ctx context.Context) error {
		return p.store.Upsert(ctx, records)
	})
	if err != nil {
		return fmt.Errorf("ingest: persist vectors: %w: %w", core.ErrStore, err)
	}
	return nil
}

func (p *Pipeline) withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	if p.retry.Attempts <= 1 {
		return op(ctx)
	}
	base := p.retry.Backoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	backoff := retry.NewExponential(base)
	if p.retry.MaxBackoff > 0 {
		backoff = retry.WithCappedDuration(p.retry.MaxBackoff, backoff)
	}
	backoff = retry.WithMaxRetries(uint64(p.retry.Attempts-1), backoff)
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := op(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (p *Pipeline) track(docID string, persisted int, metadata map[string]any) {
	source := ""
	if raw, ok := metadata["source"].(string); ok {
		source = raw
	}
	p.mu.Lock()
	p.docs[docID] = DocumentInfo{
		DocumentID: docID,
		Chunks:     persisted,
		Source:     source,
		IngestedAt: time.Now().UTC(),
	}
	p.mu.Unlock()
}
