package core

import "errors"

// Sentinel errors classifying every failure the pipeline can surface. Each
// component wraps downstream failures onto its own kind so callers can branch
// with errors.Is without depending on provider SDK error types.
var (
	// ErrIngestion marks failures while splitting, embedding, or persisting a document.
	ErrIngestion = errors.New("ingestion failed")
	// ErrEmbedding marks embedding provider failures (timeout, rate limit, malformed input).
	ErrEmbedding = errors.New("embedding failed")
	// ErrStore marks vector store connectivity or schema failures.
	ErrStore = errors.New("vector store failed")
	// ErrRetrieval marks similarity search failures at query time.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrGeneration marks LLM completion failures.
	ErrGeneration = errors.New("generation failed")
	// ErrLoader marks content loader failures (unreachable source, missing transcript, bad format).
	ErrLoader = errors.New("loader failed")

	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)
