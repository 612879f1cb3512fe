package embedder

import "context"

// Provider enumerates supported embedding backends.
type Provider string

const (
	ProviderOpenAI   Provider = "openai"
	ProviderGoogleAI Provider = "googleai"
)

// Config captures the settings needed to build an embedder adapter. The
// model and dimension identify the vectors produced; records stored under a
// different model/dimension pair are not comparable at query time.
type Config struct {
	Provider      Provider
	Model         string
	APIKey        string
	Dimension     int
	BatchSize     int
	StripNewLines bool
	CacheSize     int
}

// Embedder is the minimal contract the ingest and retrieval paths rely on.
// Both methods preserve input order.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
