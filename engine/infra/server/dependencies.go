package server

import (
	"context"

	"github.com/compozy/coursepilot/engine/knowledge/ingest"
	"github.com/compozy/coursepilot/engine/loader"
	"github.com/compozy/coursepilot/engine/loader/youtube"
	"github.com/compozy/coursepilot/engine/rag"
)

// IngestService is the document half of the API surface.
type IngestService interface {
	Ingest(ctx context.Context, text string, metadata map[string]any) (string, error)
	IngestDocument(ctx context.Context, doc *loader.Document) (string, error)
	Delete(ctx context.Context, documentID string) error
	Documents() []ingest.DocumentInfo
}

// RAGService answers questions against the ingested corpus.
type RAGService interface {
	Answer(ctx context.Context, query string, opts rag.Options) (*rag.Answer, error)
}

// ChannelLoader ingests YouTube channels. Nil when no API key is configured.
type ChannelLoader interface {
	LoadChannel(ctx context.Context, channelID string, maxVideos int64) (*youtube.Report, error)
}

// PDFLoader extracts text from an on-disk PDF file.
type PDFLoader interface {
	Load(ctx context.Context, source string) (*loader.Document, error)
}

// Dependencies carries every collaborator the handlers need.
type Dependencies struct {
	Ingest  IngestService
	RAG     RAGService
	PDF     PDFLoader
	YouTube ChannelLoader

	// DefaultChannelID is used by the channel load route when the request
	// omits one.
	DefaultChannelID string
}
