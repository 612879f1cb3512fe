package loader

import "context"

// Document is the normalized output of every content loader. Metadata keys
// describe provenance (source, filename, video id) and are carried through
// ingestion onto every chunk.
type Document struct {
	Text     string
	Metadata map[string]any
}

// Loader turns an external source reference into a normalized document.
type Loader interface {
	Load(ctx context.Context, source string) (*Document, error)
}
