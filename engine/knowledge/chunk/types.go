package chunk

// Document is the unit handed to the processor: raw source text plus the
// metadata inherited by every chunk derived from it.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]any
}

// Chunk is a bounded slice of a document used as the unit of embedding and
// retrieval.
type Chunk struct {
	ID       string
	Index    int
	Text     string
	Hash     string
	Metadata map[string]any
}

// Settings controls splitting behavior.
type Settings struct {
	Size              int
	Overlap           int
	Deduplicate       bool
	NormalizeNewlines bool
}
