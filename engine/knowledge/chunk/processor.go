package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var newlinePattern = regexp.MustCompile(`\r\n|\r`)

// Processor splits documents into deterministic chunks.
type Processor struct {
	settings Settings
}

// NewProcessor builds a processor with validated settings.
func NewProcessor(settings Settings) (*Processor, error) {
	if settings.Size <= 0 {
		return nil, errors.New("chunk: size must be greater than zero")
	}
	if settings.Overlap < 0 {
		return nil, errors.New("chunk: overlap cannot be negative")
	}
	if settings.Overlap >= settings.Size {
		return nil, fmt.Errorf("chunk: overlap %d must be smaller than size %d", settings.Overlap, settings.Size)
	}
	return &Processor{settings: settings}, nil
}

// Process splits the documents into chunks that inherit the parent metadata
// plus a chunk_index and document_id entry. Chunk IDs are stable hashes of
// document id, ordinal, and content. Consecutive chunks of a document share
// exactly Overlap characters.
func (p *Processor) Process(docs []Document) ([]Chunk, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{})
	chunks := make([]Chunk, 0, len(docs))
	for di := range docs {
		doc := docs[di]
		text := p.preprocess(doc.Text)
		if text == "" {
			continue
		}
		idx := 0
		for _, chunkText := range p.split(text) {
			if strings.TrimSpace(chunkText) == "" {
				continue
			}
			hash := hashText(chunkText)
			if p.settings.Deduplicate {
				if _, exists := seen[hash]; exists {
					continue
				}
				seen[hash] = struct{}{}
			}
			metadata := make(map[string]any, len(doc.Metadata)+2)
			for k, v := range doc.Metadata {
				metadata[k] = v
			}
			metadata["chunk_index"] = idx
			metadata["document_id"] = doc.ID
			chunks = append(chunks, Chunk{
				ID:       hashText(doc.ID + "::" + fmt.Sprint(idx) + "::" + hash),
				Index:    idx,
				Text:     chunkText,
				Hash:     hash,
				Metadata: metadata,
			})
			idx++
		}
	}
	return chunks, nil
}

// split windows the text into segments of at most Size characters. Each
// segment ends on the last space inside the window when one exists, so words
// are not cut, and the next segment starts exactly Overlap characters before
// the previous end.
func (p *Processor) split(text string) []string {
	runes := []rune(text)
	if len(runes) <= p.settings.Size {
		return []string{text}
	}
	var segments []string
	start := 0
	for start < len(runes) {
		end := start + p.settings.Size
		if end >= len(runes) {
			segments = append(segments, string(runes[start:]))
			break
		}
		boundary := end
		for boundary > start && runes[boundary] != ' ' {
			boundary--
		}
		if boundary > start {
			end = boundary
		}
		segments = append(segments, string(runes[start:end]))
		next := end - p.settings.Overlap
		if next <= start {
			// The boundary backoff ate the whole advance; skip the
			// overlap for this step so the window still moves forward.
			next = end
		}
		start = next
	}
	return segments
}

func (p *Processor) preprocess(text string) string {
	normalized := text
	if p.settings.NormalizeNewlines {
		normalized = newlinePattern.ReplaceAllString(normalized, "\n")
	}
	return strings.TrimSpace(normalized)
}

func hashText(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:16])
}
