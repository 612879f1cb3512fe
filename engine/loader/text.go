package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/compozy/coursepilot/engine/core"
)

const MaxTextFileSizeBytes = 4 * 1024 * 1024

// TextLoader reads plain text and markdown files from disk.
type TextLoader struct {
	maxBytes int64
}

func NewTextLoader() *TextLoader {
	return &TextLoader{maxBytes: MaxTextFileSizeBytes}
}

func (l *TextLoader) Load(_ context.Context, source string) (*Document, error) {
	file, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("loader: open text file %q: %w: %w", source, core.ErrLoader, err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("loader: stat text file %q: %w: %w", source, core.ErrLoader, err)
	}
	if info.Size() > l.maxBytes {
		return nil, fmt.Errorf(
			"loader: text file %q exceeds maximum size of %d bytes: %w",
			source,
			l.maxBytes,
			core.ErrLoader,
		)
	}
	data, err := io.ReadAll(io.LimitReader(file, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("loader: read text file %q: %w: %w", source, core.ErrLoader, err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf(
			"loader: text file %q changed during read and exceeded %d bytes: %w",
			source,
			l.maxBytes,
			core.ErrLoader,
		)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("loader: text file %q is not valid utf-8: %w", source, core.ErrLoader)
	}
	text := strings.TrimSpace(normalizeNewlines(string(data)))
	if text == "" {
		return nil, fmt.Errorf("loader: text file %q is empty: %w", source, core.ErrLoader)
	}
	return &Document{
		Text: text,
		Metadata: map[string]any{
			"source":   source,
			"filename": filepath.Base(source),
			"loader":   "text",
			"bytes":    len(data),
		},
	}, nil
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
