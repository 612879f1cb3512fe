package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/compozy/coursepilot/engine/core"
)

// PDFLoader extracts plain text from PDF files page by page.
type PDFLoader struct{}

func NewPDFLoader() *PDFLoader {
	return &PDFLoader{}
}

func (l *PDFLoader) Load(ctx context.Context, source string) (*Document, error) {
	file, reader, err := pdf.Open(source)
	if err != nil {
		return nil, fmt.Errorf("loader: open pdf %q: %w: %w", source, core.ErrLoader, err)
	}
	defer file.Close()
	total := reader.NumPage()
	var builder strings.Builder
	extracted := 0
	for pageNum := 1; pageNum <= total; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Pages with broken font maps are skipped rather than failing
			// the whole document.
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n\n")
		extracted++
	}
	content := strings.TrimSpace(builder.String())
	if content == "" {
		return nil, fmt.Errorf("loader: pdf %q contains no extractable text: %w", source, core.ErrLoader)
	}
	return &Document{
		Text: content,
		Metadata: map[string]any{
			"source":          source,
			"filename":        filepath.Base(source),
			"loader":          "pdf",
			"pages":           total,
			"pages_extracted": extracted,
		},
	}, nil
}
