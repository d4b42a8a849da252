package loaders

import (
	"context"
	"fmt"
	"strings"

	"DocQA/backend/go/internal/docqa_service/rag/interfaces"
	"DocQA/backend/go/internal/docqa_service/rag/schema"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
)

// PdfLoader implements the Loader interface for PDF files.
// The PDF reader works on a file path, so bytes go through a scratch file first.
type PdfLoader struct {
	scratch Scratch
}

// NewPdfLoader creates a new PdfLoader.
func NewPdfLoader(scratch Scratch) *PdfLoader {
	return &PdfLoader{scratch: scratch}
}

// Load returns one unit per page that has text. Page numbers are 1-based.
func (l *PdfLoader) Load(ctx context.Context, filename string, raw []byte) (docs []*schema.Document, err error) {
	if err := checkContent(raw, "a PDF", "application/pdf"); err != nil {
		return nil, err
	}

	path, cleanup, err := l.scratch.Write(filename, raw)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	// 解析器在遇到损坏的文件时可能 panic
	defer func() {
		if r := recover(); r != nil {
			docs = nil
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract text from page %d: %w", i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, &schema.Document{
			ID:   uuid.New().String(),
			Text: text,
			Metadata: map[string]interface{}{
				schema.MetadataKeyPage: i,
			},
		})
	}
	return docs, nil
}

var _ interfaces.Loader = (*PdfLoader)(nil)
