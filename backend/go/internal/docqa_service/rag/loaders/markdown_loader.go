package loaders

import (
	"context"

	"DocQA/backend/go/internal/docqa_service/rag/interfaces"
	"DocQA/backend/go/internal/docqa_service/rag/schema"
)

// MarkdownLoader reads Markdown (.md) files as plain text. Opt-in via WithExtraFormats.
type MarkdownLoader struct {
	txt *TxtLoader
}

// NewMarkdownLoader creates a new MarkdownLoader.
func NewMarkdownLoader() *MarkdownLoader {
	return &MarkdownLoader{txt: NewTxtLoader()}
}

// Load returns the Markdown source as a single unit; markup is kept so headings stay in context.
func (l *MarkdownLoader) Load(ctx context.Context, filename string, raw []byte) ([]*schema.Document, error) {
	return l.txt.Load(ctx, filename, raw)
}

var _ interfaces.Loader = (*MarkdownLoader)(nil)
