package loaders

import (
	"bytes"
	"context"
	"strings"

	"DocQA/backend/go/internal/docqa_service/rag/interfaces"
	"DocQA/backend/go/internal/docqa_service/rag/schema"

	"github.com/google/uuid"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TxtLoader implements the Loader interface for plain text files.
type TxtLoader struct{}

// NewTxtLoader creates a new TxtLoader.
func NewTxtLoader() *TxtLoader {
	return &TxtLoader{}
}

// Load returns the whole file as a single unit. Invalid UTF-8 sequences are replaced.
// The content is not sniffed: any bytes uploaded as text are read as text.
func (l *TxtLoader) Load(ctx context.Context, filename string, raw []byte) ([]*schema.Document, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	text := strings.ToValidUTF8(string(bytes.TrimPrefix(raw, utf8BOM)), "\uFFFD")
	return []*schema.Document{{
		ID:       uuid.New().String(),
		Text:     text,
		Metadata: map[string]interface{}{},
	}}, nil
}

var _ interfaces.Loader = (*TxtLoader)(nil)
