package loaders

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"DocQA/backend/go/internal/docqa_service/rag/interfaces"
	"DocQA/backend/go/internal/docqa_service/rag/schema"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// XlsxLoader implements the Loader interface for Excel (.xlsx) files. Opt-in via WithExtraFormats.
type XlsxLoader struct{}

// NewXlsxLoader creates a new XlsxLoader.
func NewXlsxLoader() *XlsxLoader {
	return &XlsxLoader{}
}

// Load returns one unit per non-empty sheet, rows joined by newlines and cells by tabs.
func (l *XlsxLoader) Load(ctx context.Context, filename string, raw []byte) ([]*schema.Document, error) {
	if err := checkContent(raw, "an xlsx workbook", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "application/zip"); err != nil {
		return nil, err
	}
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var documents []*schema.Document
	for _, sheetName := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheetName, err)
		}

		var sb strings.Builder
		for _, row := range rows {
			line := strings.TrimRight(strings.Join(row, "\t"), "\t")
			if line == "" {
				continue
			}
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
		if sb.Len() == 0 {
			continue
		}

		documents = append(documents, &schema.Document{
			ID:   uuid.New().String(),
			Text: sb.String(),
			Metadata: map[string]interface{}{
				schema.MetadataKeySheet: sheetName,
			},
		})
	}
	return documents, nil
}

var _ interfaces.Loader = (*XlsxLoader)(nil)
