package loaders

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"DocQA/backend/go/internal/docqa_service/rag/interfaces"
	"DocQA/backend/go/internal/docqa_service/rag/schema"

	"github.com/google/uuid"
	"github.com/unidoc/unioffice/v2/common/license"
	"github.com/unidoc/unioffice/v2/document"
)

var (
	licenseOnce sync.Once
	licenseErr  error
)

// DocxLoader 实现了用于读取 Word (.docx) 文件的 Loader 接口。
// 配置了 unioffice 授权时使用 unioffice 解析，否则使用内置的 OOXML 读取器。
type DocxLoader struct {
	licensed bool
}

// NewDocxLoader creates a new DocxLoader. An empty key selects the built-in reader.
func NewDocxLoader(unidocLicense string) (*DocxLoader, error) {
	if unidocLicense == "" {
		return &DocxLoader{}, nil
	}
	licenseOnce.Do(func() {
		licenseErr = license.SetMeteredKey(unidocLicense)
	})
	if licenseErr != nil {
		return nil, fmt.Errorf("set unioffice license: %w", licenseErr)
	}
	return &DocxLoader{licensed: true}, nil
}

// Load 将整个文档作为一个文本单元返回，段落之间用换行分隔。
func (l *DocxLoader) Load(ctx context.Context, filename string, raw []byte) ([]*schema.Document, error) {
	if err := checkContent(raw, "a docx document", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"); err != nil {
		return nil, err
	}

	var (
		text string
		err  error
	)
	if l.licensed {
		text, err = l.extractWithUnioffice(raw)
	} else {
		text, err = extractDocxText(raw)
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	return []*schema.Document{{
		ID:       uuid.New().String(),
		Text:     text,
		Metadata: map[string]interface{}{},
	}}, nil
}

func (l *DocxLoader) extractWithUnioffice(raw []byte) (string, error) {
	doc, err := document.Read(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}

	var sb strings.Builder
	for _, p := range doc.Paragraphs() {
		for _, r := range p.Runs() {
			sb.WriteString(r.Text())
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

var _ interfaces.Loader = (*DocxLoader)(nil)
