package loaders

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"DocQA/backend/go/internal/docqa_service/rag/interfaces"
	"DocQA/backend/go/internal/docqa_service/rag/schema"

	"github.com/google/uuid"
	"golang.org/x/net/html"
)

// HTMLLoader extracts the readable text of a saved web page. Opt-in via WithExtraFormats.
type HTMLLoader struct{}

// NewHTMLLoader creates a new HTMLLoader.
func NewHTMLLoader() *HTMLLoader {
	return &HTMLLoader{}
}

// Load returns the page text as a single unit; the <title> is kept in metadata.
func (l *HTMLLoader) Load(ctx context.Context, filename string, raw []byte) ([]*schema.Document, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	if err := checkContent(raw, "HTML", "text/html", "text/plain"); err != nil {
		return nil, err
	}

	text, title, err := extractHTMLText(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	md := map[string]interface{}{}
	if title != "" {
		md["title"] = title
	}
	return []*schema.Document{{ID: uuid.New().String(), Text: text, Metadata: md}}, nil
}

// 这些标签里的文本不是正文
var skippedTags = map[string]bool{"script": true, "style": true, "noscript": true, "template": true}

// 块级标签结束时换行，避免段落粘连
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "pre": true, "blockquote": true,
}

// extractHTMLText strips tags and scripts and returns the visible text and the page title.
func extractHTMLText(body io.Reader) (string, string, error) {
	z := html.NewTokenizer(body)
	var sb, title strings.Builder
	skipDepth := 0
	inTitle := false

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return strings.TrimSpace(sb.String()), strings.TrimSpace(title.String()), nil
			}
			return "", "", z.Err()
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			tn, _ := z.TagName()
			tag := string(tn)
			switch {
			case skippedTags[tag] && tt == html.StartTagToken:
				skipDepth++
			case skippedTags[tag] && tt == html.EndTagToken && skipDepth > 0:
				skipDepth--
			case tag == "title":
				inTitle = tt == html.StartTagToken
			case blockTags[tag] && tt != html.StartTagToken:
				sb.WriteString("\n")
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := strings.Join(strings.Fields(string(z.Text())), " ")
			if text == "" {
				continue
			}
			if inTitle {
				title.WriteString(text)
				continue
			}
			if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
				sb.WriteString(" ")
			}
			sb.WriteString(text)
		}
	}
}

var _ interfaces.Loader = (*HTMLLoader)(nil)
