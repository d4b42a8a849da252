package loaders

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"DocQA/backend/go/internal/docqa_service/rag/interfaces"
	"DocQA/backend/go/internal/docqa_service/rag/schema"

	"github.com/gabriel-vasile/mimetype"
)

// Registry dispatches to a format loader by file extension (case-insensitive).
// By default only .pdf, .txt and .docx are registered.
type Registry struct {
	loaders map[string]interfaces.Loader
}

type registryOptions struct {
	scratch       Scratch
	unidocLicense string
	extraFormats  []string
}

// Option configures a Registry.
type Option func(*registryOptions)

// WithScratchDir sets the directory used for scratch files.
func WithScratchDir(dir string) Option {
	return func(o *registryOptions) { o.scratch.Dir = dir }
}

// WithUnidocLicense enables the unioffice docx extractor.
func WithUnidocLicense(key string) Option {
	return func(o *registryOptions) { o.unidocLicense = key }
}

// WithExtraFormats enables optional formats. Known values: ".xlsx", ".md", ".html".
func WithExtraFormats(exts ...string) Option {
	return func(o *registryOptions) { o.extraFormats = append(o.extraFormats, exts...) }
}

// NewRegistry builds the default loader set plus any enabled extra formats.
func NewRegistry(opts ...Option) (*Registry, error) {
	o := &registryOptions{}
	for _, opt := range opts {
		opt(o)
	}

	docx, err := NewDocxLoader(o.unidocLicense)
	if err != nil {
		return nil, err
	}
	r := &Registry{loaders: map[string]interfaces.Loader{
		".pdf":  NewPdfLoader(o.scratch),
		".txt":  NewTxtLoader(),
		".docx": docx,
	}}

	for _, ext := range o.extraFormats {
		ext = normalizeExt(ext)
		switch ext {
		case ".xlsx":
			r.loaders[ext] = NewXlsxLoader()
		case ".md", ".markdown":
			r.loaders[ext] = NewMarkdownLoader()
		case ".html", ".htm":
			r.loaders[ext] = NewHTMLLoader()
		default:
			return nil, fmt.Errorf("no loader available for extra format %q", ext)
		}
	}
	return r, nil
}

// Register adds or replaces the loader for an extension.
func (r *Registry) Register(ext string, l interfaces.Loader) {
	r.loaders[normalizeExt(ext)] = l
}

// Supports reports whether filename has a registered extension.
func (r *Registry) Supports(filename string) bool {
	_, ok := r.loaders[normalizeExt(filepath.Ext(filename))]
	return ok
}

// Extensions lists the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.loaders))
	for ext := range r.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Load picks the loader for filename's extension and stamps filename and source
// on every returned unit.
func (r *Registry) Load(ctx context.Context, filename string, raw []byte) ([]*schema.Document, error) {
	ext := normalizeExt(filepath.Ext(filename))
	l, ok := r.loaders[ext]
	if !ok {
		return nil, &schema.UnsupportedFormatError{Extension: ext}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	docs, err := l.Load(ctx, filename, raw)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filename, err)
	}
	for _, d := range docs {
		if d.Metadata == nil {
			d.Metadata = make(map[string]interface{})
		}
		d.Metadata[schema.MetadataKeyFileName] = filepath.Base(filename)
		d.Metadata[schema.MetadataKeySource] = ext
	}
	return docs, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// checkContent rejects bytes whose sniffed type (or one of its parents) is not in accepted.
func checkContent(raw []byte, kind string, accepted ...string) error {
	detected := mimetype.Detect(raw)
	for m := detected; m != nil; m = m.Parent() {
		for _, a := range accepted {
			if m.Is(a) {
				return nil
			}
		}
	}
	return fmt.Errorf("content looks like %s, not %s", detected.String(), kind)
}

// compile-time check to ensure Registry implements the Loader interface
var _ interfaces.Loader = (*Registry)(nil)
