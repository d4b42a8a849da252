package loaders

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"DocQA/backend/go/internal/docqa_service/rag/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, opts ...Option) (*Registry, string) {
	t.Helper()
	dir := t.TempDir()
	r, err := NewRegistry(append([]Option{WithScratchDir(dir)}, opts...)...)
	require.NoError(t, err)
	return r, dir
}

func TestRegistryDefaultExtensions(t *testing.T) {
	r, _ := newTestRegistry(t)
	assert.Equal(t, []string{".docx", ".pdf", ".txt"}, r.Extensions())
	assert.True(t, r.Supports("REPORT.PDF"))
	assert.False(t, r.Supports("sheet.xlsx"))
	assert.False(t, r.Supports("noext"))
}

func TestRegistryExtraFormats(t *testing.T) {
	r, _ := newTestRegistry(t, WithExtraFormats("xlsx", ".MD"))
	assert.True(t, r.Supports("a.xlsx"))
	assert.True(t, r.Supports("b.md"))

	_, err := NewRegistry(WithExtraFormats(".pptx"))
	assert.Error(t, err)
}

func TestLoadHTMLStripsScripts(t *testing.T) {
	r, _ := newTestRegistry(t, WithExtraFormats(".html"))
	raw := []byte(`<html><head><title>Release notes</title><style>p{color:red}</style></head>
<body><p>Version 2 adds   streaming.</p><script>alert("x")</script><p>Uploads replace the current file.</p></body></html>`)

	docs, err := r.Load(context.Background(), "notes.html", raw)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Version 2 adds streaming.\nUploads replace the current file.", docs[0].Text)
	assert.Equal(t, "Release notes", docs[0].Metadata["title"])
}

func TestLoadTxtSingleUnit(t *testing.T) {
	r, _ := newTestRegistry(t)
	raw := []byte("hello world")

	docs, err := r.Load(context.Background(), "notes.TXT", raw)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "hello world", docs[0].Text)
	assert.Equal(t, "notes.TXT", docs[0].Metadata[schema.MetadataKeyFileName])
	assert.Equal(t, ".txt", docs[0].Metadata[schema.MetadataKeySource])
	assert.Equal(t, []byte("hello world"), raw, "input bytes must not change")
}

func TestLoadEmptyTxtYieldsNothing(t *testing.T) {
	r, _ := newTestRegistry(t)
	docs, err := r.Load(context.Background(), "empty.txt", []byte("  \n"))
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestLoadTxtStripsBOMAndFixesEncoding(t *testing.T) {
	r, _ := newTestRegistry(t)
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("caf\xc3\xa9 ok")...)
	docs, err := r.Load(context.Background(), "bom.txt", raw)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "café ok", docs[0].Text)
}

func TestLoadTxtReadsAnyBytesAsText(t *testing.T) {
	r, _ := newTestRegistry(t, WithExtraFormats(".md"))
	cases := map[string]string{
		"pdf-notes.txt": "%PDF-1.7 is the header every PDF file starts with.",
		"dump.txt":      "col1\x00col2\nrow",
		"notes.md":      "%PDF- magic bytes, explained",
	}
	for name, content := range cases {
		docs, err := r.Load(context.Background(), name, []byte(content))
		require.NoError(t, err, name)
		require.Len(t, docs, 1, name)
		assert.Equal(t, content, docs[0].Text, name)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.Load(context.Background(), "malware.exe", []byte("MZ"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrUnsupportedFormat))
	var ufe *schema.UnsupportedFormatError
	require.ErrorAs(t, err, &ufe)
	assert.Equal(t, ".exe", ufe.Extension)
}

func TestLoadDocxBuiltinReader(t *testing.T) {
	r, _ := newTestRegistry(t)
	raw := buildDocx(t, "First paragraph.", "Second paragraph.")
	original := bytes.Clone(raw)

	docs, err := r.Load(context.Background(), "report.docx", raw)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "First paragraph.\nSecond paragraph.\n", docs[0].Text)
	assert.Equal(t, original, raw)
}

func TestLoadDocxRejectsNonZip(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.Load(context.Background(), "fake.docx", []byte("just text pretending"))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, schema.ErrUnsupportedFormat))
}

func TestLoadPdfOneUnitPerPage(t *testing.T) {
	r, dir := newTestRegistry(t)
	raw := buildPDF(t, "Hello first page", "", "Third page text")

	docs, err := r.Load(context.Background(), "paper.pdf", raw)
	require.NoError(t, err)
	require.Len(t, docs, 2, "blank page is skipped")

	assert.Contains(t, docs[0].Text, "Hello first page")
	assert.Equal(t, 1, docs[0].Metadata[schema.MetadataKeyPage])
	assert.Contains(t, docs[1].Text, "Third page text")
	assert.Equal(t, 3, docs[1].Metadata[schema.MetadataKeyPage])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch file must be removed after a successful load")
}

func TestLoadPdfCleansScratchOnFailure(t *testing.T) {
	r, dir := newTestRegistry(t)

	_, err := r.Load(context.Background(), "broken.pdf", []byte("%PDF-1.4\nthis is not really a pdf"))
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch file must be removed after a failed load")
}

func TestLoadHonoursCancelledContext(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Load(ctx, "a.txt", []byte("text"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScratchWriteAndSweep(t *testing.T) {
	dir := t.TempDir()
	s := Scratch{Dir: dir}

	path, cleanup, err := s.Write("x.PDF", []byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, ".pdf", filepath.Ext(path))
	cleanup()
	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	stale := filepath.Join(dir, scratchPrefix+"old.pdf")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o600))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))
	keep := filepath.Join(dir, "unrelated.pdf")
	require.NoError(t, os.WriteFile(keep, []byte("x"), 0o600))
	require.NoError(t, os.Chtimes(keep, old, old))

	n, err := SweepScratch(dir, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = os.Stat(keep)
	assert.NoError(t, err)
}
