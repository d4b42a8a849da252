package splitters

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"DocQA/backend/go/internal/docqa_service/rag/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSplitter(t *testing.T) *CharacterSplitter {
	t.Helper()
	s, err := NewCharacterSplitter(1000, 100)
	require.NoError(t, err)
	return s
}

func lastRunes(s string, n int) string {
	r := []rune(s)
	return string(r[len(r)-n:])
}

func firstRunes(s string, n int) string {
	return string([]rune(s)[:n])
}

func TestNewCharacterSplitterValidates(t *testing.T) {
	_, err := NewCharacterSplitter(0, 0)
	assert.Error(t, err)
	_, err = NewCharacterSplitter(100, 100)
	assert.Error(t, err)
	_, err = NewCharacterSplitter(100, -1)
	assert.Error(t, err)
}

func TestShortTextIsOneChunk(t *testing.T) {
	s := newSplitter(t)
	assert.Equal(t, []string{"hello world"}, s.SplitText("hello world"))
}

func TestEmptyAndWhitespaceInput(t *testing.T) {
	s := newSplitter(t)
	assert.Empty(t, s.SplitText(""))
	assert.Empty(t, s.SplitText(" \n\n \t"))

	chunks, err := s.Split(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunksRespectSizeAndOverlap(t *testing.T) {
	s := newSplitter(t)
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 150)

	chunks := s.SplitText(text)
	require.Greater(t, len(chunks), 5)

	for i, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 1000, "chunk %d too long", i)
		if i > 0 {
			assert.Equal(t, lastRunes(chunks[i-1], 100), firstRunes(c, 100), "overlap between %d and %d", i-1, i)
		}
	}

	// 去掉重叠部分后可以还原原文
	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0])
	for _, c := range chunks[1:] {
		rebuilt.WriteString(string([]rune(c)[100:]))
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestPrefersParagraphBoundaries(t *testing.T) {
	s := newSplitter(t)
	para := strings.Repeat("a", 600)
	text := para + "\n\n" + strings.Repeat("b ", 400)

	chunks := s.SplitText(text)
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.True(t, strings.HasSuffix(chunks[0], "\n\n"), "first chunk should end at the paragraph break")
}

func TestHardCutWithoutSeparators(t *testing.T) {
	s := newSplitter(t)
	text := strings.Repeat("é", 2500)

	chunks := s.SplitText(text)
	require.Len(t, chunks, 3)
	assert.Equal(t, 1000, utf8.RuneCountInString(chunks[0]))
	assert.Equal(t, 1000, utf8.RuneCountInString(chunks[1]))
	assert.Equal(t, 700, utf8.RuneCountInString(chunks[2]))
}

func TestSplitCopiesMetadataPerChunk(t *testing.T) {
	s := newSplitter(t)
	doc := &schema.Document{
		Text:     strings.Repeat("word ", 500),
		Metadata: map[string]interface{}{schema.MetadataKeyPage: 2},
	}

	chunks, err := s.Split(context.Background(), []*schema.Document{doc})
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for i, c := range chunks {
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, 2, c.Metadata[schema.MetadataKeyPage])
		assert.Equal(t, i, c.Metadata[schema.MetadataKeyChunkIndex])
	}
	chunks[0].Metadata["x"] = "y"
	assert.NotContains(t, chunks[1].Metadata, "x")
	assert.NotContains(t, doc.Metadata, schema.MetadataKeyChunkIndex)
}
