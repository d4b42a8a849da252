package splitters

import (
	"context"
	"fmt"
	"strings"

	"DocQA/backend/go/internal/docqa_service/rag/interfaces"
	"DocQA/backend/go/internal/docqa_service/rag/schema"

	"github.com/google/uuid"
)

// DefaultSeparators 按优先级排列的切分边界：段落、换行、句末、空格。
var DefaultSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", " "}

// CharacterSplitter splits text into windows of at most ChunkSize characters (runes).
// Consecutive chunks of the same unit share exactly ChunkOverlap characters.
// Inside each window the cut is placed after the highest-priority separator that
// lies beyond the overlap region; a hard cut is used only when none exists.
type CharacterSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// NewCharacterSplitter creates a new CharacterSplitter.
func NewCharacterSplitter(chunkSize, chunkOverlap int) (*CharacterSplitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", chunkSize, chunkOverlap)
	}
	return &CharacterSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separators:   DefaultSeparators,
	}, nil
}

// Split splits every unit independently and copies its metadata onto each chunk.
func (s *CharacterSplitter) Split(ctx context.Context, docs []*schema.Document) ([]*schema.Document, error) {
	var chunks []*schema.Document

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i, text := range s.SplitText(doc.Text) {
			md := schema.CopyMetadata(doc.Metadata)
			md[schema.MetadataKeyChunkIndex] = i
			chunks = append(chunks, &schema.Document{
				ID:       uuid.New().String(),
				Text:     text,
				Metadata: md,
			})
		}
	}

	return chunks, nil
}

// SplitText returns the chunk texts of a single unit. Whitespace-only chunks are dropped.
func (s *CharacterSplitter) SplitText(text string) []string {
	runes := []rune(text)
	var out []string

	for start := 0; start < len(runes); {
		if len(runes)-start <= s.ChunkSize {
			out = appendChunk(out, string(runes[start:]))
			break
		}
		end := s.cut(runes, start)
		out = appendChunk(out, string(runes[start:end]))
		start = end - s.ChunkOverlap
	}
	return out
}

// cut picks the end (exclusive) of the window starting at start.
// The end is always > start+ChunkOverlap so the next window makes progress.
func (s *CharacterSplitter) cut(runes []rune, start int) int {
	limit := start + s.ChunkSize
	floor := start + s.ChunkOverlap + 1
	window := string(runes[floor:limit])

	for _, sep := range s.Separators {
		idx := strings.LastIndex(window, sep)
		if idx < 0 {
			continue
		}
		// idx 是字节偏移，换算成 rune 偏移
		return floor + len([]rune(window[:idx+len(sep)]))
	}
	return limit
}

func appendChunk(out []string, chunk string) []string {
	if strings.TrimSpace(chunk) == "" {
		return out
	}
	return append(out, chunk)
}

// compile-time check to ensure CharacterSplitter implements the Splitter interface
var _ interfaces.Splitter = (*CharacterSplitter)(nil)
