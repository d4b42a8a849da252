package vectorstore

import (
	"context"
	"testing"

	"DocQA/backend/go/internal/docqa_service/rag/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id, docID string, vec ...float32) *schema.Document {
	return &schema.Document{
		ID:        id,
		Text:      "text of " + id,
		Embedding: vec,
		Metadata:  map[string]interface{}{schema.MetadataKeyDocumentID: docID},
	}
}

func TestMemoryStoreSearchOrderAndFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)
	require.NoError(t, s.Upsert(ctx, []*schema.Document{
		record("a", "1", 1, 0),
		record("b", "1", 0.5, 0.5),
		record("c", "2", 0.9, 0.1),
	}))

	all, err := s.Search(ctx, []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"a", "c", "b"}, []string{all[0].Document.ID, all[1].Document.ID, all[2].Document.ID})

	only1, err := s.Search(ctx, []float32{1, 0}, 10, schema.DocumentFilter("1"))
	require.NoError(t, err)
	require.Len(t, only1, 2)
	for _, r := range only1 {
		assert.Equal(t, "1", r.Document.Metadata[schema.MetadataKeyDocumentID])
	}

	top1, err := s.Search(ctx, []float32{1, 0}, 1, nil)
	require.NoError(t, err)
	assert.Len(t, top1, 1)
}

func TestMemoryStoreSearchEmptyIndex(t *testing.T) {
	s := NewMemoryStore(2)
	res, err := s.Search(context.Background(), []float32{1, 0}, 79, schema.DocumentFilter("9"))
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestMemoryStoreDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)
	require.NoError(t, s.Upsert(ctx, []*schema.Document{record("a", "1", 1, 0), record("b", "2", 0, 1)}))

	require.NoError(t, s.Delete(ctx, schema.DocumentFilter("1")))
	assert.Equal(t, 0, s.Count(schema.DocumentFilter("1")))
	assert.Equal(t, 1, s.Count(schema.DocumentFilter("2")))

	require.NoError(t, s.Delete(ctx, schema.DocumentFilter("1")), "deleting nothing is not an error")
	assert.Error(t, s.Delete(ctx, schema.Filter{}))
}

func TestMemoryStoreRejectsWrongDimension(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(3)
	err := s.Upsert(ctx, []*schema.Document{record("ok", "1", 1, 2, 3), record("bad", "1", 1, 2)})
	assert.Error(t, err)
	assert.Equal(t, 0, s.Count(nil), "batch must not be partially applied")

	_, err = s.Search(ctx, []float32{1}, 5, nil)
	assert.Error(t, err)
}

func TestMemoryStoreUpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(1)
	require.NoError(t, s.Upsert(ctx, []*schema.Document{record("a", "1", 1)}))
	require.NoError(t, s.Upsert(ctx, []*schema.Document{record("a", "2", 1)}))
	assert.Equal(t, 1, s.Count(nil))
	assert.Equal(t, 1, s.Count(schema.DocumentFilter("2")))
}

func TestBuildFilterExpression(t *testing.T) {
	expr, err := BuildFilterExpression(nil)
	require.NoError(t, err)
	assert.Empty(t, expr)

	expr, err = BuildFilterExpression(schema.DocumentFilter("7"))
	require.NoError(t, err)
	assert.Equal(t, `document_id == "7"`, expr)

	expr, err = BuildFilterExpression(schema.Filter{
		schema.MetadataKeyFileName:   `a"b.pdf`,
		schema.MetadataKeyDocumentID: "7",
	})
	require.NoError(t, err)
	assert.Equal(t, `document_id == "7" and filename == "a\"b.pdf"`, expr)

	_, err = BuildFilterExpression(schema.Filter{"user_id": "x"})
	assert.Error(t, err)
}
