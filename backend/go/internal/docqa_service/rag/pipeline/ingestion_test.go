package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"DocQA/backend/go/internal/docqa_service/rag/interfaces"
	"DocQA/backend/go/internal/docqa_service/rag/loaders"
	"DocQA/backend/go/internal/docqa_service/rag/schema"
	"DocQA/backend/go/internal/docqa_service/rag/splitters"
	"DocQA/backend/go/internal/docqa_service/rag/storages/vectorstore"
	"DocQA/backend/go/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	*vectorstore.MemoryStore
	upsertErr error
}

func (s *failingStore) Upsert(ctx context.Context, docs []*schema.Document) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	return s.MemoryStore.Upsert(ctx, docs)
}

func newIngestion(t *testing.T, embedder *fakeEmbedder, store interfaces.VectorStore) *IngestionPipeline {
	t.Helper()
	registry, err := loaders.NewRegistry(loaders.WithScratchDir(t.TempDir()))
	require.NoError(t, err)
	splitter, err := splitters.NewCharacterSplitter(1000, 100)
	require.NoError(t, err)
	return NewIngestionPipeline(registry, splitter, embedder, store, logger.Discard())
}

func TestIngestShortTextWritesOneStampedChunk(t *testing.T) {
	store := vectorstore.NewMemoryStore(testDim)
	p := newIngestion(t, &fakeEmbedder{}, store)

	n, err := p.Ingest(context.Background(), []byte("hello world"), "7", "hello.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, store.Count(schema.DocumentFilter("7")))

	results, err := store.Search(context.Background(), []float32{1, 0, 0, 0}, 79, schema.DocumentFilter("7"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "hello world", results[0].Document.Text)
	assert.Equal(t, "7", results[0].Document.Metadata[schema.MetadataKeyDocumentID])
	assert.Equal(t, "hello.txt", results[0].Document.Metadata[schema.MetadataKeyFileName])
	assert.NotEmpty(t, results[0].Document.ID)
}

func TestIngestLongTextProducesOverlappingChunks(t *testing.T) {
	store := vectorstore.NewMemoryStore(testDim)
	p := newIngestion(t, &fakeEmbedder{}, store)

	n, err := p.Ingest(context.Background(), []byte(strings.Repeat("a", 2500)), "3", "long.txt")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, store.Count(schema.DocumentFilter("3")))
}

func TestIngestEmptyDocumentIsNoop(t *testing.T) {
	store := vectorstore.NewMemoryStore(testDim)
	embedder := &fakeEmbedder{}
	p := newIngestion(t, embedder, store)

	n, err := p.Ingest(context.Background(), []byte("  \n\n  "), "1", "blank.txt")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, embedder.calls)
	assert.Zero(t, store.Count(nil))
}

func TestIngestUnsupportedFormat(t *testing.T) {
	p := newIngestion(t, &fakeEmbedder{}, vectorstore.NewMemoryStore(testDim))

	_, err := p.Ingest(context.Background(), []byte("x"), "1", "image.png")
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrIngestionFailed)
	assert.ErrorIs(t, err, schema.ErrUnsupportedFormat)

	var ie *schema.IngestionError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, schema.StageLoad, ie.Stage)
}

func TestIngestEmbedAndWriteFailures(t *testing.T) {
	boom := errors.New("embedding quota exceeded")
	p := newIngestion(t, &fakeEmbedder{err: boom}, vectorstore.NewMemoryStore(testDim))
	_, err := p.Ingest(context.Background(), []byte("hello"), "1", "a.txt")
	var ie *schema.IngestionError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, schema.StageEmbed, ie.Stage)
	assert.ErrorIs(t, err, boom)

	down := errors.New("milvus unavailable")
	p = newIngestion(t, &fakeEmbedder{}, &failingStore{MemoryStore: vectorstore.NewMemoryStore(testDim), upsertErr: down})
	_, err = p.Ingest(context.Background(), []byte("hello"), "1", "a.txt")
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, schema.StageWrite, ie.Stage)
	assert.ErrorIs(t, err, down)
	assert.ErrorIs(t, err, schema.ErrIngestionFailed)
}

func TestDeleteIsIdempotentAndScoped(t *testing.T) {
	store := vectorstore.NewMemoryStore(testDim)
	p := newIngestion(t, &fakeEmbedder{}, store)
	ctx := context.Background()

	_, err := p.Ingest(ctx, []byte("first"), "1", "a.txt")
	require.NoError(t, err)
	_, err = p.Ingest(ctx, []byte("second"), "2", "b.txt")
	require.NoError(t, err)

	require.NoError(t, p.Delete(ctx, "1"))
	require.NoError(t, p.Delete(ctx, "1"))
	assert.Zero(t, store.Count(schema.DocumentFilter("1")))
	assert.Equal(t, 1, store.Count(schema.DocumentFilter("2")))
}
