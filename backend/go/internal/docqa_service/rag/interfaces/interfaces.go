package interfaces

import (
	"context"

	"DocQA/backend/go/internal/docqa_service/rag/schema"
	"DocQA/backend/go/internal/models"
)

// Loader converts the raw bytes of an uploaded file into text units.
// The filename is used for format dispatch and metadata only; raw is never modified.
type Loader interface {
	Load(ctx context.Context, filename string, raw []byte) ([]*schema.Document, error)
}

// Splitter is the interface for splitting a list of Documents into smaller chunks.
type Splitter interface {
	Split(ctx context.Context, docs []*schema.Document) ([]*schema.Document, error)
}

// VectorStore is the interface for storing, querying and deleting document vectors.
type VectorStore interface {
	// Upsert writes all records in one logical batch. Every doc must carry an Embedding.
	Upsert(ctx context.Context, docs []*schema.Document) error
	// Search returns at most topK records ordered by descending similarity.
	Search(ctx context.Context, embedding []float32, topK int, filter schema.Filter) ([]schema.SearchResult, error)
	// Delete removes every record matching the filter. Zero matches is not an error.
	Delete(ctx context.Context, filter schema.Filter) error
}

// EmbeddingModel is the interface for a text embedding model.
// Output vectors are in input order and all have the same dimension.
type EmbeddingModel interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery embeds a single user question with the same model used for documents.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// FragmentStream is an open streaming generation. Recv returns io.EOF once the model is done.
// Close releases the upstream connection and is safe to call more than once.
type FragmentStream interface {
	Recv() (string, error)
	Close() error
}

// ChatModel opens streaming chat completions.
type ChatModel interface {
	StreamChat(ctx context.Context, req *models.ChatRequest) (FragmentStream, error)
}

// BlobStore keeps the original bytes of uploaded documents together with their record.
// In single-slot mode Put replaces the stored document and reuses its ID.
type BlobStore interface {
	Put(ctx context.Context, filename string, raw []byte) (*models.Document, error)
	// Get returns *schema.NotFoundError when the ID is unknown.
	Get(ctx context.Context, id uint) (*models.Document, []byte, error)
	// Delete returns *schema.NotFoundError when the ID is unknown.
	Delete(ctx context.Context, id uint) error
	// Current returns the most recently stored document, or nil when the store is empty.
	Current(ctx context.Context) (*models.Document, error)
	// Annotate merges attrs into the document's attributes.
	Annotate(ctx context.Context, id uint, attrs map[string]interface{}) error
}
