package pipeline

import (
	"context"
	"fmt"

	"DocQA/backend/go/internal/docqa_service/rag/interfaces"
	"DocQA/backend/go/internal/docqa_service/rag/schema"
	"DocQA/backend/go/pkg/logger"

	"github.com/google/uuid"
)

// IngestionPipeline turns an uploaded file into vector records tagged with its document ID.
// Steps run strictly in order: load, split, stamp metadata, embed and write.
type IngestionPipeline struct {
	loader      interfaces.Loader
	splitter    interfaces.Splitter
	embedder    interfaces.EmbeddingModel
	vectorStore interfaces.VectorStore
	log         *logger.Logger
}

// NewIngestionPipeline creates a new IngestionPipeline.
func NewIngestionPipeline(
	loader interfaces.Loader,
	splitter interfaces.Splitter,
	embedder interfaces.EmbeddingModel,
	vectorStore interfaces.VectorStore,
	log *logger.Logger,
) *IngestionPipeline {
	return &IngestionPipeline{
		loader:      loader,
		splitter:    splitter,
		embedder:    embedder,
		vectorStore: vectorStore,
		log:         log,
	}
}

// Ingest loads, splits, embeds and indexes raw, returning the number of vector records written.
// A file without extractable text is a no-op and returns 0 with a nil error.
// Records written before a failure are not rolled back.
func (p *IngestionPipeline) Ingest(ctx context.Context, raw []byte, documentID, filename string) (int, error) {
	log := p.log.WithField("document_id", documentID).WithField("filename", filename)
	fail := func(stage string, err error) (int, error) {
		log.WithError(err).WithField("stage", stage).Error("Ingestion failed")
		return 0, &schema.IngestionError{DocumentID: documentID, Stage: stage, Err: err}
	}

	// 1. Load the data
	units, err := p.loader.Load(ctx, filename, raw)
	if err != nil {
		return fail(schema.StageLoad, err)
	}
	if len(units) == 0 {
		log.Info("Loader produced no text, nothing to ingest")
		return 0, nil
	}

	// 2. Split into chunks
	chunks, err := p.splitter.Split(ctx, units)
	if err != nil {
		return fail(schema.StageSplit, err)
	}
	if len(chunks) == 0 {
		log.Info("Splitter produced no chunks, nothing to ingest")
		return 0, nil
	}
	log.Debug(fmt.Sprintf("Loaded %d text units, split into %d chunks", len(units), len(chunks)))

	// 3. Stamp document metadata on every chunk
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		if chunk.Metadata == nil {
			chunk.Metadata = make(map[string]interface{})
		}
		chunk.Metadata[schema.MetadataKeyDocumentID] = documentID
		chunk.Metadata[schema.MetadataKeyFileName] = filename
		if chunk.ID == "" {
			chunk.ID = uuid.NewString()
		}
		texts[i] = chunk.Text
	}

	// 4. Embed and write in one batch
	embeddings, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return fail(schema.StageEmbed, err)
	}
	if len(embeddings) != len(chunks) {
		return fail(schema.StageEmbed, fmt.Errorf("expected %d embeddings, got %d", len(chunks), len(embeddings)))
	}
	for i, chunk := range chunks {
		chunk.Embedding = embeddings[i]
	}
	if err := p.vectorStore.Upsert(ctx, chunks); err != nil {
		return fail(schema.StageWrite, err)
	}

	log.WithField("chunks", len(chunks)).Info("Document indexed")
	return len(chunks), nil
}

// Delete removes every vector record of the document. Deleting an unknown ID is a no-op.
func (p *IngestionPipeline) Delete(ctx context.Context, documentID string) error {
	if err := p.vectorStore.Delete(ctx, schema.DocumentFilter(documentID)); err != nil {
		return fmt.Errorf("delete vectors of document %s: %w", documentID, err)
	}
	p.log.WithField("document_id", documentID).Debug("Document vectors deleted")
	return nil
}
