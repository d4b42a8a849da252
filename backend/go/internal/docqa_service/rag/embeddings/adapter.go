package embeddings

import (
	"context"
	"fmt"

	"DocQA/backend/go/internal/docqa_service/rag/interfaces"
	"DocQA/backend/go/internal/embedding"
)

// Adapter adapts an embedding.Embedding client to the EmbeddingModel interface.
// Texts are sent in batches of at most batchSize, and every returned vector is
// checked against the configured dimension so a misconfigured model fails fast
// instead of corrupting the index.
type Adapter struct {
	client    embedding.Embedding
	dimension int
	batchSize int
}

// NewAdapter creates a new adapter. batchSize <= 0 means a single request per call.
func NewAdapter(client embedding.Embedding, dimension, batchSize int) (*Adapter, error) {
	if client == nil {
		return nil, fmt.Errorf("embedding client is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dimension)
	}
	return &Adapter{client: client, dimension: dimension, batchSize: batchSize}, nil
}

// Dimension is the vector length every output is checked against.
func (a *Adapter) Dimension() int { return a.dimension }

// Embed embeds texts in input order.
func (a *Adapter) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	size := a.batchSize
	if size <= 0 {
		size = len(texts)
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+size, len(texts))
		vecs, err := a.client.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("embed batch [%d:%d]: expected %d vectors, got %d", start, end, end-start, len(vecs))
		}
		for i, v := range vecs {
			if err := a.checkDim(v); err != nil {
				return nil, fmt.Errorf("text %d: %w", start+i, err)
			}
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// EmbedQuery embeds a single question.
func (a *Adapter) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, err := a.client.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := a.checkDim(v); err != nil {
		return nil, err
	}
	return v, nil
}

func (a *Adapter) checkDim(v []float32) error {
	if len(v) != a.dimension {
		return fmt.Errorf("embedding dimension mismatch: expected %d, got %d", a.dimension, len(v))
	}
	return nil
}

// compile-time check to ensure Adapter implements the EmbeddingModel interface
var _ interfaces.EmbeddingModel = (*Adapter)(nil)
