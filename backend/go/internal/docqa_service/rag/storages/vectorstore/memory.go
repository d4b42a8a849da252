package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"DocQA/backend/go/internal/docqa_service/rag/interfaces"
	"DocQA/backend/go/internal/docqa_service/rag/schema"
)

// MemoryStore is an in-process VectorStore scored by dot product.
// Used for local development (databases.vectorDriver: memory) and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	dim  int
	docs map[string]*schema.Document
}

// NewMemoryStore creates a store that only accepts vectors of the given dimension.
func NewMemoryStore(dim int) *MemoryStore {
	return &MemoryStore{dim: dim, docs: make(map[string]*schema.Document)}
}

// Upsert stores copies of the documents keyed by ID. The batch is validated first
// so a bad record leaves the store untouched.
func (s *MemoryStore) Upsert(ctx context.Context, docs []*schema.Document) error {
	for _, d := range docs {
		if len(d.Embedding) != s.dim {
			return fmt.Errorf("document %s has embedding dimension %d, store expects %d", d.ID, len(d.Embedding), s.dim)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		s.docs[d.ID] = &schema.Document{
			ID:        d.ID,
			Text:      d.Text,
			Embedding: append([]float32(nil), d.Embedding...),
			Metadata:  schema.CopyMetadata(d.Metadata),
		}
	}
	return nil
}

// Search returns the topK records matching filter, highest dot product first.
func (s *MemoryStore) Search(ctx context.Context, embedding []float32, topK int, filter schema.Filter) ([]schema.SearchResult, error) {
	if len(embedding) != s.dim {
		return nil, fmt.Errorf("query embedding dimension %d, store expects %d", len(embedding), s.dim)
	}
	if topK <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	results := make([]schema.SearchResult, 0, len(s.docs))
	for _, d := range s.docs {
		if !filter.Matches(d.Metadata) {
			continue
		}
		results = append(results, schema.SearchResult{
			Document: &schema.Document{ID: d.ID, Text: d.Text, Metadata: schema.CopyMetadata(d.Metadata)},
			Score:    dot(embedding, d.Embedding),
		})
	}
	s.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].Document.ID < results[j].Document.ID
		}
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Delete removes every record matching filter. An empty filter is refused.
func (s *MemoryStore) Delete(ctx context.Context, filter schema.Filter) error {
	if len(filter) == 0 {
		return fmt.Errorf("refusing to delete with an empty filter")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, d := range s.docs {
		if filter.Matches(d.Metadata) {
			delete(s.docs, id)
		}
	}
	return nil
}

// Count returns the number of records matching filter.
func (s *MemoryStore) Count(filter schema.Filter) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, d := range s.docs {
		if filter.Matches(d.Metadata) {
			n++
		}
	}
	return n
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

var _ interfaces.VectorStore = (*MemoryStore)(nil)
