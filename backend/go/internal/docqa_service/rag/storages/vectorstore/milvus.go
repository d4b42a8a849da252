package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"DocQA/backend/go/internal/database/milvus"
	"DocQA/backend/go/internal/docqa_service/rag/interfaces"
	"DocQA/backend/go/internal/docqa_service/rag/schema"
	"DocQA/backend/go/pkg/logger"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// filterableFields maps metadata keys accepted in filters to Milvus scalar fields.
var filterableFields = map[string]string{
	schema.MetadataKeyDocumentID: milvus.FieldDocumentID,
	schema.MetadataKeyFileName:   milvus.FieldFileName,
}

// MilvusStore implements VectorStore on a Milvus collection created by MilvusClient.EnsureCollection.
type MilvusStore struct {
	log    *logger.Logger
	mc     *milvus.MilvusClient
	client client.Client
}

// NewMilvusStore creates a new MilvusStore adapter.
func NewMilvusStore(mc *milvus.MilvusClient, log *logger.Logger) (*MilvusStore, error) {
	if mc == nil || mc.Client == nil {
		return nil, fmt.Errorf("milvus client is not initialized")
	}
	return &MilvusStore{log: log, mc: mc, client: mc.Client}, nil
}

func (s *MilvusStore) collection() string { return s.mc.Config.CollectionName }

// Upsert writes all documents in a single request.
func (s *MilvusStore) Upsert(ctx context.Context, docs []*schema.Document) error {
	if len(docs) == 0 {
		return nil
	}

	ids := make([]string, len(docs))
	texts := make([]string, len(docs))
	docIDs := make([]string, len(docs))
	fileNames := make([]string, len(docs))
	pages := make([]int64, len(docs))
	embeddings := make([][]float32, len(docs))

	for i, doc := range docs {
		if len(doc.Embedding) != s.mc.Dimension {
			return fmt.Errorf("document %s has embedding dimension %d, collection expects %d", doc.ID, len(doc.Embedding), s.mc.Dimension)
		}
		ids[i] = doc.ID
		texts[i] = doc.Text
		embeddings[i] = doc.Embedding
		docIDs[i], _ = doc.Metadata[schema.MetadataKeyDocumentID].(string)
		fileNames[i], _ = doc.Metadata[schema.MetadataKeyFileName].(string)
		if p, ok := doc.Metadata[schema.MetadataKeyPage].(int); ok {
			pages[i] = int64(p)
		}
	}

	s.log.Debug(fmt.Sprintf("Upserting %d chunks into Milvus collection: %s", len(docs), s.collection()))
	_, err := s.client.Upsert(ctx, s.collection(), "",
		entity.NewColumnVarChar(milvus.FieldID, ids),
		entity.NewColumnVarChar(milvus.FieldText, texts),
		entity.NewColumnVarChar(milvus.FieldDocumentID, docIDs),
		entity.NewColumnVarChar(milvus.FieldFileName, fileNames),
		entity.NewColumnInt64(milvus.FieldPage, pages),
		entity.NewColumnFloatVector(milvus.FieldEmbedding, s.mc.Dimension, embeddings),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert data into Milvus: %w", err)
	}
	return nil
}

// Search performs a vector search with optional metadata filtering.
func (s *MilvusStore) Search(ctx context.Context, embedding []float32, topK int, filter schema.Filter) ([]schema.SearchResult, error) {
	expr, err := BuildFilterExpression(filter)
	if err != nil {
		return nil, err
	}
	sp, err := milvus.BuildSearchParam(s.mc.Config.Index, topK)
	if err != nil {
		return nil, err
	}

	s.log.Debug(fmt.Sprintf("Querying Milvus collection '%s' with filter: '%s'", s.collection(), expr))
	searchResults, err := s.client.Search(
		ctx, s.collection(), []string{}, expr,
		[]string{milvus.FieldText, milvus.FieldDocumentID, milvus.FieldFileName, milvus.FieldPage},
		[]entity.Vector{entity.FloatVector(embedding)},
		milvus.FieldEmbedding, milvus.MetricType, topK, sp,
		client.WithSearchQueryConsistencyLevel(entity.ClStrong),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search in Milvus: %w", err)
	}

	var results []schema.SearchResult
	for _, res := range searchResults {
		if res.Err != nil {
			return nil, fmt.Errorf("milvus search result error: %w", res.Err)
		}
		findColumn := func(name string) entity.Column {
			for _, field := range res.Fields {
				if field.Name() == name {
					return field
				}
			}
			return nil
		}

		idCol, ok := res.IDs.(*entity.ColumnVarChar)
		if !ok {
			return nil, fmt.Errorf("unexpected milvus id column type %T", res.IDs)
		}
		textCol, ok := findColumn(milvus.FieldText).(*entity.ColumnVarChar)
		if !ok {
			return nil, fmt.Errorf("milvus search result is missing field %q", milvus.FieldText)
		}
		var docIDData, fileData []string
		var pageData []int64
		if c, ok := findColumn(milvus.FieldDocumentID).(*entity.ColumnVarChar); ok {
			docIDData = c.Data()
		}
		if c, ok := findColumn(milvus.FieldFileName).(*entity.ColumnVarChar); ok {
			fileData = c.Data()
		}
		if c, ok := findColumn(milvus.FieldPage).(*entity.ColumnInt64); ok {
			pageData = c.Data()
		}

		ids, texts := idCol.Data(), textCol.Data()
		for i := 0; i < res.ResultCount; i++ {
			md := map[string]interface{}{}
			if docIDData != nil {
				md[schema.MetadataKeyDocumentID] = docIDData[i]
			}
			if fileData != nil {
				md[schema.MetadataKeyFileName] = fileData[i]
			}
			if pageData != nil && pageData[i] > 0 {
				md[schema.MetadataKeyPage] = int(pageData[i])
			}
			results = append(results, schema.SearchResult{
				Document: &schema.Document{ID: ids[i], Text: texts[i], Metadata: md},
				Score:    res.Scores[i],
			})
		}
	}
	return results, nil
}

// Delete removes all records matching the filter. An empty filter is refused so a bug
// can never wipe the collection.
func (s *MilvusStore) Delete(ctx context.Context, filter schema.Filter) error {
	if len(filter) == 0 {
		return fmt.Errorf("refusing to delete with an empty filter")
	}
	expr, err := BuildFilterExpression(filter)
	if err != nil {
		return err
	}
	s.log.Debug(fmt.Sprintf("Deleting from Milvus collection '%s' where %s", s.collection(), expr))
	if err := s.client.Delete(ctx, s.collection(), "", expr); err != nil {
		return fmt.Errorf("failed to delete data from Milvus: %w", err)
	}
	return nil
}

// BuildFilterExpression creates a Milvus boolean expression from an equality filter.
// Keys are emitted in sorted order; values are quoted and escaped.
func BuildFilterExpression(filter schema.Filter) (string, error) {
	if len(filter) == 0 {
		return "", nil
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conditions := make([]string, 0, len(keys))
	for _, k := range keys {
		field, ok := filterableFields[k]
		if !ok {
			return "", fmt.Errorf("metadata key %q is not filterable", k)
		}
		conditions = append(conditions, fmt.Sprintf("%s == %s", field, strconv.Quote(filter[k])))
	}
	return strings.Join(conditions, " and "), nil
}

// compile-time check to ensure MilvusStore implements the VectorStore interface
var _ interfaces.VectorStore = (*MilvusStore)(nil)
