package history

import (
	"context"
	"sync"

	"DocQA/backend/go/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store defines the interface for query history persistence.
type Store interface {
	Record(ctx context.Context, rec *models.QueryRecord) error
	// Recent returns the newest records first. An empty documentID matches all records.
	Recent(ctx context.Context, documentID string, limit int) ([]*models.QueryRecord, error)
}

// MongoStore is an implementation of Store using MongoDB.
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore creates a new MongoStore.
func NewMongoStore(db *mongo.Database, collectionName string) *MongoStore {
	return &MongoStore{
		collection: db.Collection(collectionName),
	}
}

// EnsureIndexes creates the index used by Recent.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "document_id", Value: 1}, {Key: "started_at", Value: -1}},
	})
	return err
}

// Record inserts a new query record into the database.
func (s *MongoStore) Record(ctx context.Context, rec *models.QueryRecord) error {
	_, err := s.collection.InsertOne(ctx, rec)
	return err
}

// Recent retrieves the latest records, optionally for one document.
func (s *MongoStore) Recent(ctx context.Context, documentID string, limit int) ([]*models.QueryRecord, error) {
	var records []*models.QueryRecord
	opts := options.Find()
	opts.SetSort(bson.D{{Key: "started_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	filter := bson.M{}
	if documentID != "" {
		filter["document_id"] = documentID
	}
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// MemoryStore keeps the last records in memory; used when MongoDB is not configured.
type MemoryStore struct {
	mu      sync.Mutex
	max     int
	records []*models.QueryRecord
}

// NewMemoryStore keeps at most max records (max <= 0 means 100).
func NewMemoryStore(max int) *MemoryStore {
	if max <= 0 {
		max = 100
	}
	return &MemoryStore{max: max}
}

func (s *MemoryStore) Record(_ context.Context, rec *models.QueryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.records = append(s.records, &cp)
	if over := len(s.records) - s.max; over > 0 {
		s.records = s.records[over:]
	}
	return nil
}

func (s *MemoryStore) Recent(_ context.Context, documentID string, limit int) ([]*models.QueryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.QueryRecord
	for i := len(s.records) - 1; i >= 0; i-- {
		r := s.records[i]
		if documentID != "" && r.DocumentID != documentID {
			continue
		}
		cp := *r
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
