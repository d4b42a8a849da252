package blobstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"DocQA/backend/go/internal/docqa_service/rag/interfaces"
	"DocQA/backend/go/internal/docqa_service/rag/schema"
	"DocQA/backend/go/internal/models"

	"gorm.io/datatypes"
)

// MemoryStore keeps documents in process memory (databases.blobDriver: memory).
type MemoryStore struct {
	mu     sync.Mutex
	slot   string
	nextID uint
	docs   map[uint]*memoryEntry
	now    func() time.Time
}

type memoryEntry struct {
	doc models.Document
	raw []byte
}

// NewMemoryStore creates an empty store for the given document mode.
func NewMemoryStore(mode string) *MemoryStore {
	return &MemoryStore{slot: slotFor(mode), nextID: 1, docs: make(map[uint]*memoryEntry), now: time.Now}
}

func (s *MemoryStore) Put(ctx context.Context, filename string, raw []byte) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	doc := models.Document{
		Slot:        s.slot,
		Filename:    filename,
		ObjectKey:   ObjectKey(filename),
		ContentType: ContentType(raw),
		Size:        int64(len(raw)),
		Attributes:  datatypes.JSONMap{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if existing := s.findSlot(); existing != nil {
		doc.ID = existing.doc.ID
		doc.CreatedAt = existing.doc.CreatedAt
	} else {
		doc.ID = s.nextID
		s.nextID++
	}
	s.docs[doc.ID] = &memoryEntry{doc: doc, raw: append([]byte(nil), raw...)}
	out := doc
	return &out, nil
}

func (s *MemoryStore) Get(ctx context.Context, id uint) (*models.Document, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.docs[id]
	if !ok {
		return nil, nil, &schema.NotFoundError{DocumentID: models.FormatDocumentID(id)}
	}
	doc := e.doc
	return &doc, append([]byte(nil), e.raw...), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return &schema.NotFoundError{DocumentID: models.FormatDocumentID(id)}
	}
	delete(s.docs, id)
	return nil
}

func (s *MemoryStore) Current(ctx context.Context) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.docs) == 0 {
		return nil, nil
	}
	entries := make([]*memoryEntry, 0, len(s.docs))
	for _, e := range s.docs {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].doc.UpdatedAt.Equal(entries[j].doc.UpdatedAt) {
			return entries[i].doc.UpdatedAt.After(entries[j].doc.UpdatedAt)
		}
		return entries[i].doc.ID > entries[j].doc.ID
	})
	doc := entries[0].doc
	return &doc, nil
}

func (s *MemoryStore) Annotate(ctx context.Context, id uint, attrs map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.docs[id]
	if !ok {
		return &schema.NotFoundError{DocumentID: models.FormatDocumentID(id)}
	}
	merged := datatypes.JSONMap{}
	for k, v := range e.doc.Attributes {
		merged[k] = v
	}
	for k, v := range attrs {
		merged[k] = v
	}
	e.doc.Attributes = merged
	return nil
}

// findSlot 假设已持有锁。
func (s *MemoryStore) findSlot() *memoryEntry {
	if s.slot == "" {
		return nil
	}
	for _, e := range s.docs {
		if e.doc.Slot == s.slot {
			return e
		}
	}
	return nil
}

var _ interfaces.BlobStore = (*MemoryStore)(nil)
