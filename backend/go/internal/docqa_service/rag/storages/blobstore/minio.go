package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"DocQA/backend/go/internal/docqa_service/rag/dal"
	"DocQA/backend/go/internal/docqa_service/rag/interfaces"
	"DocQA/backend/go/internal/docqa_service/rag/schema"
	"DocQA/backend/go/internal/models"
	"DocQA/backend/go/pkg/logger"

	"github.com/minio/minio-go/v7"
	"gorm.io/datatypes"
)

// MinioStore keeps file bytes in a MinIO bucket and the document rows in MySQL.
type MinioStore struct {
	client *minio.Client
	bucket string
	dal    *dal.DocumentDAL
	slot   string
	log    *logger.Logger
}

// NewMinioStore creates a MinioStore. The bucket must already exist.
func NewMinioStore(client *minio.Client, bucket string, documents *dal.DocumentDAL, mode string, log *logger.Logger) *MinioStore {
	return &MinioStore{client: client, bucket: bucket, dal: documents, slot: slotFor(mode), log: log}
}

// Put uploads the object first and then writes the row, so a row never points at a missing object.
// When a slot is replaced the previous object is removed afterwards on a best-effort basis.
func (s *MinioStore) Put(ctx context.Context, filename string, raw []byte) (*models.Document, error) {
	key := ObjectKey(filename)
	contentType := ContentType(raw)
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(raw), int64(len(raw)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("upload object %s: %w", key, err)
	}

	var existing *models.Document
	if s.slot != "" {
		existing, err = s.dal.FindBySlot(ctx, s.slot)
		if err != nil && !errors.Is(err, dal.ErrDocumentNotFound) {
			s.removeObject(key)
			return nil, err
		}
	}

	doc := &models.Document{
		Slot:        s.slot,
		Filename:    filename,
		ObjectKey:   key,
		ContentType: contentType,
		Size:        int64(len(raw)),
		Attributes:  datatypes.JSONMap{},
	}
	if existing != nil {
		doc.ID, doc.CreatedAt = existing.ID, existing.CreatedAt
		err = s.dal.Save(ctx, doc)
	} else {
		err = s.dal.Create(ctx, doc)
	}
	if err != nil {
		s.removeObject(key)
		return nil, err
	}

	if existing != nil && existing.ObjectKey != key {
		s.removeObject(existing.ObjectKey)
	}
	return doc, nil
}

func (s *MinioStore) Get(ctx context.Context, id uint) (*models.Document, []byte, error) {
	doc, err := s.lookup(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, doc.ObjectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("get object %s: %w", doc.ObjectKey, err)
	}
	defer obj.Close()
	raw, err := io.ReadAll(obj)
	if err != nil {
		return nil, nil, fmt.Errorf("read object %s: %w", doc.ObjectKey, err)
	}
	return doc, raw, nil
}

// Delete removes the row and then the object. A leftover object is logged, not returned.
func (s *MinioStore) Delete(ctx context.Context, id uint) error {
	doc, err := s.lookup(ctx, id)
	if err != nil {
		return err
	}
	if err := s.dal.Delete(ctx, id); err != nil {
		if errors.Is(err, dal.ErrDocumentNotFound) {
			return &schema.NotFoundError{DocumentID: models.FormatDocumentID(id)}
		}
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, doc.ObjectKey, minio.RemoveObjectOptions{}); err != nil {
		s.log.WithError(err).WithField("object_key", doc.ObjectKey).Warn("Failed to remove object of deleted document")
	}
	return nil
}

func (s *MinioStore) Current(ctx context.Context) (*models.Document, error) {
	var (
		doc *models.Document
		err error
	)
	if s.slot != "" {
		doc, err = s.dal.FindBySlot(ctx, s.slot)
	} else {
		doc, err = s.dal.Latest(ctx)
	}
	if errors.Is(err, dal.ErrDocumentNotFound) {
		return nil, nil
	}
	return doc, err
}

func (s *MinioStore) Annotate(ctx context.Context, id uint, attrs map[string]interface{}) error {
	err := s.dal.UpdateAttributes(ctx, id, attrs)
	if errors.Is(err, dal.ErrDocumentNotFound) {
		return &schema.NotFoundError{DocumentID: models.FormatDocumentID(id)}
	}
	return err
}

func (s *MinioStore) lookup(ctx context.Context, id uint) (*models.Document, error) {
	doc, err := s.dal.Get(ctx, id)
	if errors.Is(err, dal.ErrDocumentNotFound) {
		return nil, &schema.NotFoundError{DocumentID: models.FormatDocumentID(id)}
	}
	return doc, err
}

// removeObject 清理孤立对象，失败只记录日志。
func (s *MinioStore) removeObject(key string) {
	if err := s.client.RemoveObject(context.Background(), s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		s.log.WithError(err).WithField("object_key", key).Warn("Failed to remove orphaned object")
	}
}

var _ interfaces.BlobStore = (*MinioStore)(nil)
