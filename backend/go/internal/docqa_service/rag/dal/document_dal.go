package dal

import (
	"context"
	"errors"
	"fmt"

	"DocQA/backend/go/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrDocumentNotFound is returned when no row matches.
var ErrDocumentNotFound = errors.New("document row not found")

// DocumentDAL provides data access methods for uploaded documents.
type DocumentDAL struct {
	db *gorm.DB
}

// NewDocumentDAL creates a new DocumentDAL.
func NewDocumentDAL(db *gorm.DB) *DocumentDAL {
	return &DocumentDAL{db: db}
}

// AutoMigrate creates or updates the documents table.
func (dal *DocumentDAL) AutoMigrate(ctx context.Context) error {
	return dal.db.WithContext(ctx).AutoMigrate(&models.Document{})
}

// Create inserts a new document row and fills in its ID.
func (dal *DocumentDAL) Create(ctx context.Context, doc *models.Document) error {
	if err := dal.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("create document row: %w", err)
	}
	return nil
}

// Save updates every column of an existing row.
func (dal *DocumentDAL) Save(ctx context.Context, doc *models.Document) error {
	if err := dal.db.WithContext(ctx).Save(doc).Error; err != nil {
		return fmt.Errorf("save document %d: %w", doc.ID, err)
	}
	return nil
}

// Get retrieves a document by ID.
func (dal *DocumentDAL) Get(ctx context.Context, id uint) (*models.Document, error) {
	var doc models.Document
	return dal.first(dal.db.WithContext(ctx).Where("id = ?", id), &doc)
}

// FindBySlot retrieves the document occupying a slot.
func (dal *DocumentDAL) FindBySlot(ctx context.Context, slot string) (*models.Document, error) {
	var doc models.Document
	return dal.first(dal.db.WithContext(ctx).Where("slot = ?", slot), &doc)
}

// Latest retrieves the most recently updated document.
func (dal *DocumentDAL) Latest(ctx context.Context) (*models.Document, error) {
	var doc models.Document
	return dal.first(dal.db.WithContext(ctx).Order("updated_at DESC").Order("id DESC"), &doc)
}

// UpdateAttributes merges attrs into the row's attributes column.
func (dal *DocumentDAL) UpdateAttributes(ctx context.Context, id uint, attrs map[string]interface{}) error {
	doc, err := dal.Get(ctx, id)
	if err != nil {
		return err
	}
	merged := datatypes.JSONMap{}
	for k, v := range doc.Attributes {
		merged[k] = v
	}
	for k, v := range attrs {
		merged[k] = v
	}
	result := dal.db.WithContext(ctx).Model(&models.Document{}).Where("id = ?", id).Update("attributes", merged)
	if result.Error != nil {
		return fmt.Errorf("update attributes of document %d: %w", id, result.Error)
	}
	return nil
}

// Delete deletes a document row by its ID.
func (dal *DocumentDAL) Delete(ctx context.Context, id uint) error {
	result := dal.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Document{})
	if result.Error != nil {
		return fmt.Errorf("delete document %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func (dal *DocumentDAL) first(q *gorm.DB, doc *models.Document) (*models.Document, error) {
	if err := q.First(doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}
