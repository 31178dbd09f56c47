package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"gopherai-docchat/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(doc *model.Document) error {
	if err := r.db.Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

// GetByID returns nil, nil when the document does not exist.
func (r *DocumentRepository) GetByID(id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) ListByTokenIdentifier(tokenIdentifier string) ([]model.Document, error) {
	var list []model.Document
	if err := r.db.Where("token_identifier = ?", tokenIdentifier).Order("id ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return list, nil
}

// ListWithEmbedding returns every document whose description has been embedded.
func (r *DocumentRepository) ListWithEmbedding() ([]model.Document, error) {
	var list []model.Document
	if err := r.db.Where("embedding IS NOT NULL AND embedding <> '' AND embedding <> '[]'").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list embedded documents failed: %w", err)
	}
	return list, nil
}

// UpdateDescription patches description and embedding. It reports false when
// the document no longer exists.
func (r *DocumentRepository) UpdateDescription(id uint, description string, embedding []float32) (bool, error) {
	result := r.db.Model(&model.Document{}).Where("id = ?", id).Updates(map[string]interface{}{
		"description": description,
		"embedding":   model.EncodeEmbedding(embedding),
	})
	if result.Error != nil {
		return false, fmt.Errorf("update document description failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Delete removes the document and its chat records in one transaction.
func (r *DocumentRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.Document{}, id).Error; err != nil {
			return fmt.Errorf("delete document failed: %w", err)
		}
		return NewChatRecordRepository(tx).DeleteByDocumentID(id)
	})
}
