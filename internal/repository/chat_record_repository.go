package repository

import (
	"fmt"

	"gorm.io/gorm"

	"gopherai-docchat/internal/model"
)

type ChatRecordRepository struct {
	db *gorm.DB
}

func NewChatRecordRepository(db *gorm.DB) *ChatRecordRepository {
	return &ChatRecordRepository{db: db}
}

func (r *ChatRecordRepository) Create(record *model.ChatRecord) error {
	if err := r.db.Create(record).Error; err != nil {
		return fmt.Errorf("create chat record failed: %w", err)
	}
	return nil
}

// ListByDocumentAndToken returns records in insertion order.
func (r *ChatRecordRepository) ListByDocumentAndToken(documentID uint, tokenIdentifier string) ([]model.ChatRecord, error) {
	var records []model.ChatRecord
	if err := r.db.
		Where("document_id = ? AND token_identifier = ?", documentID, tokenIdentifier).
		Order("id ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list chat records failed: %w", err)
	}
	return records, nil
}

func (r *ChatRecordRepository) DeleteByDocumentID(documentID uint) error {
	if err := r.db.Where("document_id = ?", documentID).Delete(&model.ChatRecord{}).Error; err != nil {
		return fmt.Errorf("delete chat records by document failed: %w", err)
	}
	return nil
}
