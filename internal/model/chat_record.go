package model

import "time"

// ChatRecord is one turn of a conversation about a document.
type ChatRecord struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	DocumentID      uint      `gorm:"not null;index:idx_chat_document_token" json:"document_id"`
	TokenIdentifier string    `gorm:"size:191;not null;index:idx_chat_document_token" json:"token_identifier"`
	Text            string    `gorm:"type:text;not null" json:"text"`
	IsHuman         bool      `gorm:"not null" json:"is_human"`
	CreatedAt       time.Time `json:"created_at"`
}
