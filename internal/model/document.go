package model

import (
	"encoding/json"
	"time"
)

// Document is an uploaded file plus its generated description and embedding.
// Description and Embedding are filled in asynchronously after creation.
type Document struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Title           string    `gorm:"size:256;not null" json:"title"`
	TokenIdentifier string    `gorm:"size:191;not null;index" json:"token_identifier"`
	FileID          string    `gorm:"size:64;not null;index" json:"file_id"`
	ContentType     string    `gorm:"size:128" json:"content_type,omitempty"`
	Filename        string    `gorm:"size:256" json:"filename,omitempty"`
	Description     string    `gorm:"type:text" json:"description"`
	Embedding       string    `gorm:"type:text" json:"-"` // JSON array of float32
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EmbeddingVector returns the parsed embedding slice; empty on parse error.
func (d *Document) EmbeddingVector() []float32 {
	if d.Embedding == "" {
		return nil
	}
	var v []float32
	_ = json.Unmarshal([]byte(d.Embedding), &v)
	return v
}

func (d *Document) HasEmbedding() bool {
	return len(d.EmbeddingVector()) > 0
}

// SourceName is the name used to guess the stored file's format: the original
// file name when one was given, otherwise the title.
func (d *Document) SourceName() string {
	if d.Filename != "" {
		return d.Filename
	}
	return d.Title
}

func EncodeEmbedding(vec []float32) string {
	if len(vec) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(vec)
	return string(b)
}

// DescriptionJob is the payload of the one-shot description task scheduled
// after a document is created.
type DescriptionJob struct {
	DocumentID uint   `json:"document_id"`
	FileID     string `json:"file_id"`
}
