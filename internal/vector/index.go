// Package vector keeps an in-memory similarity index over document
// descriptions.
package vector

import (
	"context"
	"fmt"
	"strconv"

	"github.com/philippgille/chromem-go"
)

const (
	collectionName = "documents"
	metaToken      = "token_identifier"
	metaTitle      = "title"
)

type Entry struct {
	DocumentID      uint
	TokenIdentifier string
	Title           string
	Description     string
	Embedding       []float32
}

type Match struct {
	DocumentID uint
	Title      string
	Similarity float32
}

type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
}

func NewIndex() (*Index, error) {
	db := chromem.NewDB()
	// Embeddings are always supplied by the caller, so no embedding func is needed.
	c, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create vector collection failed: %w", err)
	}
	return &Index{db: db, collection: c}, nil
}

// Upsert replaces any existing entry for the same document.
func (i *Index) Upsert(ctx context.Context, e Entry) error {
	if len(e.Embedding) == 0 {
		return nil
	}
	doc := chromem.Document{
		ID:        docID(e.DocumentID),
		Content:   e.Title + "\n" + e.Description,
		Metadata:  map[string]string{metaToken: e.TokenIdentifier, metaTitle: e.Title},
		Embedding: e.Embedding,
	}
	if err := i.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("upsert vector entry failed: %w", err)
	}
	return nil
}

func (i *Index) Delete(ctx context.Context, documentID uint) error {
	if err := i.collection.Delete(ctx, nil, nil, docID(documentID)); err != nil {
		return fmt.Errorf("delete vector entry failed: %w", err)
	}
	return nil
}

// Search returns at most limit entries owned by tokenIdentifier, most similar
// first.
func (i *Index) Search(ctx context.Context, tokenIdentifier string, query []float32, limit int) ([]Match, error) {
	if limit <= 0 || len(query) == 0 {
		return nil, nil
	}
	total := i.collection.Count()
	if total == 0 {
		return nil, nil
	}
	if limit > total {
		limit = total
	}

	results, err := i.collection.QueryEmbedding(ctx, query, limit, map[string]string{metaToken: tokenIdentifier}, nil)
	if err != nil {
		return nil, fmt.Errorf("query vector index failed: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		id, err := strconv.ParseUint(r.ID, 10, 64)
		if err != nil {
			continue
		}
		matches = append(matches, Match{
			DocumentID: uint(id),
			Title:      r.Metadata[metaTitle],
			Similarity: r.Similarity,
		})
	}
	return matches, nil
}

func (i *Index) Count() int {
	return i.collection.Count()
}

func docID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
