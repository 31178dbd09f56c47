package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherai-docchat/internal/model"
	"gopherai-docchat/internal/vector"
)

type stubDocuments []model.Document

func (s stubDocuments) ListWithEmbedding() ([]model.Document, error) {
	return s, nil
}

func TestWarmIndex(t *testing.T) {
	idx, err := vector.NewIndex()
	require.NoError(t, err)

	docs := stubDocuments{
		{ID: 1, TokenIdentifier: "docchat|1", Title: "a", Embedding: model.EncodeEmbedding([]float32{1, 0})},
		{ID: 2, TokenIdentifier: "docchat|2", Title: "b", Embedding: model.EncodeEmbedding([]float32{0, 1})},
		{ID: 3, TokenIdentifier: "docchat|2", Title: "c", Embedding: "null"},
	}
	require.NoError(t, warmIndex(context.Background(), idx, docs))
	assert.Equal(t, 2, idx.Count())

	matches, err := idx.Search(context.Background(), "docchat|2", []float32{0, 1}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, uint(2), matches[0].DocumentID)
}
