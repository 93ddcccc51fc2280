package vectorstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	vecs [][]float32
	err  error
}

func (s stubEmbedder) EmbedTexts(context.Context, []string) ([][]float32, error) {
	return s.vecs, s.err
}

func TestSearchEmbedderErrorWrapped(t *testing.T) {
	cause := errors.New("quota exceeded")
	store := NewPgVectorStore(nil, stubEmbedder{err: cause})

	_, err := store.Search(context.Background(), "q", 3, 20, 0.5)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
}

func TestSearchEmbedderEmptyResult(t *testing.T) {
	store := NewPgVectorStore(nil, stubEmbedder{})

	_, err := store.Search(context.Background(), "q", 3, 20, 0.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no vector")
	assert.NotContains(t, err.Error(), "%!w")
}

func TestSearchRejectsInvalidK(t *testing.T) {
	store := NewPgVectorStore(nil, stubEmbedder{})

	_, err := store.Search(context.Background(), "q", 0, 20, 0.5)
	assert.Error(t, err)

	_, err = store.Search(context.Background(), "q", 5, 3, 0.5)
	assert.Error(t, err)
}
