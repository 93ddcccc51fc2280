package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}

func TestMMR_PureRelevance(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{
		{1, 0},        // identical to query
		{0.9, 0.1},    // close
		{0, 1},        // orthogonal
	}
	picked := maximalMarginalRelevance(query, candidates, 1.0, 2)
	require.Len(t, picked, 2)
	assert.Equal(t, 0, picked[0])
	assert.Equal(t, 1, picked[1])
}

func TestMMR_DiversityPenalizesNearDuplicates(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{
		{1, 0},       // best match
		{0.999, 0.01}, // near duplicate of the best match
		{0.5, 0.5},   // less relevant but different
	}
	picked := maximalMarginalRelevance(query, candidates, 0.5, 2)
	require.Len(t, picked, 2)
	assert.Equal(t, 0, picked[0])
	// with diversity weighting the distinct candidate beats the duplicate
	assert.Equal(t, 2, picked[1])
}

func TestMMR_KLargerThanCandidates(t *testing.T) {
	picked := maximalMarginalRelevance([]float32{1}, [][]float32{{1}, {0.5}}, 0.5, 10)
	assert.Len(t, picked, 2)
}

func TestMMR_Empty(t *testing.T) {
	assert.Nil(t, maximalMarginalRelevance([]float32{1}, nil, 0.5, 3))
}
