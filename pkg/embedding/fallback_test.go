package embedding

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

type failingProvider struct{}

func (failingProvider) Generate(text string, taskType string) (*EmbeddingResponse, error) {
	return nil, fmt.Errorf("provider unavailable")
}

type fixedProvider struct {
	values []float32
}

func (p fixedProvider) Generate(text string, taskType string) (*EmbeddingResponse, error) {
	return &EmbeddingResponse{
		Embedding: EmbeddingResponseEmbedding{Values: p.values},
	}, nil
}

func TestFallbackProviderRecoversFromFailure(t *testing.T) {
	provider := NewFallbackProvider(failingProvider{}, 768, nil)

	res, err := provider.Generate("I live in San Francisco", TaskRetrievalDocument)
	assert.NoError(t, err)
	assert.Len(t, res.Embedding.Values, 768)

	// Fallback vectors must be unit length so cosine distance stays sane
	var magnitude float64
	for _, v := range res.Embedding.Values {
		magnitude += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(magnitude), 1e-4)
}

func TestFallbackProviderPassesThroughSuccess(t *testing.T) {
	want := []float32{0.6, 0.8}
	provider := NewFallbackProvider(fixedProvider{values: want}, 768, nil)

	res, err := provider.Generate("hello", TaskRetrievalQuery)
	assert.NoError(t, err)
	assert.Equal(t, want, res.Embedding.Values)
}

func TestNormalizeVector(t *testing.T) {
	got := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, float64(got[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(got[1]), 1e-6)

	// Zero vector passes through untouched
	zero := NormalizeVector([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
}
