package embedding

import (
	"math/rand"

	"ai-marketplace-be/internal/pkg/logger"
)

// FallbackProvider wraps another provider with the degraded-mode policy:
// when the inner provider fails, it returns a normalized uniformly-random
// vector instead of propagating the error, keeping ingestion and retrieval
// operable through provider outages at the cost of ranking quality. Every
// fallback is logged so the degradation is observable.
type FallbackProvider struct {
	inner     EmbeddingProvider
	dimension int
	logger    logger.ILogger
}

func NewFallbackProvider(inner EmbeddingProvider, dimension int, log logger.ILogger) EmbeddingProvider {
	if dimension <= 0 {
		dimension = 768
	}
	return &FallbackProvider{
		inner:     inner,
		dimension: dimension,
		logger:    log,
	}
}

func (p *FallbackProvider) Generate(text string, taskType string) (*EmbeddingResponse, error) {
	res, err := p.inner.Generate(text, taskType)
	if err == nil {
		return res, nil
	}

	if p.logger != nil {
		p.logger.Warn("embedding", "Provider failed, falling back to random vector", map[string]interface{}{
			"error":     err.Error(),
			"task_type": taskType,
			"text_len":  len(text),
		})
	}

	values := make([]float32, p.dimension)
	for i := range values {
		values[i] = rand.Float32()*2 - 1
	}

	return &EmbeddingResponse{
		Embedding: EmbeddingResponseEmbedding{
			Values: NormalizeVector(values),
		},
	}, nil
}
