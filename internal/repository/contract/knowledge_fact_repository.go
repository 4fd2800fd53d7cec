package contract

import (
	"context"

	"ai-marketplace-be/internal/entity"
	"ai-marketplace-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredKnowledgeFact pairs a fact with its store-computed cosine similarity
type ScoredKnowledgeFact struct {
	Fact       *entity.KnowledgeFact
	Similarity float64
}

// KnowledgeFactRepository is the append-only per-user fact store. Every read
// takes the owning userId as a mandatory argument; there is no unscoped
// query path.
type KnowledgeFactRepository interface {
	Create(ctx context.Context, fact *entity.KnowledgeFact) error
	CreateBulk(ctx context.Context, facts []*entity.KnowledgeFact) error

	FindAll(ctx context.Context, userId uuid.UUID, specs ...specification.Specification) ([]*entity.KnowledgeFact, error)
	Count(ctx context.Context, userId uuid.UUID, specs ...specification.Specification) (int64, error)

	// SearchSimilarWithScore runs a cosine-distance query scoped to userId,
	// returning facts whose similarity meets the threshold, best first.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, userId uuid.UUID, threshold float64) ([]*ScoredKnowledgeFact, error)

	// SearchContaining returns facts whose content contains queryText
	// case-insensitively, regardless of similarity. The embedding is only
	// used to score the matches, never to exclude them. Facts written with
	// a fallback embedding stay reachable through this path.
	SearchContaining(ctx context.Context, queryText string, embedding []float32, limit int, userId uuid.UUID) ([]*ScoredKnowledgeFact, error)

	// TouchAccess bumps access_count and last_accessed_at for facts that
	// a retrieval returned. Bookkeeping only; content stays immutable.
	TouchAccess(ctx context.Context, userId uuid.UUID, ids []uuid.UUID) error

	// DeleteAllByUserId is a test/admin utility, not production behavior.
	DeleteAllByUserId(ctx context.Context, userId uuid.UUID) error
}
