package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"ai-marketplace-be/internal/entity"
	"ai-marketplace-be/internal/repository/contract"
	"ai-marketplace-be/internal/repository/specification"

	"github.com/google/uuid"
)

// FactStore is an in-memory KnowledgeFactRepository backed by a per-user
// partitioned map with brute-force cosine scan. It backs unit tests and the
// ragcheck diagnostic CLI; the pgvector implementation is the production
// store. Specification filters are not supported by FindAll here.
type FactStore struct {
	mu    sync.RWMutex
	facts map[uuid.UUID][]*entity.KnowledgeFact // keyed by userId
}

var _ contract.KnowledgeFactRepository = &FactStore{}

func NewFactStore() *FactStore {
	return &FactStore{
		facts: make(map[uuid.UUID][]*entity.KnowledgeFact),
	}
}

func (s *FactStore) Create(ctx context.Context, fact *entity.KnowledgeFact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *fact
	if stored.Id == uuid.Nil {
		stored.Id = uuid.New()
	}
	now := time.Now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}
	if stored.LastAccessedAt.IsZero() {
		stored.LastAccessedAt = stored.CreatedAt
	}
	s.facts[stored.UserId] = append(s.facts[stored.UserId], &stored)
	*fact = stored
	return nil
}

func (s *FactStore) CreateBulk(ctx context.Context, facts []*entity.KnowledgeFact) error {
	for _, f := range facts {
		if err := s.Create(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

func (s *FactStore) FindAll(ctx context.Context, userId uuid.UUID, specs ...specification.Specification) ([]*entity.KnowledgeFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owned := s.facts[userId]
	result := make([]*entity.KnowledgeFact, len(owned))
	for i, f := range owned {
		clone := *f
		result[i] = &clone
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *FactStore) Count(ctx context.Context, userId uuid.UUID, specs ...specification.Specification) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.facts[userId])), nil
}

func (s *FactStore) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, userId uuid.UUID, threshold float64) ([]*contract.ScoredKnowledgeFact, error) {
	if limit <= 0 {
		limit = 6
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var scored []*contract.ScoredKnowledgeFact
	for _, f := range s.facts[userId] {
		sim := CosineSimilarity(embedding, f.Embedding)
		if sim < threshold {
			continue
		}
		clone := *f
		scored = append(scored, &contract.ScoredKnowledgeFact{
			Fact:       &clone,
			Similarity: sim,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// SearchContaining returns lexical matches with no similarity cutoff; the
// embedding only provides the score.
func (s *FactStore) SearchContaining(ctx context.Context, queryText string, embedding []float32, limit int, userId uuid.UUID) ([]*contract.ScoredKnowledgeFact, error) {
	if limit <= 0 {
		limit = 6
	}
	needle := strings.ToLower(queryText)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var scored []*contract.ScoredKnowledgeFact
	for _, f := range s.facts[userId] {
		if !strings.Contains(strings.ToLower(f.Content), needle) {
			continue
		}
		clone := *f
		scored = append(scored, &contract.ScoredKnowledgeFact{
			Fact:       &clone,
			Similarity: CosineSimilarity(embedding, f.Embedding),
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (s *FactStore) TouchAccess(ctx context.Context, userId uuid.UUID, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	now := time.Now()
	for _, f := range s.facts[userId] {
		if wanted[f.Id] {
			f.AccessCount++
			f.LastAccessedAt = now
		}
	}
	return nil
}

func (s *FactStore) DeleteAllByUserId(ctx context.Context, userId uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.facts, userId)
	return nil
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Returns 0 for mismatched or zero-magnitude inputs.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
