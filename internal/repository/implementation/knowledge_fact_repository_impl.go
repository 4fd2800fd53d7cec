package implementation

import (
	"context"
	"strings"
	"time"

	"ai-marketplace-be/internal/entity"
	"ai-marketplace-be/internal/mapper"
	"ai-marketplace-be/internal/model"
	"ai-marketplace-be/internal/repository/contract"
	"ai-marketplace-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type KnowledgeFactRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.KnowledgeFactMapper
}

func NewKnowledgeFactRepository(db *gorm.DB) contract.KnowledgeFactRepository {
	return &KnowledgeFactRepositoryImpl{
		db:     db,
		mapper: mapper.NewKnowledgeFactMapper(),
	}
}

func (r *KnowledgeFactRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *KnowledgeFactRepositoryImpl) Create(ctx context.Context, fact *entity.KnowledgeFact) error {
	m := r.mapper.ToModel(fact)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*fact = *r.mapper.ToEntity(m)
	return nil
}

func (r *KnowledgeFactRepositoryImpl) CreateBulk(ctx context.Context, facts []*entity.KnowledgeFact) error {
	models := make([]*model.KnowledgeFact, len(facts))
	for i, f := range facts {
		models[i] = r.mapper.ToModel(f)
	}

	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}

	for i, m := range models {
		*facts[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *KnowledgeFactRepositoryImpl) FindAll(ctx context.Context, userId uuid.UUID, specs ...specification.Specification) ([]*entity.KnowledgeFact, error) {
	var models []*model.KnowledgeFact
	query := r.db.WithContext(ctx).Where("user_id = ?", userId)
	query = r.applySpecifications(query, specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *KnowledgeFactRepositoryImpl) Count(ctx context.Context, userId uuid.UUID, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Where("user_id = ?", userId)
	query = r.applySpecifications(query, specs...)
	err := query.Model(&model.KnowledgeFact{}).Count(&count).Error
	return count, err
}

// SearchSimilarWithScore returns facts with similarity scores, filtered by threshold.
// Cosine distance in pgvector is: 1 - cosine_similarity, so we compute
// 1 - (embedding <=> query_vector) = cosine_similarity.
func (r *KnowledgeFactRepositoryImpl) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, userId uuid.UUID, threshold float64) ([]*contract.ScoredKnowledgeFact, error) {
	if limit <= 0 {
		limit = 6
	}

	type result struct {
		model.KnowledgeFact
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("knowledge_facts").
		Select("knowledge_facts.*, 1 - (embedding <=> ?) as similarity", queryVector).
		Where("user_id = ?", userId).
		Where("1 - (embedding <=> ?) >= ?", queryVector, threshold).
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error

	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredKnowledgeFact, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredKnowledgeFact{
			Fact:       r.mapper.ToEntity(&res.KnowledgeFact),
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}

// SearchContaining fetches lexical matches without any similarity cutoff.
// The retriever unions these with the vector candidates so facts whose
// embedding is unusable (fallback vectors) still reach the ranker.
func (r *KnowledgeFactRepositoryImpl) SearchContaining(ctx context.Context, queryText string, embedding []float32, limit int, userId uuid.UUID) ([]*contract.ScoredKnowledgeFact, error) {
	if limit <= 0 {
		limit = 6
	}

	type result struct {
		model.KnowledgeFact
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)
	pattern := "%" + escapeLikePattern(queryText) + "%"

	err := r.db.WithContext(ctx).
		Table("knowledge_facts").
		Select("knowledge_facts.*, 1 - (embedding <=> ?) as similarity", queryVector).
		Where("user_id = ?", userId).
		Where("content ILIKE ?", pattern).
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error

	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredKnowledgeFact, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredKnowledgeFact{
			Fact:       r.mapper.ToEntity(&res.KnowledgeFact),
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}

// escapeLikePattern makes queryText a literal inside an ILIKE pattern.
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

func (r *KnowledgeFactRepositoryImpl) TouchAccess(ctx context.Context, userId uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.KnowledgeFact{}).
		Where("user_id = ?", userId).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"access_count":     gorm.Expr("access_count + 1"),
			"last_accessed_at": time.Now(),
		}).Error
}

func (r *KnowledgeFactRepositoryImpl) DeleteAllByUserId(ctx context.Context, userId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userId).Delete(&model.KnowledgeFact{}).Error
}
