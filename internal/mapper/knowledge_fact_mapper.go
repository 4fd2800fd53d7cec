package mapper

import (
	"encoding/json"

	"ai-marketplace-be/internal/entity"
	"ai-marketplace-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type KnowledgeFactMapper struct{}

func NewKnowledgeFactMapper() *KnowledgeFactMapper {
	return &KnowledgeFactMapper{}
}

func (m *KnowledgeFactMapper) ToEntity(f *model.KnowledgeFact) *entity.KnowledgeFact {
	if f == nil {
		return nil
	}

	var topics []string
	if len(f.Topics) > 0 {
		// Topics are optional derived annotations; a malformed column is
		// treated as absent rather than failing the read.
		_ = json.Unmarshal(f.Topics, &topics)
	}

	return &entity.KnowledgeFact{
		Id:              f.Id,
		UserId:          f.UserId,
		Content:         f.Content,
		ContentType:     f.ContentType,
		Embedding:       f.Embedding.Slice(),
		Metadata:        map[string]interface{}(f.Metadata),
		Topics:          topics,
		Sentiment:       f.Sentiment,
		Intent:          f.Intent,
		ImportanceScore: f.ImportanceScore,
		AccessCount:     f.AccessCount,
		LastAccessedAt:  f.LastAccessedAt,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

func (m *KnowledgeFactMapper) ToModel(f *entity.KnowledgeFact) *model.KnowledgeFact {
	if f == nil {
		return nil
	}

	var topics datatypes.JSON
	if len(f.Topics) > 0 {
		if raw, err := json.Marshal(f.Topics); err == nil {
			topics = raw
		}
	}

	return &model.KnowledgeFact{
		Id:              f.Id,
		UserId:          f.UserId,
		Content:         f.Content,
		ContentType:     f.ContentType,
		Embedding:       pgvector.NewVector(f.Embedding),
		Metadata:        datatypes.JSONMap(f.Metadata),
		Topics:          topics,
		Sentiment:       f.Sentiment,
		Intent:          f.Intent,
		ImportanceScore: f.ImportanceScore,
		AccessCount:     f.AccessCount,
		LastAccessedAt:  f.LastAccessedAt,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

func (m *KnowledgeFactMapper) ToEntities(facts []*model.KnowledgeFact) []*entity.KnowledgeFact {
	entities := make([]*entity.KnowledgeFact, len(facts))
	for i, f := range facts {
		entities[i] = m.ToEntity(f)
	}
	return entities
}

func (m *KnowledgeFactMapper) ToModels(facts []*entity.KnowledgeFact) []*model.KnowledgeFact {
	models := make([]*model.KnowledgeFact, len(facts))
	for i, f := range facts {
		models[i] = m.ToModel(f)
	}
	return models
}
