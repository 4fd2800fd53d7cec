package implementation

import (
	"context"

	"ai-marketplace-be/internal/entity"
	"ai-marketplace-be/internal/mapper"
	"ai-marketplace-be/internal/model"
	"ai-marketplace-be/internal/repository/contract"
	"ai-marketplace-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConversationRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ConversationMapper
}

func NewConversationRepository(db *gorm.DB) contract.ConversationRepository {
	return &ConversationRepositoryImpl{
		db:     db,
		mapper: mapper.NewConversationMapper(),
	}
}

func (r *ConversationRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ConversationRepositoryImpl) Create(ctx context.Context, message *entity.ConversationMessage) error {
	m := r.mapper.ToModel(message)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*message = *r.mapper.ToEntity(m)
	return nil
}

func (r *ConversationRepositoryImpl) CreateBulk(ctx context.Context, messages []*entity.ConversationMessage) error {
	models := make([]*model.ConversationMessage, len(messages))
	for i, msg := range messages {
		models[i] = r.mapper.ToModel(msg)
	}
	return r.db.WithContext(ctx).Create(models).Error
}

func (r *ConversationRepositoryImpl) FindAll(ctx context.Context, userId uuid.UUID, specs ...specification.Specification) ([]*entity.ConversationMessage, error) {
	var models []*model.ConversationMessage
	query := r.db.WithContext(ctx).Where("user_id = ?", userId)
	query = r.applySpecifications(query, specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ConversationMessage, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *ConversationRepositoryImpl) DeleteAllByUserId(ctx context.Context, userId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userId).Delete(&model.ConversationMessage{}).Error
}
