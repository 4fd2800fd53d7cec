package contract

import (
	"context"

	"ai-marketplace-be/internal/entity"
	"ai-marketplace-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ConversationRepository interface {
	Create(ctx context.Context, message *entity.ConversationMessage) error
	CreateBulk(ctx context.Context, messages []*entity.ConversationMessage) error
	FindAll(ctx context.Context, userId uuid.UUID, specs ...specification.Specification) ([]*entity.ConversationMessage, error)
	DeleteAllByUserId(ctx context.Context, userId uuid.UUID) error
}
