package mapper

import (
	"ai-marketplace-be/internal/entity"
	"ai-marketplace-be/internal/model"
)

type ConversationMapper struct{}

func NewConversationMapper() *ConversationMapper {
	return &ConversationMapper{}
}

func (m *ConversationMapper) ToEntity(c *model.ConversationMessage) *entity.ConversationMessage {
	if c == nil {
		return nil
	}
	return &entity.ConversationMessage{
		Id:        c.Id,
		UserId:    c.UserId,
		Role:      c.Role,
		Content:   c.Content,
		TurnId:    c.TurnId,
		CreatedAt: c.CreatedAt,
	}
}

func (m *ConversationMapper) ToModel(c *entity.ConversationMessage) *model.ConversationMessage {
	if c == nil {
		return nil
	}
	return &model.ConversationMessage{
		Id:        c.Id,
		UserId:    c.UserId,
		Role:      c.Role,
		Content:   c.Content,
		TurnId:    c.TurnId,
		CreatedAt: c.CreatedAt,
	}
}
