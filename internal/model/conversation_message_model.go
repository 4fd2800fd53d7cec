package model

import (
	"time"

	"github.com/google/uuid"
)

type ConversationMessage struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;index"`
	Role      string    `gorm:"type:varchar(20);not null"`
	Content   string    `gorm:"type:text"`
	TurnId    uuid.UUID `gorm:"type:uuid;index"` // groups the user/assistant pair of one turn
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

func (ConversationMessage) TableName() string {
	return "conversation_messages"
}
