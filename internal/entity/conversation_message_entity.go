package entity

import (
	"time"

	"github.com/google/uuid"
)

type ConversationMessage struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Role      string
	Content   string
	TurnId    uuid.UUID
	CreatedAt time.Time
}
