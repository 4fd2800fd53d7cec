package dto

import (
	"time"
)

type ChatMessageDTO struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content" validate:"required"`
}

type ChatStreamRequest struct {
	SessionId          string                 `json:"session_id" validate:"required"`
	Messages           []ChatMessageDTO       `json:"messages" validate:"required,min=1,dive"`
	CurrentFilterState map[string]interface{} `json:"current_filter_state,omitempty"`
}

type GetChatHistoryResponse struct {
	Id        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	TurnId    string    `json:"turn_id"`
	CreatedAt time.Time `json:"created_at"`
}

// DeriveFactsMessage is the payload published for async fact derivation
// after a turn completes.
type DeriveFactsMessage struct {
	UserId         string `json:"user_id"`
	TurnId         string `json:"turn_id"`
	UserMessage    string `json:"user_message"`
	AssistantReply string `json:"assistant_reply"`
}

// LimitExceededError carries usage details for 429 responses
type LimitExceededError struct {
	Limit      int64     `json:"limit"`
	Used       int64     `json:"used"`
	ResetAfter time.Time `json:"reset_after"`
}

func (e *LimitExceededError) Error() string {
	return "daily chat usage limit exceeded"
}
