package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateFactRequest struct {
	Content         string                 `json:"content" validate:"required,min=1"`
	ContentType     string                 `json:"content_type" validate:"required,oneof=user_fact conversation_turn"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	Topics          []string               `json:"topics,omitempty"`
	Sentiment       *string                `json:"sentiment,omitempty"`
	Intent          *string                `json:"intent,omitempty"`
	ImportanceScore *float64               `json:"importance_score,omitempty"`
}

type CreateFactResponse struct {
	Id uuid.UUID `json:"id"`
}

type ListFactsRequest struct {
	ContentType string `query:"content_type" validate:"omitempty,oneof=user_fact conversation_turn"`
	SinceHours  int    `query:"since_hours" validate:"omitempty,min=1"`
}

type FactResponse struct {
	Id              uuid.UUID `json:"id"`
	Content         string    `json:"content"`
	ContentType     string    `json:"content_type"`
	ImportanceScore float64   `json:"importance_score"`
	AccessCount     int       `json:"access_count"`
	CreatedAt       time.Time `json:"created_at"`
}

type ListFactsResponse struct {
	Items []*FactResponse `json:"items"`
	Count int             `json:"count"`
}

type RelevantFactResponse struct {
	Id              uuid.UUID `json:"id"`
	Content         string    `json:"content"`
	ContentType     string    `json:"content_type"`
	Similarity      float64   `json:"similarity"`
	ConfidenceScore float64   `json:"confidence_score"`
	PriorityScore   int       `json:"priority_score"`
	CreatedAt       time.Time `json:"created_at"`
}

type GetRelevantFactsResponse struct {
	Items              []*RelevantFactResponse `json:"items"`
	HasRelevantContext bool                    `json:"has_relevant_context"`
	Confidence         float64                 `json:"confidence"`
}
