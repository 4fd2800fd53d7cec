package entity

import (
	"time"

	"github.com/google/uuid"
)

type KnowledgeFact struct {
	Id              uuid.UUID
	UserId          uuid.UUID
	Content         string
	ContentType     string
	Embedding       []float32
	Metadata        map[string]interface{}
	Topics          []string
	Sentiment       *string
	Intent          *string
	ImportanceScore float64
	AccessCount     int
	LastAccessedAt  time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
