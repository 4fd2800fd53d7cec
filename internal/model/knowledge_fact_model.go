package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// KnowledgeFact is append-only: rows are never updated in place. A "memory
// update" is a newer row on the same subject winning on recency.
type KnowledgeFact struct {
	Id              uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId          uuid.UUID         `gorm:"type:uuid;not null;index"`
	Content         string            `gorm:"type:text;not null"`
	ContentType     string            `gorm:"type:varchar(50);not null;index"`
	Embedding       pgvector.Vector   `gorm:"type:vector(768)"` // nomic-embed-text uses 768 dimensions
	Metadata        datatypes.JSONMap `gorm:"type:jsonb"`
	Topics          datatypes.JSON    `gorm:"type:jsonb"`
	Sentiment       *string           `gorm:"type:varchar(30)"`
	Intent          *string           `gorm:"type:varchar(50)"`
	ImportanceScore float64           `gorm:"default:1.0"`
	AccessCount     int               `gorm:"default:0"`
	LastAccessedAt  time.Time
	CreatedAt       time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (KnowledgeFact) TableName() string {
	return "knowledge_facts"
}
