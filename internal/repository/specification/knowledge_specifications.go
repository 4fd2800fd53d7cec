package specification

import (
	"time"

	"gorm.io/gorm"
)

// ByContentType filters knowledge facts by category tag
type ByContentType struct {
	ContentType string
}

func (s ByContentType) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("content_type = ?", s.ContentType)
}

// CreatedAfter filters rows newer than the given instant
type CreatedAfter struct {
	After time.Time
}

func (s CreatedAfter) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("created_at > ?", s.After)
}
