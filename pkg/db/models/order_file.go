package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/studyassist/studyassist-backend/pkg/enums"
)

// OrderFile records an uploaded attachment on an order. The binary itself
// lives in external object storage; we only keep the reference.
type OrderFile struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"order_id"`
	UploaderID uuid.UUID      `gorm:"type:uuid;not null" json:"uploader_id"`
	Kind       enums.FileKind `gorm:"type:file_kind;not null" json:"kind"`
	Name       string         `gorm:"type:text;not null" json:"name"`
	URL        string         `gorm:"type:text;not null" json:"url"`
	SizeBytes  *int64         `json:"size_bytes,omitempty"`
	CreatedAt  time.Time      `gorm:"type:timestamptz;default:now()" json:"created_at"`
}
