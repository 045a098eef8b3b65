package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/studyassist/studyassist-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to profiles.
type Notification struct {
	ID        uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProfileID uuid.UUID              `gorm:"type:uuid;not null;index" json:"profile_id"`
	OrderID   *uuid.UUID             `gorm:"type:uuid;index" json:"order_id,omitempty"`
	Type      enums.NotificationType `gorm:"type:notification_type;not null" json:"type"`
	Title     string                 `gorm:"type:text;not null" json:"title"`
	Message   string                 `gorm:"type:text;not null" json:"message"`
	Link      *string                `gorm:"type:text" json:"link,omitempty"`
	ReadAt    *time.Time             `gorm:"type:timestamptz" json:"read_at,omitempty"`
	CreatedAt time.Time              `gorm:"type:timestamptz;default:now()" json:"created_at"`
}
