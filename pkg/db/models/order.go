package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/studyassist/studyassist-backend/pkg/enums"
)

// Order is a ghostwriting engagement between a student and an author.
// AuthorID stays NULL until an author accepts a paid order.
type Order struct {
	ID          uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StudentID   uuid.UUID         `gorm:"type:uuid;not null;index" json:"student_id"`
	AuthorID    *uuid.UUID        `gorm:"type:uuid;index" json:"author_id,omitempty"`
	WorkType    enums.WorkType    `gorm:"type:work_type;not null" json:"work_type"`
	Subject     enums.Subject     `gorm:"type:subject;not null" json:"subject"`
	Topic       string            `gorm:"type:text;not null" json:"topic"`
	Description *string           `gorm:"type:text" json:"description,omitempty"`
	Pages       *int              `json:"pages,omitempty"`
	Status      enums.OrderStatus `gorm:"type:order_status;not null;default:'pending_payment';index" json:"status"`

	DeadlineDays int        `gorm:"not null" json:"deadline_days"`
	DeadlineDate *time.Time `gorm:"type:timestamptz" json:"deadline_date,omitempty"`
	AcceptedAt   *time.Time `gorm:"type:timestamptz" json:"accepted_at,omitempty"`
	SubmittedAt  *time.Time `gorm:"type:timestamptz" json:"submitted_at,omitempty"`
	CompletedAt  *time.Time `gorm:"type:timestamptz" json:"completed_at,omitempty"`

	Price         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	PaymentID     *string         `gorm:"type:text;index" json:"payment_id,omitempty"`
	PaymentStatus *string         `gorm:"type:text" json:"payment_status,omitempty"`

	Rating          *int    `json:"rating,omitempty"`
	StudentReview   *string `gorm:"type:text" json:"student_review,omitempty"`
	RevisionComment *string `gorm:"type:text" json:"revision_comment,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;default:now();index" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;default:now()" json:"updated_at"`
}
