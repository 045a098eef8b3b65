package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/studyassist/studyassist-backend/pkg/db/models"
	"github.com/studyassist/studyassist-backend/pkg/enums"
)

// CreateOrderInput carries the fields needed to place a new order.
type CreateOrderInput struct {
	StudentID    uuid.UUID
	WorkType     enums.WorkType
	Subject      enums.Subject
	Topic        string
	Description  *string
	Pages        *int
	DeadlineDays int
}

// ListOrdersInput scopes a listing to the caller's role.
type ListOrdersInput struct {
	Actor     Actor
	Status    *enums.OrderStatus
	Available bool
	Limit     int
	Cursor    string
}

// OrderSummary is the shape returned in order listings.
type OrderSummary struct {
	ID           uuid.UUID         `json:"id"`
	WorkType     enums.WorkType    `json:"work_type"`
	Subject      enums.Subject     `json:"subject"`
	Topic        string            `json:"topic"`
	Status       enums.OrderStatus `json:"status"`
	Price        decimal.Decimal   `json:"price"`
	DeadlineDays int               `json:"deadline_days"`
	DeadlineDate *time.Time        `json:"deadline_date,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// OrderList wraps paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// ApproveInput closes out an order with the student's rating and an
// optional review text.
type ApproveInput struct {
	Actor   Actor
	OrderID uuid.UUID
	Rating  *int
	Review  *string
}

// PaymentRef identifies the order a gateway event settles. OrderID comes
// from the payment metadata and wins when both resolve; PaymentID is the
// value pinned on the order at session creation.
type PaymentRef struct {
	PaymentID string
	OrderID   uuid.UUID
}

// RevisionInput sends an order back to the author with a mandatory comment.
type RevisionInput struct {
	Actor   Actor
	OrderID uuid.UUID
	Comment string
}

// AdminStatusInput is the admin override for stuck or disputed orders.
type AdminStatusInput struct {
	Actor   Actor
	OrderID uuid.UUID
	Status  enums.OrderStatus
}

func toOrderSummary(order models.Order) OrderSummary {
	return OrderSummary{
		ID:           order.ID,
		WorkType:     order.WorkType,
		Subject:      order.Subject,
		Topic:        order.Topic,
		Status:       order.Status,
		Price:        order.Price,
		DeadlineDays: order.DeadlineDays,
		DeadlineDate: order.DeadlineDate,
		CreatedAt:    order.CreatedAt,
	}
}
