package chat

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyassist/studyassist-backend/pkg/db/models"
	"github.com/studyassist/studyassist-backend/pkg/pagination"
)

// Repository persists order chat messages.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, message *models.OrderMessage) error
	List(ctx context.Context, params listMessagesParams) ([]models.OrderMessage, *pagination.Cursor, error)
	MarkRead(ctx context.Context, orderID, readerID uuid.UUID) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a chat repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listMessagesParams struct {
	OrderID uuid.UUID
	Limit   int
	Cursor  *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, message *models.OrderMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// List returns messages newest-first so the cursor walks backwards through
// history; the service reverses each page into chronological order.
func (r *repositoryImpl) List(ctx context.Context, params listMessagesParams) ([]models.OrderMessage, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.OrderMessage{}).
		Where("order_id = ?", params.OrderID)
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var messages []models.OrderMessage
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, nil, err
	}

	if len(messages) > normalized {
		next := messages[normalized]
		messages = messages[:normalized]
		return messages, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return messages, nil, nil
}

// MarkRead flags the counterparty's messages as read. The reader's own
// messages keep their flag for the other side.
func (r *repositoryImpl) MarkRead(ctx context.Context, orderID, readerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderMessage{}).
		Where("order_id = ? AND sender_id <> ? AND is_read = false", orderID, readerID).
		Update("is_read", true).Error
}
