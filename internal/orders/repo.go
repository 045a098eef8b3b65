package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/studyassist/studyassist-backend/pkg/db/models"
	"github.com/studyassist/studyassist-backend/pkg/enums"
	"github.com/studyassist/studyassist-backend/pkg/pagination"
)

// Repository exposes persistence helpers for orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByPaymentID(ctx context.Context, paymentID string) (*models.Order, error)
	List(ctx context.Context, params listOrdersParams) ([]models.Order, *pagination.Cursor, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus, updates map[string]any) (bool, error)
	Accept(ctx context.Context, id, authorID uuid.UUID, now, deadline time.Time) (bool, error)
	SetPaymentID(ctx context.Context, id uuid.UUID, paymentID string) error
	AuthorStats(ctx context.Context, authorID uuid.UUID) (*AuthorStats, error)
	FindStalePending(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listOrdersParams struct {
	StudentID      *uuid.UUID
	AuthorID       *uuid.UUID
	Status         *enums.OrderStatus
	UnassignedPaid bool
	Limit          int
	Cursor         *pagination.Cursor
}

// AuthorStats aggregates an author's track record.
type AuthorStats struct {
	CompletedOrders int64           `json:"completed_orders"`
	ActiveOrders    int64           `json:"active_orders"`
	EarnedTotal     decimal.Decimal `json:"earned_total"`
	AverageRating   *float64        `json:"average_rating,omitempty"`
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repositoryImpl) FindByPaymentID(ctx context.Context, paymentID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).First(&order, "payment_id = ?", paymentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listOrdersParams) ([]models.Order, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Order{})
	if params.StudentID != nil {
		query = query.Where("student_id = ?", *params.StudentID)
	}
	if params.AuthorID != nil {
		query = query.Where("author_id = ?", *params.AuthorID)
	}
	if params.UnassignedPaid {
		query = query.Where("status = ? AND author_id IS NULL", enums.OrderStatusPaid)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.Order
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > normalized {
		next := rows[normalized]
		rows = rows[:normalized]
		return rows, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return rows, nil, nil
}

// UpdateStatus applies a guarded status change. The update only lands when the
// current status is one of the expected values, so concurrent actors cannot
// clobber each other's transitions.
func (r *repositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus, updates map[string]any) (bool, error) {
	values := map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	for k, v := range updates {
		values[k] = v
	}

	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id)
	if len(from) > 0 {
		query = query.Where("status IN ?", from)
	}

	result := query.Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Accept claims a paid, unassigned order for the author. The WHERE clause is
// the whole race: whichever author's UPDATE lands first wins and every other
// attempt affects zero rows.
func (r *repositoryImpl) Accept(ctx context.Context, id, authorID uuid.UUID, now, deadline time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ? AND author_id IS NULL", id, enums.OrderStatusPaid).
		Updates(map[string]any{
			"author_id":     authorID,
			"status":        enums.OrderStatusInProgress,
			"accepted_at":   now,
			"deadline_date": deadline,
			"updated_at":    now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) SetPaymentID(ctx context.Context, id uuid.UUID, paymentID string) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{"payment_id": paymentID, "updated_at": time.Now().UTC()}).Error
}

// FindStalePending returns unpaid orders created before the cutoff, oldest
// first, for the expiry sweep.
func (r *repositoryImpl) FindStalePending(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.OrderStatusPendingPayment, cutoff).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repositoryImpl) AuthorStats(ctx context.Context, authorID uuid.UUID) (*AuthorStats, error) {
	var stats AuthorStats

	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("author_id = ? AND status = ?", authorID, enums.OrderStatusCompleted).
		Count(&stats.CompletedOrders).Error
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).Model(&models.Order{}).
		Where("author_id = ? AND status IN ?", authorID, []enums.OrderStatus{
			enums.OrderStatusInProgress,
			enums.OrderStatusReview,
			enums.OrderStatusRevision,
		}).
		Count(&stats.ActiveOrders).Error
	if err != nil {
		return nil, err
	}

	var earned decimal.NullDecimal
	err = r.db.WithContext(ctx).Model(&models.Order{}).
		Select("SUM(price)").
		Where("author_id = ? AND status = ?", authorID, enums.OrderStatusCompleted).
		Scan(&earned).Error
	if err != nil {
		return nil, err
	}
	if earned.Valid {
		stats.EarnedTotal = earned.Decimal
	}

	var avg *float64
	err = r.db.WithContext(ctx).Model(&models.Order{}).
		Select("AVG(rating)").
		Where("author_id = ? AND rating IS NOT NULL", authorID).
		Scan(&avg).Error
	if err != nil {
		return nil, err
	}
	stats.AverageRating = avg

	return &stats, nil
}
