package analytics

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/studyassist/studyassist-backend/pkg/db/models"
	"github.com/studyassist/studyassist-backend/pkg/enums"
)

// Repository aggregates platform-wide counters from the primary database.
type Repository interface {
	CountProfilesByRole(ctx context.Context) (map[enums.ProfileRole]int64, error)
	CountOrdersByStatus(ctx context.Context) (map[enums.OrderStatus]int64, error)
	CompletedRevenue(ctx context.Context) (decimal.Decimal, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository constructs a stats repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type roleCount struct {
	Role  enums.ProfileRole
	Count int64
}

type statusCount struct {
	Status enums.OrderStatus
	Count  int64
}

func (r *repositoryImpl) CountProfilesByRole(ctx context.Context) (map[enums.ProfileRole]int64, error) {
	var rows []roleCount
	err := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Select("role, count(*) AS count").
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[enums.ProfileRole]int64, len(rows))
	for _, row := range rows {
		counts[row.Role] = row.Count
	}
	return counts, nil
}

func (r *repositoryImpl) CountOrdersByStatus(ctx context.Context) (map[enums.OrderStatus]int64, error) {
	var rows []statusCount
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("status, count(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[enums.OrderStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// CompletedRevenue sums the price of completed orders. Paid-but-unfinished
// orders are excluded so refunds on disputes never inflate the figure.
func (r *repositoryImpl) CompletedRevenue(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("COALESCE(SUM(price), 0)").
		Where("status = ?", enums.OrderStatusCompleted).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
