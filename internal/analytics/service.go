package analytics

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/studyassist/studyassist-backend/pkg/enums"
	pkgerrors "github.com/studyassist/studyassist-backend/pkg/errors"
)

// Overview is the admin dashboard headline: who is on the platform, where
// the orders sit, and how much completed work has earned.
type Overview struct {
	TotalUsers     int64                       `json:"total_users"`
	UsersByRole    map[enums.ProfileRole]int64 `json:"users_by_role"`
	TotalOrders    int64                       `json:"total_orders"`
	OrdersByStatus map[enums.OrderStatus]int64 `json:"orders_by_status"`
	Revenue        decimal.Decimal             `json:"revenue"`
}

// Service exposes platform-wide reporting for the admin surface.
type Service interface {
	Overview(ctx context.Context) (*Overview, error)
}

type service struct {
	repo Repository
}

// NewService wires the analytics service dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("analytics repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Overview(ctx context.Context) (*Overview, error) {
	usersByRole, err := s.repo.CountProfilesByRole(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count profiles")
	}
	ordersByStatus, err := s.repo.CountOrdersByStatus(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}
	revenue, err := s.repo.CompletedRevenue(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum revenue")
	}

	overview := &Overview{
		UsersByRole:    usersByRole,
		OrdersByStatus: ordersByStatus,
		Revenue:        revenue,
	}
	for _, n := range usersByRole {
		overview.TotalUsers += n
	}
	for _, n := range ordersByStatus {
		overview.TotalOrders += n
	}
	return overview, nil
}
