package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/studyassist/studyassist-backend/internal/notifications"
	"github.com/studyassist/studyassist-backend/internal/orders"
	"github.com/studyassist/studyassist-backend/pkg/db/models"
	"github.com/studyassist/studyassist-backend/pkg/enums"
	"github.com/studyassist/studyassist-backend/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const orderExpirationDays = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OrderTTLJobParams configure the unpaid order expiry sweep.
type OrderTTLJobParams struct {
	Logger                   *logger.Logger
	DB                       txRunner
	StaleReader              stalePendingReader
	Notifier                 notificationEmitter
	TransactionalRepoFactory transactionalRepoFactory
}

type stalePendingReader interface {
	FindStalePending(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

type notificationEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, input notifications.EmitInput) error
}

type transactionalOrderRepo interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus, updates map[string]any) (bool, error)
}

type transactionalRepoFactory func(tx *gorm.DB) transactionalOrderRepo

func defaultTransactionalRepo(tx *gorm.DB) transactionalOrderRepo {
	return orders.NewRepository(tx)
}

// NewOrderTTLJob builds the cron job that cancels orders left unpaid past the TTL.
func NewOrderTTLJob(params OrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.StaleReader == nil {
		return nil, fmt.Errorf("stale order reader required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notification emitter required")
	}
	repoFactory := params.TransactionalRepoFactory
	if repoFactory == nil {
		repoFactory = defaultTransactionalRepo
	}
	return &orderTTLJob{
		logg:        params.Logger,
		db:          params.DB,
		staleReader: params.StaleReader,
		notifier:    params.Notifier,
		repoFactory: repoFactory,
		now:         time.Now,
	}, nil
}

type orderTTLJob struct {
	logg        *logger.Logger
	db          txRunner
	staleReader stalePendingReader
	notifier    notificationEmitter
	repoFactory transactionalRepoFactory
	now         func() time.Time
}

func (j *orderTTLJob) Name() string { return "order-ttl" }

func (j *orderTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-orderExpirationDays * 24 * time.Hour)
	stale, err := j.staleReader.FindStalePending(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query stale pending orders: %w", err)
	}
	// One bad row must not stall the rest of the sweep.
	var errs []error
	count := 0
	for _, order := range stale {
		if err := j.expireOrder(ctx, order); err != nil {
			errs = append(errs, err)
			continue
		}
		count++
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": count, "failed": len(errs)})
	j.logg.Info(logCtx, "unpaid order expiry sweep complete")
	return multierr.Combine(errs...)
}

func (j *orderTTLJob) expireOrder(ctx context.Context, order models.Order) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.repoFactory(tx)
		// Guarded transition: a payment that landed between the query and
		// this transaction leaves the order untouched.
		moved, err := repo.UpdateStatus(ctx, order.ID,
			[]enums.OrderStatus{enums.OrderStatusPendingPayment},
			enums.OrderStatusCancelled, nil)
		if err != nil {
			return fmt.Errorf("expire order %s: %w", order.ID, err)
		}
		if !moved {
			return nil
		}
		return j.notifier.Emit(ctx, tx, notifications.EmitInput{
			ProfileID: order.StudentID,
			OrderID:   &order.ID,
			Type:      enums.NotificationTypeStatus,
			Title:     "Order cancelled",
			Message:   "Your order was cancelled because payment was not received in time.",
		})
	})
}
