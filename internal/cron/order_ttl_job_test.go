package cron

import (
	"context"
	"testing"
	"time"

	"github.com/studyassist/studyassist-backend/internal/notifications"
	"github.com/studyassist/studyassist-backend/pkg/db/models"
	"github.com/studyassist/studyassist-backend/pkg/enums"
	"github.com/studyassist/studyassist-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeStaleReader struct {
	cutoff time.Time
	orders []models.Order
}

func (f *fakeStaleReader) FindStalePending(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	f.cutoff = cutoff
	return f.orders, nil
}

type fakeNotifier struct {
	inputs []notifications.EmitInput
}

func (f *fakeNotifier) Emit(ctx context.Context, tx *gorm.DB, input notifications.EmitInput) error {
	f.inputs = append(f.inputs, input)
	return nil
}

type statusUpdateCall struct {
	orderID uuid.UUID
	from    []enums.OrderStatus
	to      enums.OrderStatus
}

type fakeStatusRepo struct {
	moved bool
	calls []statusUpdateCall
}

func (f *fakeStatusRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus, updates map[string]any) (bool, error) {
	f.calls = append(f.calls, statusUpdateCall{orderID: id, from: from, to: to})
	return f.moved, nil
}

func newOrderTTLJobTest(t *testing.T, reader *fakeStaleReader, repo *fakeStatusRepo) (*orderTTLJob, *fakeNotifier) {
	t.Helper()
	notifier := &fakeNotifier{}
	jobIface, err := NewOrderTTLJob(OrderTTLJobParams{
		Logger:      logger.New(logger.Options{ServiceName: "test"}),
		DB:          fakeTxRunner{},
		StaleReader: reader,
		Notifier:    notifier,
		TransactionalRepoFactory: func(tx *gorm.DB) transactionalOrderRepo {
			return repo
		},
	})
	if err != nil {
		t.Fatalf("NewOrderTTLJob: %v", err)
	}
	job, ok := jobIface.(*orderTTLJob)
	if !ok {
		t.Fatalf("expected orderTTLJob, got %T", jobIface)
	}
	return job, notifier
}

func TestOrderTTLJob_cancelsStaleOrdersAndNotifiesStudent(t *testing.T) {
	now := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	order := models.Order{
		ID:        uuid.New(),
		StudentID: uuid.New(),
		Status:    enums.OrderStatusPendingPayment,
	}
	reader := &fakeStaleReader{orders: []models.Order{order}}
	repo := &fakeStatusRepo{moved: true}
	job, notifier := newOrderTTLJobTest(t, reader, repo)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	wantCutoff := now.Add(-orderExpirationDays * 24 * time.Hour)
	if !reader.cutoff.Equal(wantCutoff) {
		t.Fatalf("unexpected cutoff: %s", reader.cutoff)
	}
	if len(repo.calls) != 1 {
		t.Fatalf("expected 1 status update, got %d", len(repo.calls))
	}
	call := repo.calls[0]
	if call.orderID != order.ID {
		t.Fatalf("unexpected order id: %s", call.orderID)
	}
	if call.to != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", call.to)
	}
	if len(call.from) != 1 || call.from[0] != enums.OrderStatusPendingPayment {
		t.Fatalf("expected guarded transition from pending_payment, got %v", call.from)
	}
	if len(notifier.inputs) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.inputs))
	}
	input := notifier.inputs[0]
	if input.ProfileID != order.StudentID {
		t.Fatalf("notification should target the student, got %s", input.ProfileID)
	}
	if input.Type != enums.NotificationTypeStatus {
		t.Fatalf("unexpected notification type: %s", input.Type)
	}
}

func TestOrderTTLJob_skipsOrdersThatGotPaidMeanwhile(t *testing.T) {
	order := models.Order{
		ID:        uuid.New(),
		StudentID: uuid.New(),
		Status:    enums.OrderStatusPendingPayment,
	}
	reader := &fakeStaleReader{orders: []models.Order{order}}
	repo := &fakeStatusRepo{moved: false}
	job, notifier := newOrderTTLJobTest(t, reader, repo)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(repo.calls) != 1 {
		t.Fatalf("expected 1 status update attempt, got %d", len(repo.calls))
	}
	if len(notifier.inputs) != 0 {
		t.Fatalf("expected no notifications, got %d", len(notifier.inputs))
	}
}
