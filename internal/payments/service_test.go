package payments

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/studyassist/studyassist-backend/internal/orders"
	"github.com/studyassist/studyassist-backend/pkg/config"
	"github.com/studyassist/studyassist-backend/pkg/db/models"
	"github.com/studyassist/studyassist-backend/pkg/enums"
	pkgerrors "github.com/studyassist/studyassist-backend/pkg/errors"
	"github.com/studyassist/studyassist-backend/pkg/yookassa"
)

type stubGateway struct {
	lastReq *yookassa.CreatePaymentRequest
	payment *yookassa.Payment
	err     error
}

func (s *stubGateway) CreatePayment(ctx context.Context, req yookassa.CreatePaymentRequest) (*yookassa.Payment, error) {
	s.lastReq = &req
	if s.err != nil {
		return nil, s.err
	}
	return s.payment, nil
}

type stubOrderRepo struct {
	order     *models.Order
	paymentID *string
}

func (s *stubOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order != nil && s.order.ID == id {
		return s.order, nil
	}
	return nil, nil
}

func (s *stubOrderRepo) SetPaymentID(ctx context.Context, id uuid.UUID, paymentID string) error {
	s.paymentID = &paymentID
	return nil
}

type stubProfileLoader struct {
	profile *models.Profile
}

func (s *stubProfileLoader) FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return s.profile, nil
}

func pendingOrder() *models.Order {
	return &models.Order{
		ID:        uuid.New(),
		StudentID: uuid.New(),
		WorkType:  enums.WorkTypeCoursework,
		Subject:   enums.SubjectIT,
		Topic:     "Database normalization",
		Status:    enums.OrderStatusPendingPayment,
		Price:     decimal.NewFromInt(5460),
	}
}

func successfulPayment() *yookassa.Payment {
	return &yookassa.Payment{
		ID:     "2e8b3c1d-000f-5000-9000-1db2b8a6b141",
		Status: "pending",
		Amount: yookassa.Amount{Value: "5460.00", Currency: "RUB"},
		Confirmation: &yookassa.Confirmation{
			Type:            "redirect",
			ConfirmationURL: "https://yoomoney.ru/checkout/payments/v2/contract?orderId=test",
		},
	}
}

func paymentsTestSetup(t *testing.T, order *models.Order, cfg config.YooKassaConfig) (Service, *stubGateway, *stubOrderRepo) {
	t.Helper()
	gw := &stubGateway{payment: successfulPayment()}
	repo := &stubOrderRepo{order: order}
	profileRepo := &stubProfileLoader{profile: &models.Profile{ID: uuid.New(), Email: "student@example.com"}}
	svc, err := NewService(gw, repo, profileRepo, cfg)
	if err != nil {
		t.Fatalf("build payments service: %v", err)
	}
	return svc, gw, repo
}

func TestCreateSession(t *testing.T) {
	order := pendingOrder()
	svc, gw, repo := paymentsTestSetup(t, order, config.YooKassaConfig{ReturnURL: "https://studyassist.example/orders"})

	session, err := svc.CreateSession(context.Background(), CreateSessionInput{
		Actor:   orders.Actor{ID: order.StudentID, Role: enums.ProfileRoleStudent},
		OrderID: order.ID,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.ConfirmationURL == "" || session.PaymentID == "" {
		t.Fatalf("incomplete session %+v", session)
	}
	if session.Status != "pending" {
		t.Fatalf("expected gateway status surfaced, got %q", session.Status)
	}
	if repo.paymentID == nil || *repo.paymentID != session.PaymentID {
		t.Fatal("expected payment id stored on order")
	}

	req := gw.lastReq
	if req.Amount.Value != "5460.00" || req.Amount.Currency != "RUB" {
		t.Fatalf("unexpected amount %+v", req.Amount)
	}
	if !req.Capture {
		t.Fatal("expected capture=true")
	}
	if req.Confirmation.Type != "redirect" || req.Confirmation.ReturnURL != "https://studyassist.example/orders" {
		t.Fatalf("unexpected confirmation %+v", req.Confirmation)
	}
	if req.Metadata["order_id"] != order.ID.String() {
		t.Fatalf("expected order id metadata, got %+v", req.Metadata)
	}
	if req.Receipt != nil {
		t.Fatal("receipt must be omitted when disabled")
	}
}

func TestCreateSessionWithReceipt(t *testing.T) {
	order := pendingOrder()
	svc, gw, _ := paymentsTestSetup(t, order, config.YooKassaConfig{SendReceipt: true})

	if _, err := svc.CreateSession(context.Background(), CreateSessionInput{
		Actor:   orders.Actor{ID: order.StudentID},
		OrderID: order.ID,
	}); err != nil {
		t.Fatalf("create session: %v", err)
	}

	receipt := gw.lastReq.Receipt
	if receipt == nil {
		t.Fatal("expected receipt payload")
	}
	if receipt.Customer.Email != "student@example.com" {
		t.Fatalf("unexpected receipt customer %+v", receipt.Customer)
	}
	if len(receipt.Items) != 1 || receipt.Items[0].Amount.Value != "5460.00" {
		t.Fatalf("unexpected receipt items %+v", receipt.Items)
	}
	if receipt.Items[0].PaymentMode != "full_prepayment" {
		t.Fatalf("expected full prepayment marker, got %q", receipt.Items[0].PaymentMode)
	}
}

func TestCreateSessionTruncatesLongDescriptions(t *testing.T) {
	order := pendingOrder()
	order.Topic = strings.Repeat("ы", 300)
	svc, gw, _ := paymentsTestSetup(t, order, config.YooKassaConfig{SendReceipt: true})

	if _, err := svc.CreateSession(context.Background(), CreateSessionInput{
		Actor:   orders.Actor{ID: order.StudentID},
		OrderID: order.ID,
	}); err != nil {
		t.Fatalf("create session: %v", err)
	}

	if got := len([]rune(gw.lastReq.Description)); got > 128 {
		t.Fatalf("payment description is %d runes", got)
	}
	if got := len([]rune(gw.lastReq.Receipt.Items[0].Description)); got > 128 {
		t.Fatalf("receipt item description is %d runes", got)
	}
}

func TestCreateSessionWrongStatus(t *testing.T) {
	order := pendingOrder()
	order.Status = enums.OrderStatusPaid
	svc, _, _ := paymentsTestSetup(t, order, config.YooKassaConfig{})

	_, err := svc.CreateSession(context.Background(), CreateSessionInput{
		Actor:   orders.Actor{ID: order.StudentID},
		OrderID: order.ID,
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCreateSessionForbidden(t *testing.T) {
	order := pendingOrder()
	svc, _, _ := paymentsTestSetup(t, order, config.YooKassaConfig{})

	_, err := svc.CreateSession(context.Background(), CreateSessionInput{
		Actor:   orders.Actor{ID: uuid.New(), Role: enums.ProfileRoleStudent},
		OrderID: order.ID,
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCreateSessionGatewayFailure(t *testing.T) {
	order := pendingOrder()
	svc, gw, repo := paymentsTestSetup(t, order, config.YooKassaConfig{})
	gw.err = &yookassa.APIError{Code: "invalid_credentials", Description: "bad auth"}

	_, err := svc.CreateSession(context.Background(), CreateSessionInput{
		Actor:   orders.Actor{ID: order.StudentID},
		OrderID: order.ID,
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if repo.paymentID != nil {
		t.Fatal("payment id must not be stored on failure")
	}
}
