package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/studyassist/studyassist-backend/internal/orders"
	"github.com/studyassist/studyassist-backend/pkg/config"
	"github.com/studyassist/studyassist-backend/pkg/db/models"
	"github.com/studyassist/studyassist-backend/pkg/enums"
	pkgerrors "github.com/studyassist/studyassist-backend/pkg/errors"
	"github.com/studyassist/studyassist-backend/pkg/yookassa"
)

// Service starts gateway payment sessions for pending orders.
type Service interface {
	CreateSession(ctx context.Context, input CreateSessionInput) (*Session, error)
}

type gateway interface {
	CreatePayment(ctx context.Context, req yookassa.CreatePaymentRequest) (*yookassa.Payment, error)
}

type orderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	SetPaymentID(ctx context.Context, id uuid.UUID, paymentID string) error
}

type profileLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

type service struct {
	gateway  gateway
	orders   orderRepository
	profiles profileLoader
	cfg      config.YooKassaConfig
}

// CreateSessionInput identifies the order to start a payment for.
type CreateSessionInput struct {
	Actor   orders.Actor
	OrderID uuid.UUID
}

// Session is returned to the client so it can redirect the payer.
type Session struct {
	PaymentID       string `json:"payment_id"`
	ConfirmationURL string `json:"confirmation_url"`
	Status          string `json:"status"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
}

// The gateway caps fiscal descriptions at 128 characters.
const maxDescriptionChars = 128

// NewService wires the payment session dependencies.
func NewService(gw gateway, orderRepo orderRepository, profileRepo profileLoader, cfg config.YooKassaConfig) (Service, error) {
	if gw == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if profileRepo == nil {
		return nil, fmt.Errorf("profiles repository required")
	}
	return &service{gateway: gw, orders: orderRepo, profiles: profileRepo, cfg: cfg}, nil
}

// CreateSession asks the gateway for a redirect-confirmation payment and
// pins the returned payment id on the order so the webhook can find it.
// Calling it again for the same pending order simply starts a fresh session.
func (s *service) CreateSession(ctx context.Context, input CreateSessionInput) (*Session, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.StudentID != input.Actor.ID && !input.Actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to you")
	}
	if order.Status != enums.OrderStatusPendingPayment {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment")
	}

	req := yookassa.CreatePaymentRequest{
		Amount: yookassa.Amount{
			Value:    order.Price.StringFixed(2),
			Currency: "RUB",
		},
		Capture: true,
		Confirmation: yookassa.Confirmation{
			Type:      "redirect",
			ReturnURL: s.cfg.ReturnURL,
		},
		Description: truncate(fmt.Sprintf("Order %s: %s", order.ID, order.Topic), maxDescriptionChars),
		Metadata: map[string]string{
			"order_id": order.ID.String(),
		},
	}
	if s.cfg.SendReceipt {
		receipt, err := s.buildReceipt(ctx, order)
		if err != nil {
			return nil, err
		}
		req.Receipt = receipt
	}

	payment, err := s.gateway.CreatePayment(ctx, req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create gateway payment")
	}
	if payment.Confirmation == nil || payment.Confirmation.ConfirmationURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway returned no confirmation url")
	}

	if err := s.orders.SetPaymentID(ctx, order.ID, payment.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store payment id")
	}

	return &Session{
		PaymentID:       payment.ID,
		ConfirmationURL: payment.Confirmation.ConfirmationURL,
		Status:          payment.Status,
		Amount:          payment.Amount.Value,
		Currency:        payment.Amount.Currency,
	}, nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func (s *service) buildReceipt(ctx context.Context, order *models.Order) (*yookassa.Receipt, error) {
	student, err := s.profiles.FindByID(ctx, order.StudentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load student profile")
	}
	if student == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "student profile missing")
	}

	return &yookassa.Receipt{
		Customer: yookassa.ReceiptCustomer{Email: student.Email},
		Items: []yookassa.ReceiptItem{
			{
				Description: truncate(fmt.Sprintf("%s: %s", order.WorkType, order.Topic), maxDescriptionChars),
				Quantity:    "1",
				Amount: yookassa.Amount{
					Value:    order.Price.StringFixed(2),
					Currency: "RUB",
				},
				VATCode:        1,
				PaymentSubject: "service",
				PaymentMode:    "full_prepayment",
			},
		},
	}, nil
}
