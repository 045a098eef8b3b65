package yookassawebhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/studyassist/studyassist-backend/internal/orders"
	"github.com/studyassist/studyassist-backend/pkg/db/models"
	pkgerrors "github.com/studyassist/studyassist-backend/pkg/errors"
	"github.com/studyassist/studyassist-backend/pkg/logger"
	"github.com/studyassist/studyassist-backend/pkg/yookassa"
)

// orderMarker settles orders once the gateway reports a terminal payment state.
type orderMarker interface {
	MarkPaid(ctx context.Context, ref orders.PaymentRef) (*models.Order, error)
	MarkPaymentCancelled(ctx context.Context, ref orders.PaymentRef) (*models.Order, error)
}

type ServiceParams struct {
	Orders        orderMarker
	Guard         *IdempotencyGuard
	Logger        *logger.Logger
	WebhookSecret string
}

type Service struct {
	orders orderMarker
	guard  *IdempotencyGuard
	logg   *logger.Logger
	secret string
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		orders: params.Orders,
		guard:  params.Guard,
		logg:   params.Logger,
		secret: params.WebhookSecret,
	}, nil
}

// HandleNotification processes one raw webhook body. Validation failures mean
// the payload itself is unusable; every other error still refers to a
// well-formed event the gateway should not retry with a different body.
func (s *Service) HandleNotification(ctx context.Context, body []byte, signature string) error {
	if err := s.verifySignature(ctx, body, signature); err != nil {
		return err
	}

	var notification yookassa.WebhookNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
	}
	if notification.Object.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment id missing")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"payment_id": notification.Object.ID,
		"event":      notification.Event,
	})

	eventKey := notification.Event + ":" + notification.Object.ID
	seen, err := s.guard.CheckAndMark(ctx, eventKey)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook dedupe check")
	}
	if seen {
		s.logg.Info(ctx, "duplicate webhook event skipped")
		return nil
	}

	if err := s.dispatch(ctx, &notification); err != nil {
		// Release the dedupe mark so the gateway's retry gets another attempt.
		if delErr := s.guard.Delete(ctx, eventKey); delErr != nil {
			s.logg.Error(ctx, "release webhook dedupe mark", delErr)
		}
		return err
	}
	return nil
}

func (s *Service) dispatch(ctx context.Context, notification *yookassa.WebhookNotification) error {
	ref := orders.PaymentRef{PaymentID: notification.Object.ID}
	if raw, ok := notification.Object.Metadata["order_id"]; ok {
		orderID, err := uuid.Parse(raw)
		if err != nil {
			s.logg.Warn(ctx, "unparseable order id in payment metadata")
		} else {
			ref.OrderID = orderID
		}
	}

	switch notification.Event {
	case yookassa.EventPaymentSucceeded:
		_, err := s.orders.MarkPaid(ctx, ref)
		return err
	case yookassa.EventPaymentCanceled:
		_, err := s.orders.MarkPaymentCancelled(ctx, ref)
		return err
	default:
		s.logg.Info(ctx, "ignoring unhandled webhook event")
		return nil
	}
}

func (s *Service) verifySignature(ctx context.Context, body []byte, signature string) error {
	if s.secret == "" {
		s.logg.Warn(ctx, "webhook secret not configured, skipping signature check")
		return nil
	}
	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")
	}
	return nil
}
