package yookassawebhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	ordersvc "github.com/studyassist/studyassist-backend/internal/orders"
	"github.com/studyassist/studyassist-backend/pkg/db/models"
	pkgerrors "github.com/studyassist/studyassist-backend/pkg/errors"
	"github.com/studyassist/studyassist-backend/pkg/logger"
)

type stubOrderMarker struct {
	paid      []ordersvc.PaymentRef
	cancelled []ordersvc.PaymentRef
	err       error
}

func (s *stubOrderMarker) MarkPaid(ctx context.Context, ref ordersvc.PaymentRef) (*models.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.paid = append(s.paid, ref)
	return &models.Order{}, nil
}

func (s *stubOrderMarker) MarkPaymentCancelled(ctx context.Context, ref ordersvc.PaymentRef) (*models.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.cancelled = append(s.cancelled, ref)
	return &models.Order{}, nil
}

type stubIdempotencyStore struct {
	keys    map[string]bool
	deleted []string
}

func (s *stubIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	return "", nil
}

func (s *stubIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.keys == nil {
		s.keys = map[string]bool{}
	}
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *stubIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "sa:idem:" + scope + ":" + id
}

func (s *stubIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.keys, key)
		s.deleted = append(s.deleted, key)
	}
	return nil
}

const testSecret = "whsec"

func newWebhookTestService(t *testing.T, orders *stubOrderMarker, store *stubIdempotencyStore, secret string) *Service {
	t.Helper()
	guard, err := NewIdempotencyGuard(store, time.Hour, "yookassa")
	if err != nil {
		t.Fatalf("build guard: %v", err)
	}
	service, err := NewService(ServiceParams{
		Orders:        orders,
		Guard:         guard,
		Logger:        logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		WebhookSecret: secret,
	})
	if err != nil {
		t.Fatalf("build webhook service: %v", err)
	}
	return service
}

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestService_PaymentSucceededMarksOrderPaid(t *testing.T) {
	orders := &stubOrderMarker{}
	store := &stubIdempotencyStore{}
	service := newWebhookTestService(t, orders, store, testSecret)

	body := []byte(`{"type":"notification","event":"payment.succeeded","object":{"id":"pay_1","status":"succeeded"}}`)
	if err := service.HandleNotification(context.Background(), body, sign(body, testSecret)); err != nil {
		t.Fatalf("handle notification: %v", err)
	}
	if len(orders.paid) != 1 || orders.paid[0].PaymentID != "pay_1" {
		t.Fatalf("expected pay_1 marked paid, got %v", orders.paid)
	}
	if len(orders.cancelled) != 0 {
		t.Fatalf("unexpected cancellations %v", orders.cancelled)
	}
}

func TestService_MetadataOrderIDForwarded(t *testing.T) {
	orders := &stubOrderMarker{}
	service := newWebhookTestService(t, orders, &stubIdempotencyStore{}, testSecret)

	orderID := uuid.New()
	body := []byte(`{"type":"notification","event":"payment.succeeded","object":{"id":"pay_meta","metadata":{"order_id":"` + orderID.String() + `"}}}`)
	if err := service.HandleNotification(context.Background(), body, sign(body, testSecret)); err != nil {
		t.Fatalf("handle notification: %v", err)
	}
	if len(orders.paid) != 1 || orders.paid[0].OrderID != orderID {
		t.Fatalf("expected metadata order id forwarded, got %+v", orders.paid)
	}
}

func TestService_BadMetadataOrderIDIgnored(t *testing.T) {
	orders := &stubOrderMarker{}
	service := newWebhookTestService(t, orders, &stubIdempotencyStore{}, testSecret)

	body := []byte(`{"type":"notification","event":"payment.succeeded","object":{"id":"pay_badmeta","metadata":{"order_id":"not-a-uuid"}}}`)
	if err := service.HandleNotification(context.Background(), body, sign(body, testSecret)); err != nil {
		t.Fatalf("handle notification: %v", err)
	}
	if len(orders.paid) != 1 || orders.paid[0].OrderID != uuid.Nil {
		t.Fatalf("expected bad metadata ignored, got %+v", orders.paid)
	}
}

func TestService_PaymentCanceledMarksOrderCancelled(t *testing.T) {
	orders := &stubOrderMarker{}
	service := newWebhookTestService(t, orders, &stubIdempotencyStore{}, testSecret)

	body := []byte(`{"type":"notification","event":"payment.canceled","object":{"id":"pay_2","status":"canceled"}}`)
	if err := service.HandleNotification(context.Background(), body, sign(body, testSecret)); err != nil {
		t.Fatalf("handle notification: %v", err)
	}
	if len(orders.cancelled) != 1 || orders.cancelled[0].PaymentID != "pay_2" {
		t.Fatalf("expected pay_2 cancelled, got %v", orders.cancelled)
	}
}

func TestService_DuplicateEventSkipped(t *testing.T) {
	orders := &stubOrderMarker{}
	store := &stubIdempotencyStore{}
	service := newWebhookTestService(t, orders, store, testSecret)

	body := []byte(`{"type":"notification","event":"payment.succeeded","object":{"id":"pay_dup"}}`)
	signature := sign(body, testSecret)
	if err := service.HandleNotification(context.Background(), body, signature); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := service.HandleNotification(context.Background(), body, signature); err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if len(orders.paid) != 1 {
		t.Fatalf("expected a single paid mark, got %d", len(orders.paid))
	}
}

func TestService_HandlerErrorReleasesDedupeMark(t *testing.T) {
	orders := &stubOrderMarker{err: pkgerrors.New(pkgerrors.CodeDependency, "db down")}
	store := &stubIdempotencyStore{}
	service := newWebhookTestService(t, orders, store, testSecret)

	body := []byte(`{"type":"notification","event":"payment.succeeded","object":{"id":"pay_retry"}}`)
	if err := service.HandleNotification(context.Background(), body, sign(body, testSecret)); err == nil {
		t.Fatalf("expected handler error")
	}
	if len(store.deleted) != 1 {
		t.Fatalf("expected dedupe mark released, got %v", store.deleted)
	}

	// The gateway retry should now reach the orders service again.
	orders.err = nil
	if err := service.HandleNotification(context.Background(), body, sign(body, testSecret)); err != nil {
		t.Fatalf("retry delivery: %v", err)
	}
	if len(orders.paid) != 1 {
		t.Fatalf("expected retry to mark order paid")
	}
}

func TestService_InvalidSignatureRejected(t *testing.T) {
	orders := &stubOrderMarker{}
	service := newWebhookTestService(t, orders, &stubIdempotencyStore{}, testSecret)

	body := []byte(`{"type":"notification","event":"payment.succeeded","object":{"id":"pay_3"}}`)
	err := service.HandleNotification(context.Background(), body, "deadbeef")
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if len(orders.paid) != 0 {
		t.Fatalf("order must not be marked paid on bad signature")
	}
}

func TestService_MissingSecretSkipsSignatureCheck(t *testing.T) {
	orders := &stubOrderMarker{}
	service := newWebhookTestService(t, orders, &stubIdempotencyStore{}, "")

	body := []byte(`{"type":"notification","event":"payment.succeeded","object":{"id":"pay_4"}}`)
	if err := service.HandleNotification(context.Background(), body, ""); err != nil {
		t.Fatalf("handle notification: %v", err)
	}
	if len(orders.paid) != 1 {
		t.Fatalf("expected order marked paid without signature")
	}
}

func TestService_MissingPaymentIDRejected(t *testing.T) {
	service := newWebhookTestService(t, &stubOrderMarker{}, &stubIdempotencyStore{}, "")

	body := []byte(`{"type":"notification","event":"payment.succeeded","object":{}}`)
	err := service.HandleNotification(context.Background(), body, "")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_UnknownEventIgnored(t *testing.T) {
	orders := &stubOrderMarker{}
	service := newWebhookTestService(t, orders, &stubIdempotencyStore{}, "")

	body := []byte(`{"type":"notification","event":"refund.succeeded","object":{"id":"pay_5"}}`)
	if err := service.HandleNotification(context.Background(), body, ""); err != nil {
		t.Fatalf("handle notification: %v", err)
	}
	if len(orders.paid) != 0 || len(orders.cancelled) != 0 {
		t.Fatalf("unknown event must not touch orders")
	}
}
