package yookassa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/studyassist/studyassist-backend/pkg/config"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(config.YooKassaConfig{
		ShopID:    "shop-1",
		SecretKey: "sk_test",
		Timeout:   2 * time.Second,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client.WithBaseURL(srv.URL), srv
}

func TestCreatePaymentSendsAuthAndIdempotenceKey(t *testing.T) {
	var gotAuthUser, gotAuthPass, gotIdemKey string
	var gotBody CreatePaymentRequest

	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuthUser, gotAuthPass, _ = r.BasicAuth()
		gotIdemKey = r.Header.Get("Idempotence-Key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(Payment{
			ID:     "pay-123",
			Status: "pending",
			Confirmation: &Confirmation{
				Type:            "redirect",
				ConfirmationURL: "https://yookassa.test/confirm",
			},
		})
	}))

	payment, err := client.CreatePayment(context.Background(), CreatePaymentRequest{
		Amount:       Amount{Value: "3500.00", Currency: "RUB"},
		Capture:      true,
		Confirmation: Confirmation{Type: "redirect", ReturnURL: "https://studyassist.test/payment"},
		Metadata:     map[string]string{"order_id": "order-1"},
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}

	if gotAuthUser != "shop-1" || gotAuthPass != "sk_test" {
		t.Fatalf("basic auth not forwarded, got %q/%q", gotAuthUser, gotAuthPass)
	}
	if gotIdemKey == "" {
		t.Fatal("expected Idempotence-Key header")
	}
	if gotBody.Metadata["order_id"] != "order-1" {
		t.Fatalf("metadata not forwarded: %+v", gotBody.Metadata)
	}
	if !gotBody.Capture {
		t.Fatal("capture flag not set")
	}
	if payment.ID != "pay-123" {
		t.Fatalf("unexpected payment id %q", payment.ID)
	}
	if payment.Confirmation == nil || payment.Confirmation.ConfirmationURL == "" {
		t.Fatal("confirmation url missing")
	}
}

func TestCreatePaymentSurfacesAPIError(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(APIError{
			Code:        "invalid_request",
			Description: "amount too small",
		})
	}))

	_, err := client.CreatePayment(context.Background(), CreatePaymentRequest{
		Amount: Amount{Value: "0.00", Currency: "RUB"},
	})
	if err == nil {
		t.Fatal("expected gateway error")
	}
}

func TestGetPayment(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/payments/pay-9" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(Payment{ID: "pay-9", Status: "succeeded", Paid: true})
	}))

	payment, err := client.GetPayment(context.Background(), "pay-9")
	if err != nil {
		t.Fatalf("get payment: %v", err)
	}
	if payment.Status != "succeeded" || !payment.Paid {
		t.Fatalf("unexpected payment %+v", payment)
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(config.YooKassaConfig{}); err == nil {
		t.Fatal("expected error for missing credentials")
	}
}
