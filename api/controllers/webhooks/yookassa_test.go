package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/studyassist/studyassist-backend/pkg/errors"
	"github.com/studyassist/studyassist-backend/pkg/logger"
)

type stubNotificationHandler struct {
	body      []byte
	signature string
	err       error
}

func (s *stubNotificationHandler) HandleNotification(_ context.Context, body []byte, signature string) error {
	s.body = body
	s.signature = signature
	return s.err
}

func newWebhookLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func postNotification(t *testing.T, svc *stubNotificationHandler, body, signature string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/yookassa", strings.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Api-Signature", signature)
	}
	rec := httptest.NewRecorder()
	YooKassa(svc, newWebhookLogger())(rec, req)
	return rec
}

func TestYooKassaAcknowledgesSuccess(t *testing.T) {
	svc := &stubNotificationHandler{}
	rec := postNotification(t, svc, `{"event":"payment.succeeded"}`, "sig-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp["received"] {
		t.Fatalf("unexpected response %s", rec.Body.String())
	}
	if string(svc.body) != `{"event":"payment.succeeded"}` {
		t.Fatalf("handler got body %q", svc.body)
	}
	if svc.signature != "sig-1" {
		t.Fatalf("handler got signature %q", svc.signature)
	}
}

func TestYooKassaRejectsMalformedPayload(t *testing.T) {
	svc := &stubNotificationHandler{err: pkgerrors.New(pkgerrors.CodeValidation, "payment id missing")}
	rec := postNotification(t, svc, `{"object":{}}`, "")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["error"] != "payment id missing" {
		t.Fatalf("unexpected error body %s", rec.Body.String())
	}
}

func TestYooKassaAcknowledgesProcessingFailure(t *testing.T) {
	svc := &stubNotificationHandler{err: pkgerrors.New(pkgerrors.CodeDependency, "database unavailable")}
	rec := postNotification(t, svc, `{"event":"payment.succeeded"}`, "sig-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 so the gateway retries later", rec.Code)
	}
}

func TestYooKassaAcknowledgesBadSignature(t *testing.T) {
	svc := &stubNotificationHandler{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")}
	rec := postNotification(t, svc, `{"event":"payment.succeeded"}`, "bogus")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
