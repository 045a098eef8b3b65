package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	pkgerrors "github.com/studyassist/studyassist-backend/pkg/errors"
	"github.com/studyassist/studyassist-backend/pkg/logger"
)

// maxWebhookBody caps notification payloads; YooKassa events are small.
const maxWebhookBody = 1 << 20

type notificationHandler interface {
	HandleNotification(ctx context.Context, body []byte, signature string) error
}

// YooKassa accepts payment notifications from the gateway.
//
// The gateway retries any non-200 response, so everything except a payload
// we could never parse is acknowledged: a processing failure is logged and
// still answered with 200 after the dedupe mark is released, letting the
// next retry reach the orders service.
func YooKassa(svc notificationHandler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			logg.Error(ctx, "read webhook body", err)
			writeAck(w, http.StatusOK)
			return
		}

		err = svc.HandleNotification(ctx, body, r.Header.Get("X-Api-Signature"))
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				writeWebhookError(w, err)
				return
			}
			logg.Error(ctx, "process webhook notification", err)
		}
		writeAck(w, http.StatusOK)
	}
}

func writeAck(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]bool{"received": true})
}

func writeWebhookError(w http.ResponseWriter, err error) {
	msg := "invalid payload"
	if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
		msg = typed.Message()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
