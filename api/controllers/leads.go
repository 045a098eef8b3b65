package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/studyassist/studyassist-backend/api/validators"
	"github.com/studyassist/studyassist-backend/internal/leads"
	pkgerrors "github.com/studyassist/studyassist-backend/pkg/errors"
	"github.com/studyassist/studyassist-backend/pkg/logger"
)

// The contact form predates the envelope convention; marketing pages parse
// this exact shape.
type leadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SubmitLead relays a public contact-form submission to the staff channels.
func SubmitLead(svc *leads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeLeadResponse(w, http.StatusServiceUnavailable, leadResponse{Success: false, Error: "lead relay unavailable"})
			return
		}

		var body leads.LeadInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			writeLeadResponse(w, http.StatusBadRequest, leadResponse{Success: false, Error: publicLeadError(err)})
			return
		}

		if err := svc.Submit(r.Context(), body); err != nil {
			if logg != nil {
				logg.Error(r.Context(), "lead relay failed", err)
			}
			status := http.StatusBadGateway
			if pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				status = http.StatusBadRequest
			}
			writeLeadResponse(w, status, leadResponse{Success: false, Error: publicLeadError(err)})
			return
		}

		writeLeadResponse(w, http.StatusOK, leadResponse{Success: true, Message: "We received your request and will reach out shortly."})
	}
}

// QuoteOrder prices a prospective order for the public calculator.
func QuoteOrder(svc *leads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			writeLeadResponse(w, http.StatusServiceUnavailable, leadResponse{Success: false, Error: "quote service unavailable"})
			return
		}

		var body leads.QuoteInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			writeLeadResponse(w, http.StatusBadRequest, leadResponse{Success: false, Error: publicLeadError(err)})
			return
		}

		quote, err := svc.Quote(r.Context(), body)
		if err != nil {
			writeLeadResponse(w, http.StatusBadRequest, leadResponse{Success: false, Error: publicLeadError(err)})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(quote)
	}
}

// publicLeadError keeps internal detail out of the anonymous surface.
func publicLeadError(err error) string {
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeValidation {
		return typed.Message()
	}
	return "could not process the request"
}

func writeLeadResponse(w http.ResponseWriter, status int, payload leadResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
