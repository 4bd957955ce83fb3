package dto

import (
	"github.com/flexprice/invoicer/internal/validator"
)

type CreatePaymentSessionRequest struct {
	InvoiceID string `json:"invoice_id" validate:"required"`
}

func (r *CreatePaymentSessionRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type PaymentSessionResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// WebhookResponse acknowledges a processor notification
type WebhookResponse struct {
	Received bool   `json:"received"`
	Status   string `json:"status,omitempty"`
}
