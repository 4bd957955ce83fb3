package payment

import (
	"time"

	"github.com/flexprice/invoicer/internal/types"
	"github.com/shopspring/decimal"
)

// Payment is one settlement attempt against an invoice. Rows are only ever
// appended.
type Payment struct {
	ID                    string              `json:"id"`
	InvoiceID             string              `json:"invoice_id"`
	StripePaymentIntentID string              `json:"stripe_payment_intent_id,omitempty"`
	StripeChargeID        string              `json:"stripe_charge_id,omitempty"`
	StripeEventID         string              `json:"stripe_event_id,omitempty"`
	Amount                decimal.Decimal     `json:"amount"`
	Currency              string              `json:"currency"`
	Status                types.PaymentStatus `json:"status"`
	PaymentMethod         string              `json:"payment_method,omitempty"`
	PaidAt                *time.Time          `json:"paid_at,omitempty"`
	CreatedAt             time.Time           `json:"created_at"`
}
