package payment

import (
	"github.com/shopspring/decimal"
)

// EventKind is the processor independent meaning of a webhook notification
type EventKind string

const (
	EventKindCheckoutCompleted EventKind = "checkout_completed"
	EventKindPaymentSucceeded  EventKind = "payment_succeeded"
	EventKindPaymentFailed     EventKind = "payment_failed"
	EventKindUnknown           EventKind = "unknown"
)

// WebhookEvent is a verified and parsed processor notification
type WebhookEvent struct {
	ID   string
	Type string
	Kind EventKind

	// InvoiceID comes from the metadata attached at session creation; empty
	// when the notification does not reference an invoice
	InvoiceID       string
	PaymentIntentID string
	ChargeID        string
	Amount          decimal.Decimal
	Currency        string
	PaymentMethod   string

	// Paid is false for a completed checkout whose payment is still pending
	Paid bool
}

// IsSuccess reports whether the event confirms a settled payment
func (e *WebhookEvent) IsSuccess() bool {
	switch e.Kind {
	case EventKindCheckoutCompleted:
		return e.Paid
	case EventKindPaymentSucceeded:
		return true
	}
	return false
}
