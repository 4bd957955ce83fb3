package stripe

import (
	"encoding/json"

	"github.com/flexprice/invoicer/internal/domain/payment"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/samber/lo"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventPaymentIntentSucceeded   = "payment_intent.succeeded"
	EventPaymentIntentFailed      = "payment_intent.payment_failed"

	// sessions created before metadata keys were snake_case
	legacyMetadataKeyInvoiceID = "invoiceId"
)

func (c *stripeClient) ParseWebhookEvent(payload []byte, signature string) (*payment.WebhookEvent, error) {
	if signature == "" || c.webhookSecret == "" {
		return nil, ierr.NewError("missing webhook signature").
			WithHint("Webhook signature could not be verified").
			Mark(ierr.ErrUnauthenticated)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Webhook signature could not be verified").
			Mark(ierr.ErrUnauthenticated)
	}

	return parseEvent(&event)
}

func parseEvent(event *stripe.Event) (*payment.WebhookEvent, error) {
	out := &payment.WebhookEvent{
		ID:   event.ID,
		Type: string(event.Type),
		Kind: payment.EventKindUnknown,
	}

	switch string(event.Type) {
	case EventCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, malformed(event, err)
		}
		currency := string(session.Currency)
		out.Kind = payment.EventKindCheckoutCompleted
		out.InvoiceID = invoiceIDFrom(session.Metadata)
		out.Paid = session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid
		out.Amount = types.FromMinorUnits(session.AmountTotal, currency)
		out.Currency = currency
		out.PaymentMethod = "card"
		if session.PaymentIntent != nil {
			out.PaymentIntentID = session.PaymentIntent.ID
		}

	case EventPaymentIntentSucceeded, EventPaymentIntentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return nil, malformed(event, err)
		}
		currency := string(intent.Currency)
		out.Kind = payment.EventKindPaymentSucceeded
		if string(event.Type) == EventPaymentIntentFailed {
			out.Kind = payment.EventKindPaymentFailed
		}
		out.InvoiceID = invoiceIDFrom(intent.Metadata)
		out.PaymentIntentID = intent.ID
		out.Amount = types.FromMinorUnits(intent.Amount, currency)
		out.Currency = currency
		out.PaymentMethod = lo.FirstOrEmpty(intent.PaymentMethodTypes)
		if intent.LatestCharge != nil {
			out.ChargeID = intent.LatestCharge.ID
		}
	}

	return out, nil
}

func invoiceIDFrom(metadata map[string]string) string {
	if id := metadata[types.MetadataKeyInvoiceID]; id != "" {
		return id
	}
	return metadata[legacyMetadataKeyInvoiceID]
}

func malformed(event *stripe.Event, err error) error {
	return ierr.WithError(err).
		WithHint("Webhook payload could not be parsed").
		WithReportableDetails(map[string]any{
			"event_id":   event.ID,
			"event_type": event.Type,
		}).
		Mark(ierr.ErrValidation)
}
