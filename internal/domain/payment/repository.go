package payment

import (
	"context"

	"github.com/flexprice/invoicer/internal/types"
)

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	ListByInvoice(ctx context.Context, invoiceID string) ([]*Payment, error)

	// ExistsByPaymentIntent reports whether a payment with status exists for
	// the invoice and processor payment intent
	ExistsByPaymentIntent(ctx context.Context, invoiceID, paymentIntentID string, status types.PaymentStatus) (bool, error)

	// ExistsByEventID reports whether a row was already written for a
	// processor event
	ExistsByEventID(ctx context.Context, eventID string) (bool, error)
}
