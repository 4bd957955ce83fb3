package invoice

import (
	"context"
	"time"

	"github.com/flexprice/invoicer/internal/types"
)

// Repository defines invoice persistence. Methods are scoped to the tenant
// on ctx unless named otherwise; an invoice owned by another tenant behaves
// exactly like a missing one.
type Repository interface {
	// Create inserts the invoice together with its line items
	Create(ctx context.Context, inv *Invoice) error

	// Get loads the invoice with its line items and customer
	Get(ctx context.Context, id string) (*Invoice, error)

	// GetUnscoped loads an invoice by id ignoring the tenant. Only for
	// processor callbacks, which carry no tenant.
	GetUnscoped(ctx context.Context, id string) (*Invoice, error)

	List(ctx context.Context, filter *types.InvoiceFilter) ([]*Invoice, error)
	Count(ctx context.Context, filter *types.InvoiceFilter) (int, error)

	// Update writes scalar fields and totals. Line items are untouched.
	Update(ctx context.Context, inv *Invoice) error

	// ReplaceLineItems deletes the current line items and inserts items
	ReplaceLineItems(ctx context.Context, invoiceID string, items []*LineItem) error

	// Delete removes the invoice and its line items
	Delete(ctx context.Context, id string) error

	// TransitionStatus sets the status only if the current status is one of
	// allowedFrom. Reports whether a row changed.
	TransitionStatus(ctx context.Context, id string, to types.InvoiceStatus, allowedFrom []types.InvoiceStatus) (bool, error)

	// SetPaymentSession stores the processor session and payment intent ids
	SetPaymentSession(ctx context.Context, id, sessionID string, paymentIntentID *string) error
	// AttachPaymentIntent sets the payment intent id only when none is stored
	// yet. Reports whether a row changed.
	AttachPaymentIntent(ctx context.Context, id, paymentIntentID string) (bool, error)

	// MarkOverdue moves SENT invoices whose due date is before now to
	// OVERDUE and returns how many changed
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)

	// NextInvoiceSequence atomically increments and returns the tenant's
	// invoice counter for yearMonth
	NextInvoiceSequence(ctx context.Context, tenantID, yearMonth string) (int64, error)

	Summary(ctx context.Context) (*Summary, error)
}
