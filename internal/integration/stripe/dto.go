package stripe

import (
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/shopspring/decimal"
)

// CheckoutSessionRequest is a hosted checkout for one invoice
type CheckoutSessionRequest struct {
	InvoiceID     string
	InvoiceNumber string
	UserID        string
	Amount        decimal.Decimal
	Currency      string
	Description   string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

func (r *CheckoutSessionRequest) Validate() error {
	if r.InvoiceID == "" || r.InvoiceNumber == "" {
		return ierr.NewError("invoice reference is required").
			WithHint("Checkout requires an invoice").
			Mark(ierr.ErrValidation)
	}
	if !r.Amount.IsPositive() {
		return ierr.NewError("checkout amount must be positive").
			WithHint("Invoice total must be greater than zero to collect a payment").
			WithReportableDetails(map[string]any{
				"invoice_id": r.InvoiceID,
				"amount":     r.Amount.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CheckoutSession is the processor's answer to a checkout request.
// PaymentIntentID is only known at creation on older API versions.
type CheckoutSession struct {
	ID              string
	URL             string
	PaymentIntentID *string
}
