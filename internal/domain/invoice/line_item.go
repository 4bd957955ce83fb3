package invoice

import (
	"time"

	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/shopspring/decimal"
)

// LineItem is one billable row on an invoice. Amount is derived and only
// ever set from a Totals computation.
type LineItem struct {
	ID          string          `json:"id"`
	InvoiceID   string          `json:"invoice_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
	Position    int             `json:"position"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Validate validates the line item inputs
func (i *LineItem) Validate() error {
	if i.Description == "" {
		return ierr.NewError("line item validation failed").
			WithHint("Line item description is required").
			Mark(ierr.ErrValidation)
	}

	if !i.Quantity.IsPositive() {
		return ierr.NewError("line item validation failed").
			WithHint("Line item quantity must be greater than zero").
			WithReportableDetails(map[string]any{
				"quantity": i.Quantity.String(),
			}).
			Mark(ierr.ErrValidation)
	}

	if i.UnitPrice.IsNegative() {
		return ierr.NewError("line item validation failed").
			WithHint("Line item unit price must not be negative").
			WithReportableDetails(map[string]any{
				"unit_price": i.UnitPrice.String(),
			}).
			Mark(ierr.ErrValidation)
	}

	return nil
}
