package invoice

import (
	"time"

	"github.com/flexprice/invoicer/internal/domain/customer"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Invoice is owned by exactly one user and references one customer.
// Subtotal, TaxAmount, Total and every LineItem.Amount are derived and must
// only be written through ApplyTotals.
type Invoice struct {
	ID                      string              `json:"id"`
	UserID                  string              `json:"user_id"`
	CustomerID              string              `json:"customer_id"`
	InvoiceNumber           string              `json:"invoice_number"`
	IssueDate               time.Time           `json:"issue_date"`
	DueDate                 time.Time           `json:"due_date"`
	Currency                string              `json:"currency"`
	TaxRate                 decimal.Decimal     `json:"tax_rate"`
	Discount                decimal.Decimal     `json:"discount"`
	Subtotal                decimal.Decimal     `json:"subtotal"`
	TaxAmount               decimal.Decimal     `json:"tax_amount"`
	Total                   decimal.Decimal     `json:"total"`
	Status                  types.InvoiceStatus `json:"status"`
	Notes                   string              `json:"notes,omitempty"`
	StripePaymentIntentID   *string             `json:"stripe_payment_intent_id,omitempty"`
	StripeCheckoutSessionID *string             `json:"stripe_checkout_session_id,omitempty"`
	LineItems               []*LineItem         `json:"line_items,omitempty"`
	Customer                *customer.Customer  `json:"customer,omitempty"`
	CreatedAt               time.Time           `json:"created_at"`
	UpdatedAt               time.Time           `json:"updated_at"`
}

// ApplyTotals copies computed totals onto the invoice and its line items.
// t must have been computed from inv.LineItems.
func (inv *Invoice) ApplyTotals(t *Totals) {
	for idx, item := range inv.LineItems {
		item.Amount = t.LineAmounts[idx]
	}
	inv.Subtotal = t.Subtotal
	inv.TaxAmount = t.TaxAmount
	inv.Total = t.Total
}

// Recalculate recomputes the totals from the current line items and
// adjustments. On error the invoice is left untouched.
func (inv *Invoice) Recalculate() error {
	t, err := CalculateTotals(inv.LineItems, inv.TaxRate, inv.Discount, inv.Currency)
	if err != nil {
		return err
	}
	inv.ApplyTotals(t)
	return nil
}

// EffectiveStatus is the status as read at now: a SENT invoice past its due
// date reads as OVERDUE.
func (inv *Invoice) EffectiveStatus(now time.Time) types.InvoiceStatus {
	if inv.Status == types.InvoiceStatusSent && !inv.DueDate.IsZero() && inv.DueDate.Before(now) {
		return types.InvoiceStatusOverdue
	}
	return inv.Status
}

func (inv *Invoice) IsPayable() error {
	switch inv.Status {
	case types.InvoiceStatusPaid:
		return ierr.NewError("invoice already paid").
			WithHint("Invoice is already paid").
			WithReportableDetails(map[string]any{"invoice_id": inv.ID}).
			Mark(ierr.ErrInvalidState)
	case types.InvoiceStatusCancelled:
		return ierr.NewError("invoice already cancelled").
			WithHint("Invoice is already cancelled").
			WithReportableDetails(map[string]any{"invoice_id": inv.ID}).
			Mark(ierr.ErrInvalidState)
	}
	return nil
}

// Validate checks the non-derived fields. Line items and adjustments are
// checked by CalculateTotals.
func (inv *Invoice) Validate() error {
	if inv.CustomerID == "" {
		return ierr.NewError("customer is required").
			WithHint("Invoice must reference a customer").
			Mark(ierr.ErrValidation)
	}

	if err := types.ValidateCurrencyCode(inv.Currency); err != nil {
		return err
	}

	if inv.IssueDate.IsZero() || inv.DueDate.IsZero() {
		return ierr.NewError("issue and due dates are required").
			WithHint("Issue date and due date are required").
			Mark(ierr.ErrValidation)
	}

	if inv.DueDate.Before(inv.IssueDate) {
		return ierr.NewError("due date before issue date").
			WithHint("Due date must be on or after the issue date").
			WithReportableDetails(map[string]any{
				"issue_date": inv.IssueDate,
				"due_date":   inv.DueDate,
			}).
			Mark(ierr.ErrValidation)
	}

	if err := inv.Status.Validate(); err != nil {
		return err
	}

	return nil
}

// LineDescriptions returns the line item descriptions in order
func (inv *Invoice) LineDescriptions() []string {
	return lo.Map(inv.LineItems, func(item *LineItem, _ int) string {
		return item.Description
	})
}

// Summary aggregates a tenant's invoices for the dashboard
type Summary struct {
	InvoiceCount int
	Revenue      decimal.Decimal
	Pending      decimal.Decimal
}
