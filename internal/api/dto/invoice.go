package dto

import (
	"context"
	"strings"
	"time"

	"github.com/flexprice/invoicer/internal/domain/invoice"
	"github.com/flexprice/invoicer/internal/domain/payment"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/flexprice/invoicer/internal/validator"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type LineItemRequest struct {
	Description string          `json:"description" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

func (r LineItemRequest) toLineItem() *invoice.LineItem {
	return &invoice.LineItem{
		Description: strings.TrimSpace(r.Description),
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
	}
}

func toLineItems(items []LineItemRequest) ([]*invoice.LineItem, error) {
	out := make([]*invoice.LineItem, 0, len(items))
	for _, req := range items {
		item := req.toLineItem()
		if err := item.Validate(); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

type CreateInvoiceRequest struct {
	CustomerID string            `json:"customer_id" validate:"required"`
	IssueDate  *time.Time        `json:"issue_date,omitempty"`
	DueDate    *time.Time        `json:"due_date,omitempty"`
	Currency   string            `json:"currency,omitempty" validate:"omitempty,len=3"`
	TaxRate    decimal.Decimal   `json:"tax_rate"`
	Discount   decimal.Decimal   `json:"discount"`
	Notes      string            `json:"notes,omitempty"`
	LineItems  []LineItemRequest `json:"line_items" validate:"required,min=1,dive"`
}

func (r *CreateInvoiceRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if err := invoice.ValidateTaxRate(r.TaxRate); err != nil {
		return err
	}
	if err := invoice.ValidateDiscount(r.Discount, r.Currency); err != nil {
		return err
	}
	if _, err := toLineItems(r.LineItems); err != nil {
		return err
	}
	return nil
}

// ToInvoice builds a DRAFT invoice without a number or totals. Missing dates
// default to today and today plus dueDays; a missing currency to
// defaultCurrency.
func (r *CreateInvoiceRequest) ToInvoice(ctx context.Context, now time.Time, defaultCurrency string, dueDays int) (*invoice.Invoice, error) {
	items, err := toLineItems(r.LineItems)
	if err != nil {
		return nil, err
	}

	issue := lo.FromPtrOr(r.IssueDate, now.UTC().Truncate(24*time.Hour))
	due := lo.FromPtrOr(r.DueDate, issue.AddDate(0, 0, dueDays))
	currency := strings.ToLower(lo.Ternary(r.Currency == "", defaultCurrency, r.Currency))

	id := types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE)
	for i, item := range items {
		item.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LINE_ITEM)
		item.InvoiceID = id
		item.Position = i
		item.CreatedAt = now.UTC()
	}

	return &invoice.Invoice{
		ID:         id,
		UserID:     types.GetTenantID(ctx),
		CustomerID: r.CustomerID,
		IssueDate:  issue.UTC(),
		DueDate:    due.UTC(),
		Currency:   currency,
		TaxRate:    r.TaxRate,
		Discount:   r.Discount,
		Status:     types.InvoiceStatusDraft,
		Notes:      r.Notes,
		LineItems:  items,
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}, nil
}

// UpdateInvoiceRequest is a partial update. LineItems, when present,
// replaces the whole set.
type UpdateInvoiceRequest struct {
	CustomerID *string              `json:"customer_id,omitempty" validate:"omitempty,min=1"`
	IssueDate  *time.Time           `json:"issue_date,omitempty"`
	DueDate    *time.Time           `json:"due_date,omitempty"`
	TaxRate    *decimal.Decimal     `json:"tax_rate,omitempty"`
	Discount   *decimal.Decimal     `json:"discount,omitempty"`
	Notes      *string              `json:"notes,omitempty"`
	Status     *types.InvoiceStatus `json:"status,omitempty"`
	LineItems  *[]LineItemRequest   `json:"line_items,omitempty"`
}

func (r *UpdateInvoiceRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.LineItems != nil && len(*r.LineItems) == 0 {
		return ierr.NewError("line items cannot be empty").
			WithHint("Invoice must have at least one line item").
			Mark(ierr.ErrValidation)
	}
	if r.Status != nil {
		if err := r.Status.Validate(); err != nil {
			return err
		}
	}
	if r.TaxRate != nil {
		if err := invoice.ValidateTaxRate(*r.TaxRate); err != nil {
			return err
		}
	}
	return nil
}

func (r *UpdateInvoiceRequest) ToPatch() (invoice.Patch, error) {
	patch := invoice.Patch{
		CustomerID: r.CustomerID,
		Notes:      r.Notes,
		TaxRate:    r.TaxRate,
		Discount:   r.Discount,
		Status:     r.Status,
	}
	if r.IssueDate != nil {
		patch.IssueDate = lo.ToPtr(r.IssueDate.UTC())
	}
	if r.DueDate != nil {
		patch.DueDate = lo.ToPtr(r.DueDate.UTC())
	}
	if r.LineItems != nil {
		items, err := toLineItems(*r.LineItems)
		if err != nil {
			return invoice.Patch{}, err
		}
		patch.LineItems = items
	}
	return patch, nil
}

type UpdateInvoiceStatusRequest struct {
	Status types.InvoiceStatus `json:"status" validate:"required"`
}

func (r *UpdateInvoiceStatusRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.Status.Validate()
}

// InvoiceResponse reports the status as of the time of the request, so a
// SENT invoice past its due date is returned as OVERDUE
type InvoiceResponse struct {
	*invoice.Invoice
	Status types.InvoiceStatus `json:"status"`
}

func NewInvoiceResponse(inv *invoice.Invoice, now time.Time) *InvoiceResponse {
	return &InvoiceResponse{
		Invoice: inv,
		Status:  inv.EffectiveStatus(now),
	}
}

type ListInvoicesResponse struct {
	Items      []*InvoiceResponse       `json:"items"`
	Pagination types.PaginationResponse `json:"pagination"`
}

type InvoiceSummaryResponse struct {
	InvoiceCount  int             `json:"invoice_count"`
	CustomerCount int             `json:"customer_count"`
	Revenue       decimal.Decimal `json:"revenue"`
	Pending       decimal.Decimal `json:"pending"`
}

type MarkOverdueResponse struct {
	Updated int64 `json:"updated"`
}

type ListPaymentsResponse struct {
	Items []*payment.Payment `json:"items"`
}
