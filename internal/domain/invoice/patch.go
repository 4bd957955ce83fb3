package invoice

import (
	"time"

	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Patch is a partial invoice update. A nil field keeps the stored value; a
// non-nil LineItems replaces the full set of line items.
type Patch struct {
	CustomerID *string
	IssueDate  *time.Time
	DueDate    *time.Time
	TaxRate    *decimal.Decimal
	Discount   *decimal.Decimal
	Notes      *string
	Status     *types.InvoiceStatus
	LineItems  []*LineItem
}

// ReplacesLineItems reports whether the patch carries a new line item set
func (p Patch) ReplacesLineItems() bool {
	return p.LineItems != nil
}

// changesContent reports whether anything other than notes and status is set
func (p Patch) changesContent() bool {
	return p.CustomerID != nil ||
		p.IssueDate != nil ||
		p.DueDate != nil ||
		p.TaxRate != nil ||
		p.Discount != nil ||
		p.LineItems != nil
}

// ApplyPatch merges p into the invoice, replaces line items when given,
// recomputes totals and applies any status change through the state machine.
// Content edits on paid or cancelled invoices are rejected. The invoice is
// left unchanged on error.
func (inv *Invoice) ApplyPatch(p Patch) error {
	if IsTerminal(inv.Status) && p.changesContent() {
		return ierr.NewErrorf("invoice is %s", inv.Status).
			WithHintf("A %s invoice can no longer be edited", inv.Status).
			WithReportableDetails(map[string]any{
				"invoice_id": inv.ID,
				"status":     inv.Status,
			}).
			Mark(ierr.ErrInvalidState)
	}

	next := *inv
	next.CustomerID = lo.FromPtrOr(p.CustomerID, inv.CustomerID)
	next.IssueDate = lo.FromPtrOr(p.IssueDate, inv.IssueDate)
	next.DueDate = lo.FromPtrOr(p.DueDate, inv.DueDate)
	next.TaxRate = lo.FromPtrOr(p.TaxRate, inv.TaxRate)
	next.Discount = lo.FromPtrOr(p.Discount, inv.Discount)
	next.Notes = lo.FromPtrOr(p.Notes, inv.Notes)
	if next.CustomerID != inv.CustomerID {
		next.Customer = nil
	}

	source := inv.LineItems
	if p.ReplacesLineItems() {
		source = p.LineItems
	}
	next.LineItems = make([]*LineItem, len(source))
	for idx, item := range source {
		if item == nil {
			continue
		}
		copied := *item
		if p.ReplacesLineItems() {
			copied.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LINE_ITEM)
			copied.Amount = decimal.Zero
		}
		copied.InvoiceID = inv.ID
		copied.Position = idx
		next.LineItems[idx] = &copied
	}

	if p.Status != nil {
		if err := Transition(inv.Status, *p.Status, TriggerIssuer); err != nil {
			return err
		}
		next.Status = *p.Status
	}

	if err := next.Validate(); err != nil {
		return err
	}

	if err := next.Recalculate(); err != nil {
		return err
	}

	*inv = next
	return nil
}
