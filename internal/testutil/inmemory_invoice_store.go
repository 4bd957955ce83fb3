package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/flexprice/invoicer/internal/domain/invoice"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// InMemoryInvoiceStore implements invoice.Repository. Line items live on the
// stored invoice so deleting an invoice removes them with it.
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]
	customers *InMemoryCustomerStore

	seqMu     sync.Mutex
	sequences map[string]int64
}

func NewInMemoryInvoiceStore(customers *InMemoryCustomerStore) *InMemoryInvoiceStore {
	s := &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*invoice.Invoice](),
		customers:     customers,
		sequences:     make(map[string]int64),
	}
	if customers != nil {
		customers.invoices = s
	}
	return s
}

func copyInvoice(inv *invoice.Invoice) *invoice.Invoice {
	if inv == nil {
		return nil
	}
	copied := *inv
	copied.Customer = nil
	copied.LineItems = lo.Map(inv.LineItems, func(item *invoice.LineItem, _ int) *invoice.LineItem {
		li := *item
		return &li
	})
	if inv.StripePaymentIntentID != nil {
		copied.StripePaymentIntentID = lo.ToPtr(*inv.StripePaymentIntentID)
	}
	if inv.StripeCheckoutSessionID != nil {
		copied.StripeCheckoutSessionID = lo.ToPtr(*inv.StripeCheckoutSessionID)
	}
	return &copied
}

func invoiceNotFound(id string) error {
	return ierr.NewErrorf("invoice %s not found", id).
		WithHintf("Invoice with ID %s was not found", id).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryInvoiceStore) withCustomer(ctx context.Context, inv *invoice.Invoice) *invoice.Invoice {
	if s.customers == nil {
		return inv
	}
	if c, err := s.customers.InMemoryStore.Get(ctx, inv.CustomerID); err == nil {
		inv.Customer = copyCustomer(c)
	}
	return inv
}

func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil {
		return ierr.NewError("invoice cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if inv.UserID == "" {
		inv.UserID = types.GetTenantID(ctx)
	}
	dup := s.InMemoryStore.Count(ctx, nil, func(_ context.Context, other *invoice.Invoice, _ any) bool {
		return other.UserID == inv.UserID && other.InvoiceNumber == inv.InvoiceNumber
	})
	if dup > 0 {
		return ierr.NewErrorf("invoice number %s already exists", inv.InvoiceNumber).
			WithHint("An invoice with this number already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	return s.InMemoryStore.Create(ctx, inv.ID, copyInvoice(inv))
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil || inv.UserID != types.GetTenantID(ctx) {
		return nil, invoiceNotFound(id)
	}
	return s.withCustomer(ctx, copyInvoice(inv)), nil
}

func (s *InMemoryInvoiceStore) GetUnscoped(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, invoiceNotFound(id)
	}
	return s.withCustomer(ctx, copyInvoice(inv)), nil
}

func (s *InMemoryInvoiceStore) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	if filter == nil {
		filter = types.NewInvoiceFilter()
	}
	items := s.InMemoryStore.List(ctx, filter, invoiceFilterFn, invoiceSortFn)
	return lo.Map(items, func(inv *invoice.Invoice, _ int) *invoice.Invoice {
		return s.withCustomer(ctx, copyInvoice(inv))
	}), nil
}

func (s *InMemoryInvoiceStore) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	if filter == nil {
		filter = types.NewInvoiceFilter()
	}
	return s.InMemoryStore.Count(ctx, filter, invoiceFilterFn), nil
}

func (s *InMemoryInvoiceStore) Update(ctx context.Context, inv *invoice.Invoice) error {
	if _, err := s.Get(ctx, inv.ID); err != nil {
		return err
	}
	return s.InMemoryStore.Mutate(ctx, inv.ID, func(stored *invoice.Invoice) *invoice.Invoice {
		updated := copyInvoice(inv)
		updated.LineItems = stored.LineItems
		return updated
	})
}

func (s *InMemoryInvoiceStore) ReplaceLineItems(ctx context.Context, invoiceID string, items []*invoice.LineItem) error {
	if _, err := s.Get(ctx, invoiceID); err != nil {
		return err
	}
	return s.InMemoryStore.Mutate(ctx, invoiceID, func(stored *invoice.Invoice) *invoice.Invoice {
		updated := copyInvoice(stored)
		updated.LineItems = copyInvoice(&invoice.Invoice{LineItems: items}).LineItems
		return updated
	})
}

func (s *InMemoryInvoiceStore) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.InMemoryStore.Delete(ctx, id)
}

func (s *InMemoryInvoiceStore) TransitionStatus(ctx context.Context, id string, to types.InvoiceStatus, allowedFrom []types.InvoiceStatus) (bool, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return false, nil
	}
	changed := false
	err := s.InMemoryStore.Mutate(ctx, id, func(stored *invoice.Invoice) *invoice.Invoice {
		if !lo.Contains(allowedFrom, stored.Status) {
			return stored
		}
		updated := copyInvoice(stored)
		updated.Status = to
		updated.UpdatedAt = time.Now().UTC()
		changed = true
		return updated
	})
	return changed, err
}

func (s *InMemoryInvoiceStore) SetPaymentSession(ctx context.Context, id, sessionID string, paymentIntentID *string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.InMemoryStore.Mutate(ctx, id, func(stored *invoice.Invoice) *invoice.Invoice {
		updated := copyInvoice(stored)
		updated.StripeCheckoutSessionID = lo.ToPtr(sessionID)
		if paymentIntentID != nil {
			updated.StripePaymentIntentID = lo.ToPtr(*paymentIntentID)
		}
		return updated
	})
}

func (s *InMemoryInvoiceStore) AttachPaymentIntent(ctx context.Context, id, paymentIntentID string) (bool, error) {
	if paymentIntentID == "" {
		return false, nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return false, nil
	}
	changed := false
	err := s.InMemoryStore.Mutate(ctx, id, func(stored *invoice.Invoice) *invoice.Invoice {
		if lo.FromPtr(stored.StripePaymentIntentID) != "" {
			return stored
		}
		updated := copyInvoice(stored)
		updated.StripePaymentIntentID = lo.ToPtr(paymentIntentID)
		changed = true
		return updated
	})
	return changed, err
}

func (s *InMemoryInvoiceStore) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	due := s.InMemoryStore.Filter(ctx, nil, func(ctx context.Context, inv *invoice.Invoice, _ any) bool {
		return inv.UserID == types.GetTenantID(ctx) &&
			inv.Status == types.InvoiceStatusSent &&
			inv.DueDate.Before(now)
	}, nil)

	var count int64
	for _, inv := range due {
		changed, err := s.TransitionStatus(ctx, inv.ID, types.InvoiceStatusOverdue, []types.InvoiceStatus{types.InvoiceStatusSent})
		if err != nil {
			return count, err
		}
		if changed {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryInvoiceStore) NextInvoiceSequence(_ context.Context, tenantID, yearMonth string) (int64, error) {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()

	key := tenantID + ":" + yearMonth
	s.sequences[key]++
	return s.sequences[key], nil
}

func (s *InMemoryInvoiceStore) Summary(ctx context.Context) (*invoice.Summary, error) {
	items := s.InMemoryStore.Filter(ctx, types.NewInvoiceFilter(), invoiceFilterFn, nil)
	summary := &invoice.Summary{
		InvoiceCount: len(items),
		Revenue:      decimal.Zero,
		Pending:      decimal.Zero,
	}
	for _, inv := range items {
		switch inv.Status {
		case types.InvoiceStatusPaid:
			summary.Revenue = summary.Revenue.Add(inv.Total)
		case types.InvoiceStatusSent, types.InvoiceStatusOverdue:
			summary.Pending = summary.Pending.Add(inv.Total)
		}
	}
	return summary, nil
}

func invoiceFilterFn(ctx context.Context, inv *invoice.Invoice, filter any) bool {
	if inv.UserID != types.GetTenantID(ctx) {
		return false
	}
	f, ok := filter.(*types.InvoiceFilter)
	if !ok {
		return true
	}
	if f.Status != nil && inv.Status != *f.Status {
		return false
	}
	if f.CustomerID != "" && inv.CustomerID != f.CustomerID {
		return false
	}
	return true
}

func invoiceSortFn(a, b *invoice.Invoice) bool {
	return a.CreatedAt.After(b.CreatedAt)
}
