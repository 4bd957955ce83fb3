package testutil

import (
	"context"
	"strings"

	"github.com/flexprice/invoicer/internal/domain/customer"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/types"
)

// InMemoryCustomerStore implements customer.Repository
type InMemoryCustomerStore struct {
	*InMemoryStore[*customer.Customer]
	invoices *InMemoryInvoiceStore
}

func NewInMemoryCustomerStore() *InMemoryCustomerStore {
	return &InMemoryCustomerStore{
		InMemoryStore: NewInMemoryStore[*customer.Customer](),
	}
}

func copyCustomer(c *customer.Customer) *customer.Customer {
	if c == nil {
		return nil
	}
	copied := *c
	return &copied
}

func customerNotFound(id string) error {
	return ierr.NewErrorf("customer %s not found", id).
		WithHintf("Customer with ID %s was not found", id).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryCustomerStore) Create(ctx context.Context, c *customer.Customer) error {
	if c == nil {
		return ierr.NewError("customer cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if c.UserID == "" {
		c.UserID = types.GetTenantID(ctx)
	}
	return s.InMemoryStore.Create(ctx, c.ID, copyCustomer(c))
}

func (s *InMemoryCustomerStore) Get(ctx context.Context, id string) (*customer.Customer, error) {
	c, err := s.InMemoryStore.Get(ctx, id)
	if err != nil || c.UserID != types.GetTenantID(ctx) {
		return nil, customerNotFound(id)
	}
	return copyCustomer(c), nil
}

func (s *InMemoryCustomerStore) List(ctx context.Context, filter *types.CustomerFilter) ([]*customer.Customer, error) {
	if filter == nil {
		filter = types.NewCustomerFilter()
	}
	items := s.InMemoryStore.List(ctx, filter, customerFilterFn, customerSortFn)
	out := make([]*customer.Customer, len(items))
	for i, c := range items {
		out[i] = copyCustomer(c)
	}
	return out, nil
}

func (s *InMemoryCustomerStore) Count(ctx context.Context, filter *types.CustomerFilter) (int, error) {
	if filter == nil {
		filter = types.NewCustomerFilter()
	}
	return s.InMemoryStore.Count(ctx, filter, customerFilterFn), nil
}

func (s *InMemoryCustomerStore) Update(ctx context.Context, c *customer.Customer) error {
	if _, err := s.Get(ctx, c.ID); err != nil {
		return err
	}
	return s.InMemoryStore.Update(ctx, c.ID, copyCustomer(c))
}

func (s *InMemoryCustomerStore) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.InMemoryStore.Delete(ctx, id)
}

func (s *InMemoryCustomerStore) HasInvoices(ctx context.Context, id string) (bool, error) {
	if s.invoices == nil {
		return false, nil
	}
	filter := types.NewInvoiceFilter()
	filter.CustomerID = id
	return s.invoices.InMemoryStore.Count(ctx, filter, invoiceFilterFn) > 0, nil
}

func customerFilterFn(ctx context.Context, c *customer.Customer, filter any) bool {
	if c.UserID != types.GetTenantID(ctx) {
		return false
	}
	f, ok := filter.(*types.CustomerFilter)
	if !ok {
		return true
	}
	if f.Email != "" && !strings.EqualFold(c.Email, f.Email) {
		return false
	}
	return true
}

func customerSortFn(a, b *customer.Customer) bool {
	return a.CreatedAt.After(b.CreatedAt)
}
