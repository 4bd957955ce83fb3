package testutil

import (
	"context"

	"github.com/flexprice/invoicer/internal/domain/payment"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/types"
)

// InMemoryPaymentStore implements payment.Repository
type InMemoryPaymentStore struct {
	*InMemoryStore[*payment.Payment]
}

func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		InMemoryStore: NewInMemoryStore[*payment.Payment](),
	}
}

func copyPayment(p *payment.Payment) *payment.Payment {
	copied := *p
	return &copied
}

func (s *InMemoryPaymentStore) Create(ctx context.Context, p *payment.Payment) error {
	if p == nil {
		return ierr.NewError("payment cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, p.ID, copyPayment(p))
}

func (s *InMemoryPaymentStore) ListByInvoice(ctx context.Context, invoiceID string) ([]*payment.Payment, error) {
	items := s.InMemoryStore.Filter(ctx, nil, func(_ context.Context, p *payment.Payment, _ any) bool {
		return p.InvoiceID == invoiceID
	}, func(a, b *payment.Payment) bool {
		return a.CreatedAt.Before(b.CreatedAt)
	})
	out := make([]*payment.Payment, len(items))
	for i, p := range items {
		out[i] = copyPayment(p)
	}
	return out, nil
}

func (s *InMemoryPaymentStore) ExistsByPaymentIntent(ctx context.Context, invoiceID, paymentIntentID string, status types.PaymentStatus) (bool, error) {
	n := s.InMemoryStore.Count(ctx, nil, func(_ context.Context, p *payment.Payment, _ any) bool {
		return p.InvoiceID == invoiceID &&
			p.StripePaymentIntentID == paymentIntentID &&
			p.Status == status
	})
	return n > 0, nil
}

func (s *InMemoryPaymentStore) ExistsByEventID(ctx context.Context, eventID string) (bool, error) {
	n := s.InMemoryStore.Count(ctx, nil, func(_ context.Context, p *payment.Payment, _ any) bool {
		return p.StripeEventID == eventID
	})
	return n > 0, nil
}
