package testutil

import (
	"context"
	"sync"

	"github.com/flexprice/invoicer/internal/domain/payment"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/integration/stripe"
	"github.com/samber/lo"
)

// FakeStripeClient implements stripe.Client. Any non-empty signature equal
// to Signature is accepted and returns Event.
type FakeStripeClient struct {
	mu sync.Mutex

	Signature  string
	Event      *payment.WebhookEvent
	SessionErr error
	// DeferPaymentIntent makes sessions come back without a payment intent,
	// as the processor does until the customer pays
	DeferPaymentIntent bool

	requests []*stripe.CheckoutSessionRequest
}

func NewFakeStripeClient() *FakeStripeClient {
	return &FakeStripeClient{Signature: "t=1,v1=valid"}
}

func (f *FakeStripeClient) CreateCheckoutSession(_ context.Context, req *stripe.CheckoutSessionRequest) (*stripe.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SessionErr != nil {
		return nil, f.SessionErr
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	copied := *req
	f.requests = append(f.requests, &copied)

	session := &stripe.CheckoutSession{
		ID:  "cs_test_" + req.InvoiceID,
		URL: "https://checkout.stripe.test/c/pay/cs_test_" + req.InvoiceID,
	}
	if !f.DeferPaymentIntent {
		session.PaymentIntentID = lo.ToPtr("pi_test_" + req.InvoiceID)
	}
	return session, nil
}

func (f *FakeStripeClient) ParseWebhookEvent(_ []byte, signature string) (*payment.WebhookEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if signature == "" || signature != f.Signature {
		return nil, ierr.NewError("invalid webhook signature").
			WithHint("Webhook signature could not be verified").
			Mark(ierr.ErrUnauthenticated)
	}
	if f.Event == nil {
		return &payment.WebhookEvent{Kind: payment.EventKindUnknown}, nil
	}
	event := *f.Event
	return &event, nil
}

// Requests returns the checkout sessions requested so far
func (f *FakeStripeClient) Requests() []*stripe.CheckoutSessionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*stripe.CheckoutSessionRequest(nil), f.requests...)
}
