package stripe

import (
	"context"
	"errors"
	"testing"

	"github.com/flexprice/invoicer/internal/config"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
)

type fakeSessions struct {
	params *stripe.CheckoutSessionParams
	resp   *stripe.CheckoutSession
	err    error
}

func (f *fakeSessions) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.params = params
	return f.resp, f.err
}

func newRequest() *CheckoutSessionRequest {
	return &CheckoutSessionRequest{
		InvoiceID:     "inv_1",
		InvoiceNumber: "INV-202610-00001",
		UserID:        "user_1",
		Amount:        decimal.RequireFromString("124.20"),
		Currency:      "USD",
		Description:   "Design, Hosting",
		CustomerEmail: "billing@acme.test",
		SuccessURL:    "http://localhost:3000/dashboard/invoices/inv_1?payment=success",
		CancelURL:     "http://localhost:3000/dashboard/invoices/inv_1?payment=cancelled",
	}
}

func TestCreateCheckoutSession(t *testing.T) {
	fake := &fakeSessions{resp: &stripe.CheckoutSession{
		ID:            "cs_test_1",
		URL:           "https://checkout.stripe.com/c/pay/cs_test_1",
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_1"},
	}}
	c := &stripeClient{sessions: fake, logger: logger.NewNopLogger()}
	ctx := context.Background()

	session, err := c.CreateCheckoutSession(ctx, newRequest())
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", session.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", session.URL)
	require.NotNil(t, session.PaymentIntentID)
	assert.Equal(t, "pi_1", *session.PaymentIntentID)

	p := fake.params
	require.NotNil(t, p)
	assert.Equal(t, ctx, p.Context)
	assert.Equal(t, "payment", *p.Mode)
	assert.Equal(t, "billing@acme.test", *p.CustomerEmail)
	require.Len(t, p.LineItems, 1)
	assert.Equal(t, int64(12420), *p.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, "usd", *p.LineItems[0].PriceData.Currency)
	assert.Equal(t, int64(1), *p.LineItems[0].Quantity)
	assert.Equal(t, "Invoice INV-202610-00001", *p.LineItems[0].PriceData.ProductData.Name)
	assert.Equal(t, "inv_1", p.Metadata["invoice_id"])
	assert.Equal(t, "user_1", p.Metadata["user_id"])
	assert.Equal(t, "inv_1", p.PaymentIntentData.Metadata["invoice_id"])
}

func TestCreateCheckoutSession_NoPaymentIntentYet(t *testing.T) {
	fake := &fakeSessions{resp: &stripe.CheckoutSession{ID: "cs_test_2", URL: "https://checkout.stripe.com/x"}}
	c := &stripeClient{sessions: fake, logger: logger.NewNopLogger()}

	session, err := c.CreateCheckoutSession(context.Background(), newRequest())
	require.NoError(t, err)
	assert.Nil(t, session.PaymentIntentID)
}

func TestCreateCheckoutSession_Errors(t *testing.T) {
	log := logger.NewNopLogger()

	c := &stripeClient{logger: log}
	_, err := c.CreateCheckoutSession(context.Background(), newRequest())
	assert.True(t, ierr.Is(err, ierr.ErrSystem))

	c = &stripeClient{sessions: &fakeSessions{err: errors.New("card_error")}, logger: log}
	_, err = c.CreateCheckoutSession(context.Background(), newRequest())
	assert.True(t, ierr.Is(err, ierr.ErrHTTPClient))
	assert.Equal(t, 502, ierr.HTTPStatusFromErr(err))

	req := newRequest()
	req.Amount = decimal.Zero
	c = &stripeClient{sessions: &fakeSessions{}, logger: log}
	_, err = c.CreateCheckoutSession(context.Background(), req)
	assert.True(t, ierr.IsValidation(err))
}

func TestNewClient_WithoutKey(t *testing.T) {
	cfg := config.GetDefaultConfig()
	c := NewClient(cfg, logger.NewNopLogger()).(*stripeClient)
	assert.Nil(t, c.sessions)

	cfg.Stripe.SecretKey = "sk_test_123"
	c = NewClient(cfg, logger.NewNopLogger()).(*stripeClient)
	assert.NotNil(t, c.sessions)
}
