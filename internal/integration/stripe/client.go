package stripe

import (
	"context"
	"strings"

	"github.com/flexprice/invoicer/internal/config"
	"github.com/flexprice/invoicer/internal/domain/payment"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// Client is the payment processor handle used by the payment service
type Client interface {
	CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (*CheckoutSession, error)

	// ParseWebhookEvent verifies the signature header and maps the payload
	// to a processor independent event
	ParseWebhookEvent(payload []byte, signature string) (*payment.WebhookEvent, error)
}

// sessionCreator is the part of the stripe checkout session client we use
type sessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type stripeClient struct {
	sessions      sessionCreator
	webhookSecret string
	logger        *logger.Logger
}

func NewClient(cfg *config.Configuration, log *logger.Logger) Client {
	var sessions sessionCreator
	if cfg.Stripe.SecretKey != "" {
		sessions = client.New(cfg.Stripe.SecretKey, nil).CheckoutSessions
	} else {
		log.Warnw("stripe secret key not configured, checkout sessions are disabled")
	}

	return &stripeClient{
		sessions:      sessions,
		webhookSecret: cfg.Stripe.WebhookSecret,
		logger:        log,
	}
}

func (c *stripeClient) CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (*CheckoutSession, error) {
	if c.sessions == nil {
		return nil, ierr.NewError("stripe is not configured").
			WithHint("Card payments are not available").
			Mark(ierr.ErrSystem)
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	metadata := map[string]string{
		types.MetadataKeyInvoiceID:     req.InvoiceID,
		types.MetadataKeyInvoiceNumber: req.InvoiceNumber,
		types.MetadataKeyUserID:        req.UserID,
	}
	currency := strings.ToLower(req.Currency)

	productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String("Invoice " + req.InvoiceNumber),
	}
	if req.Description != "" {
		productData.Description = stripe.String(req.Description)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:    stripe.String(currency),
					UnitAmount:  stripe.Int64(types.ToMinorUnits(req.Amount, currency)),
					ProductData: productData,
				},
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.Metadata = metadata
	params.Context = ctx
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}

	c.logger.Debugw("creating stripe checkout session",
		"invoice_id", req.InvoiceID,
		"amount", req.Amount.String(),
		"currency", currency,
	)

	session, err := c.sessions.New(params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to create payment session").
			WithReportableDetails(map[string]any{
				"invoice_id": req.InvoiceID,
			}).
			Mark(ierr.ErrHTTPClient)
	}

	out := &CheckoutSession{
		ID:  session.ID,
		URL: session.URL,
	}
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		out.PaymentIntentID = stripe.String(session.PaymentIntent.ID)
	}
	return out, nil
}
