package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/flexprice/invoicer/internal/api/dto"
	"github.com/flexprice/invoicer/internal/domain/invoice"
	"github.com/flexprice/invoicer/internal/domain/payment"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/integration/stripe"
	"github.com/flexprice/invoicer/internal/types"
)

const (
	WebhookStatusProcessed = "processed"
	WebhookStatusDuplicate = "duplicate"
	WebhookStatusPending   = "pending"
	WebhookStatusIgnored   = "ignored"

	maxCheckoutDescription = 500
)

// PaymentService starts hosted payments and reconciles processor
// notifications into invoice state
type PaymentService interface {
	CreatePaymentSession(ctx context.Context, req dto.CreatePaymentSessionRequest) (*dto.PaymentSessionResponse, error)

	// HandleWebhook verifies and applies one notification. It only returns
	// an error when the processor should redeliver or the signature is bad.
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*dto.WebhookResponse, error)
}

type paymentService struct {
	ServiceParams
	now func() time.Time
}

func NewPaymentService(params ServiceParams) PaymentService {
	return &paymentService{
		ServiceParams: params,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *paymentService) lockInvoice(ctx context.Context, id string) error {
	return s.DB.LockKey(ctx, types.LockRequest{
		Key: types.GenerateLockKey(ctx, types.LockScopeInvoicePayment, map[string]any{
			"invoice_id": id,
		}),
	})
}

func (s *paymentService) returnURL(invoiceID, outcome string) string {
	base := strings.TrimRight(s.Config.Stripe.AppBaseURL, "/")
	return fmt.Sprintf("%s/dashboard/invoices/%s?payment=%s", base, invoiceID, outcome)
}

func (s *paymentService) CreatePaymentSession(ctx context.Context, req dto.CreatePaymentSessionRequest) (*dto.PaymentSessionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	inv, err := s.InvoiceRepo.Get(ctx, req.InvoiceID)
	if err != nil {
		return nil, err
	}
	if err := inv.IsPayable(); err != nil {
		return nil, err
	}

	checkout := &stripe.CheckoutSessionRequest{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		UserID:        inv.UserID,
		Amount:        inv.Total,
		Currency:      inv.Currency,
		Description:   truncateRunes(strings.Join(inv.LineDescriptions(), ", "), maxCheckoutDescription),
		SuccessURL:    s.returnURL(inv.ID, "success"),
		CancelURL:     s.returnURL(inv.ID, "cancelled"),
	}
	if inv.Customer != nil {
		checkout.CustomerEmail = inv.Customer.Email
	}

	session, err := s.Stripe.CreateCheckoutSession(ctx, checkout)
	if err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.lockInvoice(ctx, inv.ID); err != nil {
			return err
		}

		// a payment may have landed while the session was being created
		current, err := s.InvoiceRepo.Get(ctx, inv.ID)
		if err != nil {
			return err
		}
		if err := current.IsPayable(); err != nil {
			return err
		}

		if err := s.InvoiceRepo.SetPaymentSession(ctx, inv.ID, session.ID, session.PaymentIntentID); err != nil {
			return err
		}

		_, err = s.InvoiceRepo.TransitionStatus(ctx, inv.ID, types.InvoiceStatusSent,
			invoice.AllowedFrom(types.InvoiceStatusSent, invoice.TriggerPaymentSession))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("created payment session",
		"invoice_id", inv.ID,
		"session_id", session.ID,
		"amount", inv.Total.String(),
	)

	return &dto.PaymentSessionResponse{
		SessionID: session.ID,
		URL:       session.URL,
	}, nil
}

func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*dto.WebhookResponse, error) {
	event, err := s.Stripe.ParseWebhookEvent(payload, signature)
	if err != nil {
		s.Logger.WithContext(ctx).Warnw("rejected stripe webhook", "error", err)
		return nil, err
	}

	log := s.Logger.WithContext(ctx)
	log.Infow("received stripe webhook",
		"event_id", event.ID,
		"event_type", event.Type,
		"invoice_id", event.InvoiceID,
	)

	if event.InvoiceID == "" {
		log.Debugw("webhook does not reference an invoice", "event_id", event.ID)
		return ack(WebhookStatusIgnored), nil
	}

	switch {
	case event.IsSuccess():
		return s.handlePaymentSucceeded(ctx, event)
	case event.Kind == payment.EventKindPaymentFailed:
		return s.handlePaymentFailed(ctx, event)
	case event.Kind == payment.EventKindCheckoutCompleted:
		// async payment methods settle later through payment_intent.succeeded
		return ack(WebhookStatusPending), nil
	default:
		return ack(WebhookStatusIgnored), nil
	}
}

// loadEventInvoice resolves the invoice named in the event metadata and
// scopes ctx to its owner. A nil invoice means the event should be ignored.
func (s *paymentService) loadEventInvoice(ctx context.Context, event *payment.WebhookEvent) (context.Context, *invoice.Invoice, error) {
	inv, err := s.InvoiceRepo.GetUnscoped(ctx, event.InvoiceID)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.WithContext(ctx).Warnw("webhook references unknown invoice",
				"event_id", event.ID,
				"invoice_id", event.InvoiceID,
			)
			return ctx, nil, nil
		}
		return ctx, nil, err
	}
	return types.SetTenantID(ctx, inv.UserID), inv, nil
}

func (s *paymentService) newPayment(inv *invoice.Invoice, event *payment.WebhookEvent, status types.PaymentStatus) *payment.Payment {
	now := s.now()
	p := &payment.Payment{
		ID:                    types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		InvoiceID:             inv.ID,
		StripePaymentIntentID: event.PaymentIntentID,
		StripeChargeID:        event.ChargeID,
		StripeEventID:         event.ID,
		Amount:                event.Amount,
		Currency:              event.Currency,
		Status:                status,
		PaymentMethod:         event.PaymentMethod,
		CreatedAt:             now,
	}
	if p.Amount.IsZero() {
		p.Amount = inv.Total
	}
	if p.Currency == "" {
		p.Currency = inv.Currency
	}
	if status == types.PaymentStatusSucceeded {
		p.PaidAt = &now
	}
	return p
}

func (s *paymentService) handlePaymentSucceeded(ctx context.Context, event *payment.WebhookEvent) (*dto.WebhookResponse, error) {
	ctx, inv, err := s.loadEventInvoice(ctx, event)
	if err != nil || inv == nil {
		return ack(WebhookStatusIgnored), err
	}

	log := s.Logger.WithContext(ctx)
	status := WebhookStatusProcessed

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.lockInvoice(ctx, inv.ID); err != nil {
			return err
		}

		current, err := s.InvoiceRepo.GetUnscoped(ctx, inv.ID)
		if err != nil {
			return err
		}

		var exists bool
		if event.PaymentIntentID != "" {
			exists, err = s.PaymentRepo.ExistsByPaymentIntent(ctx, inv.ID, event.PaymentIntentID, types.PaymentStatusSucceeded)
		} else {
			exists, err = s.PaymentRepo.ExistsByEventID(ctx, event.ID)
		}
		if err != nil {
			return err
		}

		if exists {
			status = WebhookStatusDuplicate
		} else if err := s.PaymentRepo.Create(ctx, s.newPayment(current, event, types.PaymentStatusSucceeded)); err != nil {
			return err
		}

		// sessions created on current API versions carry no payment intent
		// until the payment settles
		if _, err := s.InvoiceRepo.AttachPaymentIntent(ctx, inv.ID, event.PaymentIntentID); err != nil {
			return err
		}

		changed, err := s.InvoiceRepo.TransitionStatus(ctx, inv.ID, types.InvoiceStatusPaid,
			invoice.AllowedFrom(types.InvoiceStatusPaid, invoice.TriggerPaymentConfirmed))
		if err != nil {
			return err
		}

		switch {
		case changed:
			log.Infow("invoice paid",
				"invoice_id", inv.ID,
				"from", current.Status,
				"payment_intent_id", event.PaymentIntentID,
			)
		case current.Status == types.InvoiceStatusCancelled:
			log.Warnw("payment received for cancelled invoice",
				"invoice_id", inv.ID,
				"event_id", event.ID,
				"payment_intent_id", event.PaymentIntentID,
			)
		}
		return nil
	})
	if err != nil {
		log.Errorw("failed to reconcile payment", "invoice_id", inv.ID, "event_id", event.ID, "error", err)
		return nil, err
	}

	return ack(status), nil
}

func (s *paymentService) handlePaymentFailed(ctx context.Context, event *payment.WebhookEvent) (*dto.WebhookResponse, error) {
	ctx, inv, err := s.loadEventInvoice(ctx, event)
	if err != nil || inv == nil {
		return ack(WebhookStatusIgnored), err
	}

	status := WebhookStatusProcessed
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.lockInvoice(ctx, inv.ID); err != nil {
			return err
		}

		exists, err := s.PaymentRepo.ExistsByEventID(ctx, event.ID)
		if err != nil {
			return err
		}
		if exists {
			status = WebhookStatusDuplicate
			return nil
		}
		return s.PaymentRepo.Create(ctx, s.newPayment(inv, event, types.PaymentStatusFailed))
	})
	if err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("recorded failed payment",
		"invoice_id", inv.ID,
		"event_id", event.ID,
		"payment_intent_id", event.PaymentIntentID,
	)
	return ack(status), nil
}

func ack(status string) *dto.WebhookResponse {
	return &dto.WebhookResponse{Received: true, Status: status}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
