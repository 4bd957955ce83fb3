package gorm

import (
	"context"

	domainPayment "github.com/flexprice/invoicer/internal/domain/payment"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/postgres"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/samber/lo"
)

// paymentRepository is not tenant scoped; callers resolve the invoice
// through the tenant scoped invoice repository first.
type paymentRepository struct {
	client postgres.IClient
	log    *logger.Logger
}

func NewPaymentRepository(client postgres.IClient, log *logger.Logger) domainPayment.Repository {
	return &paymentRepository{
		client: client,
		log:    log,
	}
}

func (r *paymentRepository) Create(ctx context.Context, p *domainPayment.Payment) error {
	r.log.Debugw("recording payment",
		"payment_id", p.ID,
		"invoice_id", p.InvoiceID,
		"status", p.Status,
		"stripe_event_id", p.StripeEventID,
	)

	if err := r.client.DB(ctx).Create(paymentToModel(p)).Error; err != nil {
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("Payment already recorded").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to record payment").
			WithReportableDetails(map[string]any{"invoice_id": p.InvoiceID}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *paymentRepository) ListByInvoice(ctx context.Context, invoiceID string) ([]*domainPayment.Payment, error) {
	var rows []PaymentModel
	err := r.client.DB(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list payments").
			Mark(ierr.ErrDatabase)
	}

	return lo.Map(rows, func(m PaymentModel, _ int) *domainPayment.Payment {
		return paymentFromModel(&m)
	}), nil
}

func (r *paymentRepository) ExistsByPaymentIntent(ctx context.Context, invoiceID, paymentIntentID string, status types.PaymentStatus) (bool, error) {
	var count int64
	err := r.client.DB(ctx).
		Model(&PaymentModel{}).
		Where("invoice_id = ? AND stripe_payment_intent_id = ? AND status = ?", invoiceID, paymentIntentID, status).
		Count(&count).Error
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to look up payment").
			Mark(ierr.ErrDatabase)
	}
	return count > 0, nil
}

func (r *paymentRepository) ExistsByEventID(ctx context.Context, eventID string) (bool, error) {
	var count int64
	err := r.client.DB(ctx).
		Model(&PaymentModel{}).
		Where("stripe_event_id = ?", eventID).
		Count(&count).Error
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to look up payment").
			Mark(ierr.ErrDatabase)
	}
	return count > 0, nil
}
