package gorm

import (
	"context"
	"errors"
	"time"

	domainInvoice "github.com/flexprice/invoicer/internal/domain/invoice"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/postgres"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var invoiceSortColumns = []string{"created_at", "updated_at", "issue_date", "due_date", "total", "invoice_number", "status"}

type invoiceRepository struct {
	client postgres.IClient
	log    *logger.Logger
}

func NewInvoiceRepository(client postgres.IClient, log *logger.Logger) domainInvoice.Repository {
	return &invoiceRepository{
		client: client,
		log:    log,
	}
}

func (r *invoiceRepository) Create(ctx context.Context, inv *domainInvoice.Invoice) error {
	r.log.Debugw("creating invoice",
		"invoice_id", inv.ID,
		"tenant_id", inv.UserID,
		"invoice_number", inv.InvoiceNumber,
		"line_items", len(inv.LineItems),
	)

	err := r.client.WithTx(ctx, func(ctx context.Context) error {
		return r.client.DB(ctx).Omit("Customer", "Payments").Create(invoiceToModel(inv)).Error
	})
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("Invoice with this number already exists").
				WithReportableDetails(map[string]any{
					"invoice_id":     inv.ID,
					"invoice_number": inv.InvoiceNumber,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create invoice").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*domainInvoice.Invoice, error) {
	return r.get(ctx, r.client.DB(ctx).Where("user_id = ?", types.GetTenantID(ctx)), id)
}

func (r *invoiceRepository) GetUnscoped(ctx context.Context, id string) (*domainInvoice.Invoice, error) {
	return r.get(ctx, r.client.DB(ctx), id)
}

func (r *invoiceRepository) get(_ context.Context, q *gorm.DB, id string) (*domainInvoice.Invoice, error) {
	var m InvoiceModel
	err := withAssociations(q).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ierr.WithError(err).
				WithHintf("Invoice with ID %s was not found", id).
				WithReportableDetails(map[string]any{"invoice_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHintf("Failed to get invoice with ID %s", id).
			Mark(ierr.ErrDatabase)
	}
	return invoiceFromModel(&m), nil
}

func withAssociations(q *gorm.DB) *gorm.DB {
	return q.
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Customer")
}

func (r *invoiceRepository) List(ctx context.Context, filter *types.InvoiceFilter) ([]*domainInvoice.Invoice, error) {
	if filter == nil {
		filter = types.NewInvoiceFilter()
	}

	var rows []InvoiceModel
	err := withAssociations(r.filtered(ctx, filter)).
		Order(orderClause(filter.QueryFilter, invoiceSortColumns)).
		Limit(filter.GetLimit()).
		Offset(filter.GetOffset()).
		Find(&rows).Error
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list invoices").
			Mark(ierr.ErrDatabase)
	}

	return lo.Map(rows, func(m InvoiceModel, _ int) *domainInvoice.Invoice {
		return invoiceFromModel(&m)
	}), nil
}

func (r *invoiceRepository) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	if filter == nil {
		filter = types.NewInvoiceFilter()
	}

	var count int64
	if err := r.filtered(ctx, filter).Count(&count).Error; err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count invoices").
			Mark(ierr.ErrDatabase)
	}
	return int(count), nil
}

func (r *invoiceRepository) filtered(ctx context.Context, filter *types.InvoiceFilter) *gorm.DB {
	q := r.client.DB(ctx).Model(&InvoiceModel{}).Where("user_id = ?", types.GetTenantID(ctx))
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.CustomerID != "" {
		q = q.Where("customer_id = ?", filter.CustomerID)
	}
	return q
}

func (r *invoiceRepository) Update(ctx context.Context, inv *domainInvoice.Invoice) error {
	return r.update(ctx, inv.ID, map[string]interface{}{
		"customer_id": inv.CustomerID,
		"issue_date":  inv.IssueDate.UTC(),
		"due_date":    inv.DueDate.UTC(),
		"tax_rate":    inv.TaxRate,
		"discount":    inv.Discount,
		"subtotal":    inv.Subtotal,
		"tax_amount":  inv.TaxAmount,
		"total":       inv.Total,
		"status":      inv.Status,
		"notes":       inv.Notes,
		"updated_at":  inv.UpdatedAt.UTC(),
	})
}

func (r *invoiceRepository) update(ctx context.Context, id string, values map[string]interface{}) error {
	result := r.client.DB(ctx).
		Model(&InvoiceModel{}).
		Where("id = ? AND user_id = ?", id, types.GetTenantID(ctx)).
		Updates(values)
	if result.Error != nil {
		return ierr.WithError(result.Error).
			WithHint("Failed to update invoice").
			WithReportableDetails(map[string]any{"invoice_id": id}).
			Mark(ierr.ErrDatabase)
	}
	if result.RowsAffected == 0 {
		return ierr.NewErrorf("invoice %s not found", id).
			WithHintf("Invoice with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *invoiceRepository) ReplaceLineItems(ctx context.Context, invoiceID string, items []*domainInvoice.LineItem) error {
	return r.client.WithTx(ctx, func(ctx context.Context) error {
		db := r.client.DB(ctx)
		if err := db.Where("invoice_id = ?", invoiceID).Delete(&LineItemModel{}).Error; err != nil {
			return ierr.WithError(err).
				WithHint("Failed to remove invoice line items").
				Mark(ierr.ErrDatabase)
		}

		if len(items) == 0 {
			return nil
		}

		models := lo.Map(items, func(i *domainInvoice.LineItem, _ int) LineItemModel {
			m := lineItemToModel(i)
			m.InvoiceID = invoiceID
			return m
		})
		if err := db.CreateInBatches(models, 100).Error; err != nil {
			return ierr.WithError(err).
				WithHint("Failed to save invoice line items").
				Mark(ierr.ErrDatabase)
		}
		return nil
	})
}

func (r *invoiceRepository) Delete(ctx context.Context, id string) error {
	return r.client.WithTx(ctx, func(ctx context.Context) error {
		db := r.client.DB(ctx)

		result := db.Where("id = ? AND user_id = ?", id, types.GetTenantID(ctx)).Delete(&InvoiceModel{})
		if result.Error != nil {
			return ierr.WithError(result.Error).
				WithHint("Failed to delete invoice").
				Mark(ierr.ErrDatabase)
		}
		if result.RowsAffected == 0 {
			return ierr.NewErrorf("invoice %s not found", id).
				WithHintf("Invoice with ID %s was not found", id).
				Mark(ierr.ErrNotFound)
		}

		// explicit so dialects without enforced foreign keys cascade too
		if err := db.Where("invoice_id = ?", id).Delete(&LineItemModel{}).Error; err != nil {
			return ierr.WithError(err).
				WithHint("Failed to delete invoice line items").
				Mark(ierr.ErrDatabase)
		}
		if err := db.Where("invoice_id = ?", id).Delete(&PaymentModel{}).Error; err != nil {
			return ierr.WithError(err).
				WithHint("Failed to delete invoice payments").
				Mark(ierr.ErrDatabase)
		}
		return nil
	})
}

func (r *invoiceRepository) TransitionStatus(ctx context.Context, id string, to types.InvoiceStatus, allowedFrom []types.InvoiceStatus) (bool, error) {
	if len(allowedFrom) == 0 {
		return false, nil
	}

	result := r.client.DB(ctx).
		Model(&InvoiceModel{}).
		Where("id = ? AND user_id = ? AND status IN ?", id, types.GetTenantID(ctx), allowedFrom).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, ierr.WithError(result.Error).
			WithHint("Failed to update invoice status").
			WithReportableDetails(map[string]any{
				"invoice_id": id,
				"status":     to,
			}).
			Mark(ierr.ErrDatabase)
	}
	return result.RowsAffected > 0, nil
}

func (r *invoiceRepository) SetPaymentSession(ctx context.Context, id, sessionID string, paymentIntentID *string) error {
	values := map[string]interface{}{
		"stripe_checkout_session_id": sessionID,
		"updated_at":                 time.Now().UTC(),
	}
	if paymentIntentID != nil {
		values["stripe_payment_intent_id"] = *paymentIntentID
	}
	return r.update(ctx, id, values)
}

func (r *invoiceRepository) AttachPaymentIntent(ctx context.Context, id, paymentIntentID string) (bool, error) {
	if paymentIntentID == "" {
		return false, nil
	}

	result := r.client.DB(ctx).
		Model(&InvoiceModel{}).
		Where("id = ? AND user_id = ?", id, types.GetTenantID(ctx)).
		Where("stripe_payment_intent_id IS NULL OR stripe_payment_intent_id = ''").
		Updates(map[string]interface{}{
			"stripe_payment_intent_id": paymentIntentID,
			"updated_at":               time.Now().UTC(),
		})
	if result.Error != nil {
		return false, ierr.WithError(result.Error).
			WithHint("Failed to store payment reference").
			WithReportableDetails(map[string]any{
				"invoice_id":        id,
				"payment_intent_id": paymentIntentID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return result.RowsAffected > 0, nil
}

func (r *invoiceRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	result := r.client.DB(ctx).
		Model(&InvoiceModel{}).
		Where("user_id = ? AND status = ? AND due_date < ?", types.GetTenantID(ctx), types.InvoiceStatusSent, now.UTC()).
		Updates(map[string]interface{}{
			"status":     types.InvoiceStatusOverdue,
			"updated_at": now.UTC(),
		})
	if result.Error != nil {
		return 0, ierr.WithError(result.Error).
			WithHint("Failed to mark overdue invoices").
			Mark(ierr.ErrDatabase)
	}
	return result.RowsAffected, nil
}

func (r *invoiceRepository) NextInvoiceSequence(ctx context.Context, tenantID, yearMonth string) (int64, error) {
	var seq int64
	err := r.client.DB(ctx).Raw(`
		INSERT INTO invoice_sequences (user_id, year_month, last_value, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT (user_id, year_month)
		DO UPDATE SET last_value = invoice_sequences.last_value + 1, updated_at = excluded.updated_at
		RETURNING last_value
	`, tenantID, yearMonth, time.Now().UTC()).Scan(&seq).Error
	if err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to generate invoice number").
			WithReportableDetails(map[string]any{
				"tenant_id":  tenantID,
				"year_month": yearMonth,
			}).
			Mark(ierr.ErrDatabase)
	}
	return seq, nil
}

type statusTotal struct {
	Status types.InvoiceStatus
	Count  int64
	Total  decimal.Decimal
}

func (r *invoiceRepository) Summary(ctx context.Context) (*domainInvoice.Summary, error) {
	var rows []statusTotal
	err := r.client.DB(ctx).
		Model(&InvoiceModel{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total), 0) AS total").
		Where("user_id = ?", types.GetTenantID(ctx)).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to summarize invoices").
			Mark(ierr.ErrDatabase)
	}

	summary := &domainInvoice.Summary{Revenue: decimal.Zero, Pending: decimal.Zero}
	for _, row := range rows {
		summary.InvoiceCount += int(row.Count)
		switch row.Status {
		case types.InvoiceStatusPaid:
			summary.Revenue = summary.Revenue.Add(row.Total)
		case types.InvoiceStatusSent, types.InvoiceStatusOverdue:
			summary.Pending = summary.Pending.Add(row.Total)
		}
	}
	return summary, nil
}
