package service

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/flexprice/invoicer/internal/api/dto"
	"github.com/flexprice/invoicer/internal/document"
	"github.com/flexprice/invoicer/internal/domain/invoice"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/gocarina/gocsv"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"
)

type InvoiceService interface {
	CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
	GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error)
	UpdateInvoice(ctx context.Context, id string, req dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error)
	UpdateInvoiceStatus(ctx context.Context, id string, req dto.UpdateInvoiceStatusRequest) (*dto.InvoiceResponse, error)
	DeleteInvoice(ctx context.Context, id string) error
	MarkOverdueInvoices(ctx context.Context) (*dto.MarkOverdueResponse, error)
	GetSummary(ctx context.Context) (*dto.InvoiceSummaryResponse, error)
	ListPayments(ctx context.Context, id string) (*dto.ListPaymentsResponse, error)
	RenderInvoicePDF(ctx context.Context, id string) ([]byte, string, error)
	ExportInvoicesCSV(ctx context.Context, filter *types.InvoiceFilter) ([]byte, error)
}

type invoiceService struct {
	ServiceParams
	now func() time.Time
}

func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{
		ServiceParams: params,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *invoiceService) numberFormat() invoice.NumberFormat {
	return invoice.NumberFormat{
		Prefix:       s.Config.Invoice.Prefix,
		Separator:    s.Config.Invoice.Separator,
		SuffixLength: s.Config.Invoice.SuffixLength,
	}
}

func (s *invoiceService) CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	inv, err := req.ToInvoice(ctx, now, s.Config.Invoice.DefaultCurrency, s.Config.Invoice.DueDateDays)
	if err != nil {
		return nil, err
	}

	if err := inv.Validate(); err != nil {
		return nil, err
	}
	if err := inv.Recalculate(); err != nil {
		return nil, err
	}

	if err := s.requireCustomer(ctx, inv.CustomerID); err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		seq, err := s.InvoiceRepo.NextInvoiceSequence(ctx, inv.UserID, invoice.YearMonth(now))
		if err != nil {
			return err
		}
		inv.InvoiceNumber = s.numberFormat().Format(now, seq)
		return s.InvoiceRepo.Create(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("created invoice",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"total", inv.Total.String(),
	)

	return s.GetInvoice(ctx, inv.ID)
}

// requireCustomer reports a missing or foreign customer as a bad request
func (s *invoiceService) requireCustomer(ctx context.Context, customerID string) error {
	if _, err := s.CustomerRepo.Get(ctx, customerID); err != nil {
		if ierr.IsNotFound(err) {
			return ierr.WithError(err).
				WithHint("Customer not found").
				WithReportableDetails(map[string]any{"customer_id": customerID}).
				Mark(ierr.ErrValidation)
		}
		return err
	}
	return nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	if id == "" {
		return nil, ierr.NewError("invoice id is required").
			WithHint("Please provide a valid invoice ID").
			Mark(ierr.ErrValidation)
	}

	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewInvoiceResponse(inv, s.now()), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error) {
	if filter == nil {
		filter = types.NewInvoiceFilter()
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	invoices, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	total, err := s.InvoiceRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := s.now()
	items := make([]*dto.InvoiceResponse, len(invoices))
	for i, inv := range invoices {
		items[i] = dto.NewInvoiceResponse(inv, now)
	}

	return &dto.ListInvoicesResponse{
		Items:      items,
		Pagination: types.NewPaginationResponse(total, filter.GetLimit(), filter.GetOffset()),
	}, nil
}

func (s *invoiceService) lockInvoice(ctx context.Context, id string) error {
	return s.DB.LockKey(ctx, types.LockRequest{
		Key: types.GenerateLockKey(ctx, types.LockScopeInvoicePayment, map[string]any{
			"invoice_id": id,
		}),
	})
}

func (s *invoiceService) UpdateInvoice(ctx context.Context, id string, req dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	patch, err := req.ToPatch()
	if err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.lockInvoice(ctx, id); err != nil {
			return err
		}

		inv, err := s.InvoiceRepo.Get(ctx, id)
		if err != nil {
			return err
		}

		if patch.CustomerID != nil && *patch.CustomerID != inv.CustomerID {
			if err := s.requireCustomer(ctx, *patch.CustomerID); err != nil {
				return err
			}
		}

		if err := inv.ApplyPatch(patch); err != nil {
			return err
		}
		inv.UpdatedAt = s.now()

		if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
			return err
		}

		if patch.ReplacesLineItems() {
			for _, item := range inv.LineItems {
				item.CreatedAt = inv.UpdatedAt
			}
			if err := s.InvoiceRepo.ReplaceLineItems(ctx, inv.ID, inv.LineItems); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetInvoice(ctx, id)
}

func (s *invoiceService) UpdateInvoiceStatus(ctx context.Context, id string, req dto.UpdateInvoiceStatusRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// serialized with edits and payment reconciliation on the invoice lock
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.lockInvoice(ctx, id); err != nil {
			return err
		}

		inv, err := s.InvoiceRepo.Get(ctx, id)
		if err != nil {
			return err
		}

		if err := invoice.Transition(inv.Status, req.Status, invoice.TriggerIssuer); err != nil {
			return err
		}
		if inv.Status == req.Status {
			return nil
		}

		changed, err := s.InvoiceRepo.TransitionStatus(ctx, id, req.Status, []types.InvoiceStatus{inv.Status})
		if err != nil {
			return err
		}
		if !changed {
			return ierr.NewError("invoice status changed concurrently").
				WithHint("Invoice was updated by another request, please retry").
				WithReportableDetails(map[string]any{
					"invoice_id": id,
					"from":       inv.Status,
					"to":         req.Status,
				}).
				Mark(ierr.ErrInvalidState)
		}
		s.Logger.WithContext(ctx).Infow("invoice status changed",
			"invoice_id", id,
			"from", inv.Status,
			"to", req.Status,
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetInvoice(ctx, id)
}

func (s *invoiceService) DeleteInvoice(ctx context.Context, id string) error {
	if id == "" {
		return ierr.NewError("invoice id is required").
			WithHint("Please provide a valid invoice ID").
			Mark(ierr.ErrValidation)
	}
	return s.InvoiceRepo.Delete(ctx, id)
}

func (s *invoiceService) MarkOverdueInvoices(ctx context.Context) (*dto.MarkOverdueResponse, error) {
	updated, err := s.InvoiceRepo.MarkOverdue(ctx, s.now())
	if err != nil {
		return nil, err
	}
	if updated > 0 {
		s.Logger.WithContext(ctx).Infow("marked invoices overdue", "count", updated)
	}
	return &dto.MarkOverdueResponse{Updated: updated}, nil
}

func (s *invoiceService) GetSummary(ctx context.Context) (*dto.InvoiceSummaryResponse, error) {
	var (
		summary   *invoice.Summary
		customers int
	)

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		var err error
		summary, err = s.InvoiceRepo.Summary(ctx)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		customers, err = s.CustomerRepo.Count(ctx, types.NewCustomerFilter())
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}

	return &dto.InvoiceSummaryResponse{
		InvoiceCount:  summary.InvoiceCount,
		CustomerCount: customers,
		Revenue:       summary.Revenue,
		Pending:       summary.Pending,
	}, nil
}

func (s *invoiceService) ListPayments(ctx context.Context, id string) (*dto.ListPaymentsResponse, error) {
	if _, err := s.InvoiceRepo.Get(ctx, id); err != nil {
		return nil, err
	}

	payments, err := s.PaymentRepo.ListByInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.ListPaymentsResponse{Items: payments}, nil
}

// RenderInvoicePDF returns the document bytes and a download file name
func (s *invoiceService) RenderInvoicePDF(ctx context.Context, id string) ([]byte, string, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	inv.Status = inv.EffectiveStatus(s.now())

	issuer := document.Issuer{
		Name:  types.GetUserName(ctx),
		Email: types.GetUserEmail(ctx),
	}
	out, err := s.Renderer.Render(inv, issuer)
	if err != nil {
		return nil, "", err
	}
	return out, inv.InvoiceNumber + ".pdf", nil
}

type invoiceCSVRecord struct {
	InvoiceNumber string `csv:"invoice_number"`
	CustomerName  string `csv:"customer_name"`
	CustomerEmail string `csv:"customer_email"`
	IssueDate     string `csv:"issue_date"`
	DueDate       string `csv:"due_date"`
	Status        string `csv:"status"`
	Currency      string `csv:"currency"`
	Subtotal      string `csv:"subtotal"`
	TaxAmount     string `csv:"tax_amount"`
	Discount      string `csv:"discount"`
	Total         string `csv:"total"`
}

// ExportInvoicesCSV writes every invoice matching filter, ignoring
// pagination, one row per invoice
func (s *invoiceService) ExportInvoicesCSV(ctx context.Context, filter *types.InvoiceFilter) ([]byte, error) {
	if filter == nil {
		filter = types.NewInvoiceFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	filter.QueryFilter = &types.QueryFilter{
		Limit: lo.ToPtr(types.FILTER_MAX_LIMIT),
		Sort:  lo.ToPtr("issue_date"),
		Order: lo.ToPtr(types.OrderAsc),
	}

	invoices, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := s.now()
	records := lo.Map(invoices, func(inv *invoice.Invoice, _ int) *invoiceCSVRecord {
		precision := types.GetCurrencyPrecision(inv.Currency)
		record := &invoiceCSVRecord{
			InvoiceNumber: inv.InvoiceNumber,
			IssueDate:     inv.IssueDate.Format(time.DateOnly),
			DueDate:       inv.DueDate.Format(time.DateOnly),
			Status:        string(inv.EffectiveStatus(now)),
			Currency:      strings.ToUpper(inv.Currency),
			Subtotal:      inv.Subtotal.StringFixed(precision),
			TaxAmount:     inv.TaxAmount.StringFixed(precision),
			Discount:      inv.Discount.StringFixed(precision),
			Total:         inv.Total.StringFixed(precision),
		}
		if inv.Customer != nil {
			record.CustomerName = inv.Customer.Name
			record.CustomerEmail = inv.Customer.Email
		}
		return record
	})

	var buf bytes.Buffer
	if err := gocsv.Marshal(records, &buf); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to export invoices").
			Mark(ierr.ErrInternal)
	}
	return buf.Bytes(), nil
}
