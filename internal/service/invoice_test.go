package service

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/flexprice/invoicer/internal/api/dto"
	"github.com/flexprice/invoicer/internal/domain/customer"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/testutil"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type InvoiceServiceSuite struct {
	serviceSuite
	customer *customer.Customer
}

func TestInvoiceService(t *testing.T) {
	suite.Run(t, new(InvoiceServiceSuite))
}

func (s *InvoiceServiceSuite) SetupTest() {
	s.serviceSuite.SetupTest()
	s.customer = s.CreateTestCustomer("acme")
}

func (s *InvoiceServiceSuite) createRequest() dto.CreateInvoiceRequest {
	return dto.CreateInvoiceRequest{
		CustomerID: s.customer.ID,
		TaxRate:    decimal.NewFromInt(8),
		Discount:   decimal.NewFromInt(10),
		LineItems: []dto.LineItemRequest{
			{Description: "Design", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(50)},
			{Description: "Hosting", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(25)},
		},
	}
}

func (s *InvoiceServiceSuite) TestCreateInvoice() {
	resp, err := s.invoices.CreateInvoice(s.GetContext(), s.createRequest())
	s.Require().NoError(err)

	s.Equal(types.InvoiceStatusDraft, resp.Status)
	s.Equal("usd", resp.Currency)
	s.True(decimal.RequireFromString("125").Equal(resp.Subtotal))
	s.True(decimal.RequireFromString("9.20").Equal(resp.TaxAmount))
	s.True(decimal.RequireFromString("124.20").Equal(resp.Total))
	s.Len(resp.LineItems, 2)
	s.True(decimal.NewFromInt(100).Equal(resp.LineItems[0].Amount))
	s.Equal(0, resp.LineItems[0].Position)
	s.Equal(1, resp.LineItems[1].Position)
	s.NotNil(resp.Customer)

	want := fmt.Sprintf("INV-%s-00001", time.Now().UTC().Format("200601"))
	s.Equal(want, resp.InvoiceNumber)
	s.True(resp.IssueDate.AddDate(0, 0, s.GetConfig().Invoice.DueDateDays).Equal(resp.DueDate))
	s.Equal(1, s.GetDB().TxCount())

	second, err := s.invoices.CreateInvoice(s.GetContext(), s.createRequest())
	s.Require().NoError(err)
	s.Equal(fmt.Sprintf("INV-%s-00002", time.Now().UTC().Format("200601")), second.InvoiceNumber)
}

func (s *InvoiceServiceSuite) TestCreateInvoice_DiscountAboveSubtotal() {
	req := dto.CreateInvoiceRequest{
		CustomerID: s.customer.ID,
		TaxRate:    decimal.NewFromInt(10),
		Discount:   decimal.NewFromInt(50),
		LineItems: []dto.LineItemRequest{
			{Description: "Small", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10)},
		},
	}
	resp, err := s.invoices.CreateInvoice(s.GetContext(), req)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(10).Equal(resp.Subtotal))
	s.True(resp.TaxAmount.IsZero())
	s.True(resp.Total.IsZero())
}

func (s *InvoiceServiceSuite) TestCreateInvoice_Validation() {
	tests := []struct {
		name   string
		mutate func(r *dto.CreateInvoiceRequest)
	}{
		{"no line items", func(r *dto.CreateInvoiceRequest) { r.LineItems = nil }},
		{"zero quantity", func(r *dto.CreateInvoiceRequest) { r.LineItems[0].Quantity = decimal.Zero }},
		{"negative quantity", func(r *dto.CreateInvoiceRequest) { r.LineItems[0].Quantity = decimal.NewFromInt(-1) }},
		{"negative price", func(r *dto.CreateInvoiceRequest) { r.LineItems[0].UnitPrice = decimal.NewFromInt(-1) }},
		{"empty description", func(r *dto.CreateInvoiceRequest) { r.LineItems[0].Description = "" }},
		{"tax above 100", func(r *dto.CreateInvoiceRequest) { r.TaxRate = decimal.NewFromInt(101) }},
		{"negative tax", func(r *dto.CreateInvoiceRequest) { r.TaxRate = decimal.NewFromInt(-1) }},
		{"negative discount", func(r *dto.CreateInvoiceRequest) { r.Discount = decimal.NewFromInt(-5) }},
		{"discount below cent", func(r *dto.CreateInvoiceRequest) { r.Discount = decimal.RequireFromString("10.005") }},
		{"tax rate with three decimals", func(r *dto.CreateInvoiceRequest) { r.TaxRate = decimal.RequireFromString("8.125") }},
		{"missing customer", func(r *dto.CreateInvoiceRequest) { r.CustomerID = "" }},
		{"unknown customer", func(r *dto.CreateInvoiceRequest) { r.CustomerID = "cust_missing" }},
		{"due before issue", func(r *dto.CreateInvoiceRequest) {
			issue := time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC)
			r.IssueDate = &issue
			r.DueDate = lo.ToPtr(issue.AddDate(0, 0, -1))
		}},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			req := s.createRequest()
			tt.mutate(&req)
			_, err := s.invoices.CreateInvoice(s.GetContext(), req)
			s.True(ierr.IsValidation(err), "got %v", err)
		})
	}

	count, err := s.GetStores().InvoiceRepo.Count(s.GetContext(), nil)
	s.Require().NoError(err)
	s.Equal(0, count)
}

func (s *InvoiceServiceSuite) TestCreateInvoice_ForeignCustomer() {
	other := s.GetContextFor(testutil.OtherTestTenantID)
	_, err := s.invoices.CreateInvoice(other, s.createRequest())
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceServiceSuite) TestGetInvoice_EffectiveOverdue() {
	inv := s.CreateTestInvoice(s.customer, "INV-1", types.InvoiceStatusSent)
	past := s.GetNow().AddDate(0, 0, -40)
	inv.IssueDate = past
	inv.DueDate = past.AddDate(0, 0, 10)
	s.Require().NoError(s.GetStores().InvoiceRepo.Update(s.GetContext(), inv))

	resp, err := s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusOverdue, resp.Status)
	s.Equal(types.InvoiceStatusSent, resp.Invoice.Status)
}

func (s *InvoiceServiceSuite) TestListInvoices_Filter() {
	s.CreateTestInvoice(s.customer, "INV-1", types.InvoiceStatusDraft)
	s.CreateTestInvoice(s.customer, "INV-2", types.InvoiceStatusSent)
	other := s.CreateTestCustomer("other")
	s.CreateTestInvoice(other, "INV-3", types.InvoiceStatusSent)

	filter := types.NewInvoiceFilter()
	filter.Status = lo.ToPtr(types.InvoiceStatusSent)
	resp, err := s.invoices.ListInvoices(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Len(resp.Items, 2)

	filter.CustomerID = other.ID
	resp, err = s.invoices.ListInvoices(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Len(resp.Items, 1)
	s.Equal("INV-3", resp.Items[0].InvoiceNumber)

	resp, err = s.invoices.ListInvoices(s.GetContextFor(testutil.OtherTestTenantID), nil)
	s.Require().NoError(err)
	s.Empty(resp.Items)

	bad := types.NewInvoiceFilter()
	bad.Status = lo.ToPtr(types.InvoiceStatus("paid"))
	_, err = s.invoices.ListInvoices(s.GetContext(), bad)
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceServiceSuite) TestUpdateInvoice_RecomputesWithExistingItems() {
	inv := s.CreateTestInvoice(s.customer, "INV-1", types.InvoiceStatusDraft)

	resp, err := s.invoices.UpdateInvoice(s.GetContext(), inv.ID, dto.UpdateInvoiceRequest{
		TaxRate: lo.ToPtr(decimal.Zero),
	})
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(125).Equal(resp.Subtotal))
	s.True(resp.TaxAmount.IsZero())
	s.True(decimal.NewFromInt(115).Equal(resp.Total))
	s.Len(resp.LineItems, 2)
	s.Equal(inv.LineItems[0].ID, resp.LineItems[0].ID)
}

func (s *InvoiceServiceSuite) TestUpdateInvoice_ReplacesLineItems() {
	inv := s.CreateTestInvoice(s.customer, "INV-1", types.InvoiceStatusDraft)

	resp, err := s.invoices.UpdateInvoice(s.GetContext(), inv.ID, dto.UpdateInvoiceRequest{
		LineItems: &[]dto.LineItemRequest{
			{Description: "Retainer", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(500)},
		},
	})
	s.Require().NoError(err)
	s.Len(resp.LineItems, 1)
	s.Equal("Retainer", resp.LineItems[0].Description)
	s.NotEqual(inv.LineItems[0].ID, resp.LineItems[0].ID)
	s.True(decimal.NewFromInt(500).Equal(resp.Subtotal))
	// (500 - 10) * 8%
	s.True(decimal.RequireFromString("39.20").Equal(resp.TaxAmount))
	s.True(decimal.RequireFromString("529.20").Equal(resp.Total))
	s.NotEmpty(s.GetDB().LockKeys())
}

func (s *InvoiceServiceSuite) TestUpdateInvoice_InvalidLeavesStoredInvoice() {
	inv := s.CreateTestInvoice(s.customer, "INV-1", types.InvoiceStatusDraft)

	_, err := s.invoices.UpdateInvoice(s.GetContext(), inv.ID, dto.UpdateInvoiceRequest{
		LineItems: &[]dto.LineItemRequest{
			{Description: "Bad", Quantity: decimal.NewFromInt(-2), UnitPrice: decimal.NewFromInt(5)},
		},
	})
	s.True(ierr.IsValidation(err))

	_, err = s.invoices.UpdateInvoice(s.GetContext(), inv.ID, dto.UpdateInvoiceRequest{
		DueDate: lo.ToPtr(inv.IssueDate.AddDate(0, 0, -3)),
	})
	s.True(ierr.IsValidation(err))

	stored, err := s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.True(inv.Total.Equal(stored.Total))
	s.Len(stored.LineItems, 2)
	s.True(inv.DueDate.Equal(stored.DueDate))
}

func (s *InvoiceServiceSuite) TestUpdateInvoice_TerminalInvoices() {
	for _, status := range []types.InvoiceStatus{types.InvoiceStatusPaid, types.InvoiceStatusCancelled} {
		s.Run(string(status), func() {
			inv := s.CreateTestInvoice(s.customer, "INV-"+string(status), status)

			_, err := s.invoices.UpdateInvoice(s.GetContext(), inv.ID, dto.UpdateInvoiceRequest{
				Discount: lo.ToPtr(decimal.Zero),
			})
			s.True(ierr.IsInvalidState(err))

			resp, err := s.invoices.UpdateInvoice(s.GetContext(), inv.ID, dto.UpdateInvoiceRequest{
				Notes: lo.ToPtr("thanks"),
			})
			s.Require().NoError(err)
			s.Equal("thanks", resp.Notes)
			s.Equal(status, resp.Status)

			_, err = s.invoices.UpdateInvoice(s.GetContext(), inv.ID, dto.UpdateInvoiceRequest{
				Status: lo.ToPtr(types.InvoiceStatusDraft),
			})
			s.True(ierr.IsInvalidState(err))
		})
	}
}

func (s *InvoiceServiceSuite) TestUpdateInvoice_ChangeCustomer() {
	inv := s.CreateTestInvoice(s.customer, "INV-1", types.InvoiceStatusDraft)
	next := s.CreateTestCustomer("globex")

	resp, err := s.invoices.UpdateInvoice(s.GetContext(), inv.ID, dto.UpdateInvoiceRequest{
		CustomerID: lo.ToPtr(next.ID),
	})
	s.Require().NoError(err)
	s.Equal(next.ID, resp.CustomerID)
	s.Equal(next.Name, resp.Customer.Name)

	_, err = s.invoices.UpdateInvoice(s.GetContext(), inv.ID, dto.UpdateInvoiceRequest{
		CustomerID: lo.ToPtr("cust_missing"),
	})
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceServiceSuite) TestUpdateInvoiceStatus() {
	inv := s.CreateTestInvoice(s.customer, "INV-1", types.InvoiceStatusDraft)

	resp, err := s.invoices.UpdateInvoiceStatus(s.GetContext(), inv.ID, dto.UpdateInvoiceStatusRequest{Status: types.InvoiceStatusSent})
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusSent, resp.Status)

	resp, err = s.invoices.UpdateInvoiceStatus(s.GetContext(), inv.ID, dto.UpdateInvoiceStatusRequest{Status: types.InvoiceStatusSent})
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusSent, resp.Status)

	_, err = s.invoices.UpdateInvoiceStatus(s.GetContext(), inv.ID, dto.UpdateInvoiceStatusRequest{Status: types.InvoiceStatusDraft})
	s.True(ierr.IsInvalidState(err))

	resp, err = s.invoices.UpdateInvoiceStatus(s.GetContext(), inv.ID, dto.UpdateInvoiceStatusRequest{Status: types.InvoiceStatusPaid})
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPaid, resp.Status)

	_, err = s.invoices.UpdateInvoiceStatus(s.GetContext(), inv.ID, dto.UpdateInvoiceStatusRequest{Status: types.InvoiceStatusCancelled})
	s.True(ierr.IsInvalidState(err))
	s.Equal("Invoice is already paid", ierr.GetHint(err))

	_, err = s.invoices.UpdateInvoiceStatus(s.GetContext(), inv.ID, dto.UpdateInvoiceStatusRequest{Status: "ARCHIVED"})
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceServiceSuite) TestUpdateInvoiceStatus_TakesInvoiceLock() {
	inv := s.CreateTestInvoice(s.customer, "INV-1", types.InvoiceStatusDraft)
	key := types.GenerateLockKey(s.GetContext(), types.LockScopeInvoicePayment, map[string]any{
		"invoice_id": inv.ID,
	})
	before := len(s.GetDB().LockKeys())
	txs := s.GetDB().TxCount()

	_, err := s.invoices.UpdateInvoiceStatus(s.GetContext(), inv.ID, dto.UpdateInvoiceStatusRequest{Status: types.InvoiceStatusSent})
	s.Require().NoError(err)
	_, err = s.invoices.UpdateInvoice(s.GetContext(), inv.ID, dto.UpdateInvoiceRequest{Notes: lo.ToPtr("net 30")})
	s.Require().NoError(err)

	// status changes and edits contend on the same key as payment reconciliation
	s.Equal([]string{key, key}, s.GetDB().LockKeys()[before:])
	s.Equal(txs+2, s.GetDB().TxCount())

	after, err := s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusSent, after.Status)
	s.Equal("net 30", after.Notes)
}

func (s *InvoiceServiceSuite) TestDeleteInvoice() {
	inv := s.CreateTestInvoice(s.customer, "INV-1", types.InvoiceStatusDraft)

	s.True(ierr.IsNotFound(s.invoices.DeleteInvoice(s.GetContextFor(testutil.OtherTestTenantID), inv.ID)))
	s.Require().NoError(s.invoices.DeleteInvoice(s.GetContext(), inv.ID))

	_, err := s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.True(ierr.IsNotFound(err))
	s.True(ierr.IsNotFound(s.invoices.DeleteInvoice(s.GetContext(), inv.ID)))
}

func (s *InvoiceServiceSuite) TestMarkOverdueInvoices() {
	due := s.CreateTestInvoice(s.customer, "INV-1", types.InvoiceStatusSent)
	due.IssueDate = s.GetNow().AddDate(0, 0, -40)
	due.DueDate = s.GetNow().AddDate(0, 0, -10)
	s.Require().NoError(s.GetStores().InvoiceRepo.Update(s.GetContext(), due))

	s.CreateTestInvoice(s.customer, "INV-2", types.InvoiceStatusSent)
	draft := s.CreateTestInvoice(s.customer, "INV-3", types.InvoiceStatusDraft)
	draft.IssueDate = due.IssueDate
	draft.DueDate = due.DueDate
	s.Require().NoError(s.GetStores().InvoiceRepo.Update(s.GetContext(), draft))

	resp, err := s.invoices.MarkOverdueInvoices(s.GetContext())
	s.Require().NoError(err)
	s.Equal(int64(1), resp.Updated)

	stored, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), due.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusOverdue, stored.Status)

	resp, err = s.invoices.MarkOverdueInvoices(s.GetContext())
	s.Require().NoError(err)
	s.Equal(int64(0), resp.Updated)
}

func (s *InvoiceServiceSuite) TestGetSummary() {
	s.CreateTestInvoice(s.customer, "INV-1", types.InvoiceStatusPaid)
	s.CreateTestInvoice(s.customer, "INV-2", types.InvoiceStatusSent)
	s.CreateTestInvoice(s.customer, "INV-3", types.InvoiceStatusOverdue)
	s.CreateTestInvoice(s.customer, "INV-4", types.InvoiceStatusDraft)
	s.CreateTestCustomer("globex")

	resp, err := s.invoices.GetSummary(s.GetContext())
	s.Require().NoError(err)
	s.Equal(4, resp.InvoiceCount)
	s.Equal(2, resp.CustomerCount)
	s.True(decimal.RequireFromString("124.20").Equal(resp.Revenue))
	s.True(decimal.RequireFromString("248.40").Equal(resp.Pending))
}

func (s *InvoiceServiceSuite) TestExportInvoicesCSV() {
	paid := s.CreateTestInvoice(s.customer, "INV-1", types.InvoiceStatusPaid)
	s.CreateTestInvoice(s.customer, "INV-2", types.InvoiceStatusSent)

	out, err := s.invoices.ExportInvoicesCSV(s.GetContext(), nil)
	s.Require().NoError(err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	s.Require().Len(lines, 3)
	s.Equal("invoice_number,customer_name,customer_email,issue_date,due_date,status,currency,subtotal,tax_amount,discount,total", lines[0])

	filter := types.NewInvoiceFilter()
	filter.Status = lo.ToPtr(types.InvoiceStatusPaid)
	out, err = s.invoices.ExportInvoicesCSV(s.GetContext(), filter)
	s.Require().NoError(err)

	lines = strings.Split(strings.TrimSpace(string(out)), "\n")
	s.Require().Len(lines, 2)
	s.Equal(fmt.Sprintf("INV-1,acme,billing@acme.test,%s,%s,PAID,USD,125.00,9.20,10.00,124.20",
		paid.IssueDate.Format(time.DateOnly), paid.DueDate.Format(time.DateOnly)), lines[1])

	out, err = s.invoices.ExportInvoicesCSV(s.GetContextFor(testutil.OtherTestTenantID), nil)
	s.Require().NoError(err)
	s.Len(strings.Split(strings.TrimSpace(string(out)), "\n"), 1)
}

func (s *InvoiceServiceSuite) TestRenderInvoicePDF() {
	inv := s.CreateTestInvoice(s.customer, "INV-202610-00007", types.InvoiceStatusSent)

	out, name, err := s.invoices.RenderInvoicePDF(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Equal("INV-202610-00007.pdf", name)
	s.True(bytes.HasPrefix(out, []byte("%PDF-")))

	_, _, err = s.invoices.RenderInvoicePDF(s.GetContextFor(testutil.OtherTestTenantID), inv.ID)
	s.True(ierr.IsNotFound(err))
}
