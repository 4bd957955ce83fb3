package gorm

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/flexprice/invoicer/internal/cache"
	domainCustomer "github.com/flexprice/invoicer/internal/domain/customer"
	domainInvoice "github.com/flexprice/invoicer/internal/domain/invoice"
	domainPayment "github.com/flexprice/invoicer/internal/domain/payment"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/postgres"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type RepositorySuite struct {
	suite.Suite
	ctx       context.Context
	db        *gorm.DB
	client    postgres.IClient
	cache     cache.Cache
	customers domainCustomer.Repository
	invoices  domainInvoice.Repository
	payments  domainPayment.Repository
	customer  *domainCustomer.Customer
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupTest() {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(s.T().Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	s.Require().NoError(err)
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)
	s.Require().NoError(Migrate(db))
	s.T().Cleanup(func() { _ = sqlDB.Close() })

	log := logger.NewNopLogger()
	s.db = db
	s.client = postgres.NewClient(db, log)
	s.cache = cache.NewInMemoryCache(time.Minute)
	s.customers = NewCustomerRepository(s.client, log, s.cache)
	s.invoices = NewInvoiceRepository(s.client, log)
	s.payments = NewPaymentRepository(s.client, log)
	s.ctx = types.SetTenantID(context.Background(), "user_1")

	s.customer = &domainCustomer.Customer{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CUSTOMER),
		UserID:    "user_1",
		Name:      "Acme",
		Email:     "billing@acme.test",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	s.Require().NoError(s.customers.Create(s.ctx, s.customer))
}

func (s *RepositorySuite) newInvoice(number string, status types.InvoiceStatus) *domainInvoice.Invoice {
	issue := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	id := types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE)
	inv := &domainInvoice.Invoice{
		ID:            id,
		UserID:        "user_1",
		CustomerID:    s.customer.ID,
		InvoiceNumber: number,
		IssueDate:     issue,
		DueDate:       issue.AddDate(0, 0, 30),
		Currency:      "usd",
		TaxRate:       decimal.NewFromInt(8),
		Discount:      decimal.NewFromInt(10),
		Status:        status,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
		LineItems: []*domainInvoice.LineItem{
			{ID: types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LINE_ITEM), InvoiceID: id, Description: "Design", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(50), Position: 0},
			{ID: types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LINE_ITEM), InvoiceID: id, Description: "Hosting", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(25), Position: 1},
		},
	}
	s.Require().NoError(inv.Recalculate())
	s.Require().NoError(s.invoices.Create(s.ctx, inv))
	return inv
}

func (s *RepositorySuite) TestCustomer_TenantScoped() {
	got, err := s.customers.Get(s.ctx, s.customer.ID)
	s.Require().NoError(err)
	s.Equal("Acme", got.Name)

	other := types.SetTenantID(context.Background(), "user_2")
	_, err = s.customers.Get(other, s.customer.ID)
	s.True(ierr.IsNotFound(err))

	err = s.customers.Delete(other, s.customer.ID)
	s.True(ierr.IsNotFound(err))
}

func (s *RepositorySuite) TestCustomer_UpdateInvalidatesCache() {
	got, err := s.customers.Get(s.ctx, s.customer.ID)
	s.Require().NoError(err)

	got.Name = "Acme Corp"
	s.Require().NoError(s.customers.Update(s.ctx, got))

	again, err := s.customers.Get(s.ctx, s.customer.ID)
	s.Require().NoError(err)
	s.Equal("Acme Corp", again.Name)
}

func (s *RepositorySuite) TestCustomer_CacheDroppedAfterCommit() {
	key := cache.GenerateKey(cache.PrefixCustomer, "user_1", s.customer.ID)
	_, err := s.customers.Get(s.ctx, s.customer.ID)
	s.Require().NoError(err)
	_, found := s.cache.Get(s.ctx, key)
	s.Require().True(found)

	err = s.client.WithTx(s.ctx, func(ctx context.Context) error {
		got, err := s.customers.Get(ctx, s.customer.ID)
		if err != nil {
			return err
		}
		got.Name = "Acme Corp"
		if err := s.customers.Update(ctx, got); err != nil {
			return err
		}
		_, found := s.cache.Get(ctx, key)
		s.True(found, "entry dropped before commit")
		return nil
	})
	s.Require().NoError(err)

	_, found = s.cache.Get(s.ctx, key)
	s.False(found)
	got, err := s.customers.Get(s.ctx, s.customer.ID)
	s.Require().NoError(err)
	s.Equal("Acme Corp", got.Name)
}

func (s *RepositorySuite) TestCustomer_RollbackKeepsCache() {
	key := cache.GenerateKey(cache.PrefixCustomer, "user_1", s.customer.ID)
	_, err := s.customers.Get(s.ctx, s.customer.ID)
	s.Require().NoError(err)

	err = s.client.WithTx(s.ctx, func(ctx context.Context) error {
		got, err := s.customers.Get(ctx, s.customer.ID)
		if err != nil {
			return err
		}
		got.Name = "Acme Corp"
		if err := s.customers.Update(ctx, got); err != nil {
			return err
		}
		return ierr.NewError("abort").Mark(ierr.ErrInternal)
	})
	s.True(ierr.Is(err, ierr.ErrInternal))

	_, found := s.cache.Get(s.ctx, key)
	s.True(found)
	got, err := s.customers.Get(s.ctx, s.customer.ID)
	s.Require().NoError(err)
	s.Equal("Acme", got.Name)
}

func (s *RepositorySuite) TestCustomer_ListAndCount() {
	second := &domainCustomer.Customer{ID: "cust_b", UserID: "user_1", Name: "Beta", Email: "b@beta.test", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	s.Require().NoError(s.customers.Create(s.ctx, second))
	foreign := &domainCustomer.Customer{ID: "cust_c", UserID: "user_2", Name: "Gamma", Email: "c@gamma.test"}
	s.Require().NoError(s.customers.Create(types.SetTenantID(context.Background(), "user_2"), foreign))

	filter := types.NewCustomerFilter()
	filter.Sort = lo.ToPtr("name")
	filter.Order = lo.ToPtr(types.OrderAsc)
	list, err := s.customers.List(s.ctx, filter)
	s.Require().NoError(err)
	s.Equal([]string{"Acme", "Beta"}, lo.Map(list, func(c *domainCustomer.Customer, _ int) string { return c.Name }))

	count, err := s.customers.Count(s.ctx, filter)
	s.Require().NoError(err)
	s.Equal(2, count)

	filter.Email = "b@beta.test"
	count, err = s.customers.Count(s.ctx, filter)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *RepositorySuite) TestCustomer_HasInvoices() {
	has, err := s.customers.HasInvoices(s.ctx, s.customer.ID)
	s.Require().NoError(err)
	s.False(has)

	s.newInvoice("INV-202610-00001", types.InvoiceStatusDraft)

	has, err = s.customers.HasInvoices(s.ctx, s.customer.ID)
	s.Require().NoError(err)
	s.True(has)
}

func (s *RepositorySuite) TestInvoice_CreateAndGet() {
	inv := s.newInvoice("INV-202610-00001", types.InvoiceStatusDraft)

	got, err := s.invoices.Get(s.ctx, inv.ID)
	s.Require().NoError(err)
	s.Equal(inv.InvoiceNumber, got.InvoiceNumber)
	s.Require().Len(got.LineItems, 2)
	s.Equal("Design", got.LineItems[0].Description)
	s.Equal("Hosting", got.LineItems[1].Description)
	s.True(decimal.NewFromInt(100).Equal(got.LineItems[0].Amount))
	s.True(decimal.RequireFromString("124.20").Equal(got.Total))
	s.Require().NotNil(got.Customer)
	s.Equal("Acme", got.Customer.Name)

	_, err = s.invoices.Get(types.SetTenantID(context.Background(), "user_2"), inv.ID)
	s.True(ierr.IsNotFound(err))

	unscoped, err := s.invoices.GetUnscoped(context.Background(), inv.ID)
	s.Require().NoError(err)
	s.Equal(inv.ID, unscoped.ID)
}

func (s *RepositorySuite) TestInvoice_DuplicateNumber() {
	s.newInvoice("INV-202610-00001", types.InvoiceStatusDraft)

	dup := &domainInvoice.Invoice{
		ID:            "inv_dup",
		UserID:        "user_1",
		CustomerID:    s.customer.ID,
		InvoiceNumber: "INV-202610-00001",
		Currency:      "usd",
		Status:        types.InvoiceStatusDraft,
	}
	err := s.invoices.Create(s.ctx, dup)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *RepositorySuite) TestInvoice_ListFilters() {
	s.newInvoice("INV-202610-00001", types.InvoiceStatusDraft)
	s.newInvoice("INV-202610-00002", types.InvoiceStatusSent)
	s.newInvoice("INV-202610-00003", types.InvoiceStatusSent)

	filter := types.NewInvoiceFilter()
	filter.Status = lo.ToPtr(types.InvoiceStatusSent)
	list, err := s.invoices.List(s.ctx, filter)
	s.Require().NoError(err)
	s.Len(list, 2)

	count, err := s.invoices.Count(s.ctx, types.NewInvoiceFilter())
	s.Require().NoError(err)
	s.Equal(3, count)

	filter = types.NewInvoiceFilter()
	filter.Limit = lo.ToPtr(1)
	filter.Sort = lo.ToPtr("invoice_number")
	filter.Order = lo.ToPtr(types.OrderAsc)
	list, err = s.invoices.List(s.ctx, filter)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal("INV-202610-00001", list[0].InvoiceNumber)
}

func (s *RepositorySuite) TestInvoice_ReplaceLineItems() {
	inv := s.newInvoice("INV-202610-00001", types.InvoiceStatusDraft)

	items := []*domainInvoice.LineItem{
		{ID: "li_new", Description: "Audit", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.NewFromInt(10), Amount: decimal.NewFromInt(30)},
	}
	err := s.client.WithTx(s.ctx, func(ctx context.Context) error {
		return s.invoices.ReplaceLineItems(ctx, inv.ID, items)
	})
	s.Require().NoError(err)

	got, err := s.invoices.Get(s.ctx, inv.ID)
	s.Require().NoError(err)
	s.Require().Len(got.LineItems, 1)
	s.Equal("li_new", got.LineItems[0].ID)
	s.Equal(inv.ID, got.LineItems[0].InvoiceID)
}

func (s *RepositorySuite) TestInvoice_DeleteCascades() {
	inv := s.newInvoice("INV-202610-00001", types.InvoiceStatusDraft)
	s.Require().NoError(s.payments.Create(s.ctx, &domainPayment.Payment{
		ID: "pay_1", InvoiceID: inv.ID, Amount: inv.Total, Currency: "usd", Status: types.PaymentStatusFailed,
	}))

	s.Require().NoError(s.invoices.Delete(s.ctx, inv.ID))

	var lineItems int64
	s.Require().NoError(s.db.Model(&LineItemModel{}).Where("invoice_id = ?", inv.ID).Count(&lineItems).Error)
	s.Zero(lineItems)

	payments, err := s.payments.ListByInvoice(s.ctx, inv.ID)
	s.Require().NoError(err)
	s.Empty(payments)

	_, err = s.invoices.Get(s.ctx, inv.ID)
	s.True(ierr.IsNotFound(err))

	s.True(ierr.IsNotFound(s.invoices.Delete(s.ctx, inv.ID)))
}

func (s *RepositorySuite) TestInvoice_DeleteForeignTenantKeepsLineItems() {
	inv := s.newInvoice("INV-202610-00001", types.InvoiceStatusDraft)

	err := s.invoices.Delete(types.SetTenantID(context.Background(), "user_2"), inv.ID)
	s.True(ierr.IsNotFound(err))

	got, err := s.invoices.Get(s.ctx, inv.ID)
	s.Require().NoError(err)
	s.Len(got.LineItems, 2)
}

func (s *RepositorySuite) TestInvoice_TransitionStatusIsConditional() {
	inv := s.newInvoice("INV-202610-00001", types.InvoiceStatusSent)
	allowed := domainInvoice.AllowedFrom(types.InvoiceStatusPaid, domainInvoice.TriggerPaymentConfirmed)

	changed, err := s.invoices.TransitionStatus(s.ctx, inv.ID, types.InvoiceStatusPaid, allowed)
	s.Require().NoError(err)
	s.True(changed)

	changed, err = s.invoices.TransitionStatus(s.ctx, inv.ID, types.InvoiceStatusPaid, allowed)
	s.Require().NoError(err)
	s.False(changed)

	changed, err = s.invoices.TransitionStatus(s.ctx, inv.ID, types.InvoiceStatusSent, []types.InvoiceStatus{types.InvoiceStatusDraft})
	s.Require().NoError(err)
	s.False(changed)

	got, err := s.invoices.Get(s.ctx, inv.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPaid, got.Status)
}

func (s *RepositorySuite) TestInvoice_SetPaymentSession() {
	inv := s.newInvoice("INV-202610-00001", types.InvoiceStatusDraft)

	s.Require().NoError(s.invoices.SetPaymentSession(s.ctx, inv.ID, "cs_test_1", lo.ToPtr("pi_1")))

	got, err := s.invoices.Get(s.ctx, inv.ID)
	s.Require().NoError(err)
	s.Equal("cs_test_1", lo.FromPtr(got.StripeCheckoutSessionID))
	s.Equal("pi_1", lo.FromPtr(got.StripePaymentIntentID))
}

func (s *RepositorySuite) TestInvoice_AttachPaymentIntentKeepsExisting() {
	inv := s.newInvoice("INV-202610-00001", types.InvoiceStatusSent)
	s.Require().NoError(s.invoices.SetPaymentSession(s.ctx, inv.ID, "cs_test_1", nil))

	changed, err := s.invoices.AttachPaymentIntent(s.ctx, inv.ID, "pi_1")
	s.Require().NoError(err)
	s.True(changed)

	changed, err = s.invoices.AttachPaymentIntent(s.ctx, inv.ID, "pi_2")
	s.Require().NoError(err)
	s.False(changed)

	other := types.SetTenantID(context.Background(), "user_2")
	changed, err = s.invoices.AttachPaymentIntent(other, inv.ID, "pi_3")
	s.Require().NoError(err)
	s.False(changed)

	got, err := s.invoices.Get(s.ctx, inv.ID)
	s.Require().NoError(err)
	s.Equal("cs_test_1", lo.FromPtr(got.StripeCheckoutSessionID))
	s.Equal("pi_1", lo.FromPtr(got.StripePaymentIntentID))
}

func (s *RepositorySuite) TestInvoice_AdjustmentsRoundTrip() {
	inv := s.newInvoice("INV-202610-00001", types.InvoiceStatusDraft)
	inv.TaxRate = decimal.RequireFromString("8.25")
	inv.Discount = decimal.RequireFromString("10.01")
	s.Require().NoError(inv.Recalculate())
	s.Require().NoError(s.invoices.Update(s.ctx, inv))

	got, err := s.invoices.Get(s.ctx, inv.ID)
	s.Require().NoError(err)
	s.True(inv.TaxRate.Equal(got.TaxRate), "tax rate %s", got.TaxRate)
	s.True(inv.Discount.Equal(got.Discount), "discount %s", got.Discount)
	s.True(inv.Subtotal.Equal(got.Subtotal))
	s.True(inv.TaxAmount.Equal(got.TaxAmount))
	s.True(inv.Total.Equal(got.Total))

	// recomputing from the stored columns reproduces the stored totals
	total := got.Total
	s.Require().NoError(got.ApplyPatch(domainInvoice.Patch{Notes: lo.ToPtr("net 30")}))
	s.True(total.Equal(got.Total), "total drifted to %s", got.Total)
	s.Require().NoError(got.Recalculate())
	s.True(total.Equal(got.Total), "total drifted to %s", got.Total)
}

func (s *RepositorySuite) TestInvoice_MarkOverdue() {
	due := s.newInvoice("INV-202610-00001", types.InvoiceStatusSent)
	s.newInvoice("INV-202610-00002", types.InvoiceStatusDraft)

	changed, err := s.invoices.MarkOverdue(s.ctx, due.DueDate.Add(-time.Hour))
	s.Require().NoError(err)
	s.Zero(changed)

	changed, err = s.invoices.MarkOverdue(s.ctx, due.DueDate.Add(time.Hour))
	s.Require().NoError(err)
	s.Equal(int64(1), changed)

	got, err := s.invoices.Get(s.ctx, due.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusOverdue, got.Status)
}

func (s *RepositorySuite) TestInvoice_NextInvoiceSequence() {
	for want := int64(1); want <= 3; want++ {
		got, err := s.invoices.NextInvoiceSequence(s.ctx, "user_1", "202610")
		s.Require().NoError(err)
		s.Equal(want, got)
	}

	got, err := s.invoices.NextInvoiceSequence(s.ctx, "user_1", "202611")
	s.Require().NoError(err)
	s.Equal(int64(1), got)

	got, err = s.invoices.NextInvoiceSequence(s.ctx, "user_2", "202610")
	s.Require().NoError(err)
	s.Equal(int64(1), got)
}

func (s *RepositorySuite) TestInvoice_Summary() {
	s.newInvoice("INV-202610-00001", types.InvoiceStatusPaid)
	s.newInvoice("INV-202610-00002", types.InvoiceStatusSent)
	s.newInvoice("INV-202610-00003", types.InvoiceStatusOverdue)
	s.newInvoice("INV-202610-00004", types.InvoiceStatusDraft)

	summary, err := s.invoices.Summary(s.ctx)
	s.Require().NoError(err)
	s.Equal(4, summary.InvoiceCount)
	s.True(decimal.RequireFromString("124.20").Equal(summary.Revenue), summary.Revenue.String())
	s.True(decimal.RequireFromString("248.40").Equal(summary.Pending), summary.Pending.String())
}

func (s *RepositorySuite) TestPayment_Dedup() {
	inv := s.newInvoice("INV-202610-00001", types.InvoiceStatusSent)

	exists, err := s.payments.ExistsByPaymentIntent(s.ctx, inv.ID, "pi_1", types.PaymentStatusSucceeded)
	s.Require().NoError(err)
	s.False(exists)

	s.Require().NoError(s.payments.Create(s.ctx, &domainPayment.Payment{
		ID:                    "pay_1",
		InvoiceID:             inv.ID,
		StripePaymentIntentID: "pi_1",
		StripeEventID:         "evt_1",
		Amount:                inv.Total,
		Currency:              "usd",
		Status:                types.PaymentStatusSucceeded,
		PaidAt:                lo.ToPtr(time.Now()),
	}))

	exists, err = s.payments.ExistsByPaymentIntent(s.ctx, inv.ID, "pi_1", types.PaymentStatusSucceeded)
	s.Require().NoError(err)
	s.True(exists)

	exists, err = s.payments.ExistsByPaymentIntent(s.ctx, inv.ID, "pi_1", types.PaymentStatusFailed)
	s.Require().NoError(err)
	s.False(exists)

	exists, err = s.payments.ExistsByEventID(s.ctx, "evt_1")
	s.Require().NoError(err)
	s.True(exists)

	list, err := s.payments.ListByInvoice(s.ctx, inv.ID)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.NotNil(list[0].PaidAt)
}
