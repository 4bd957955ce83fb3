package testutil

import (
	"context"
	"time"

	"github.com/flexprice/invoicer/internal/config"
	"github.com/flexprice/invoicer/internal/domain/customer"
	"github.com/flexprice/invoicer/internal/domain/invoice"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

const (
	TestTenantID      = "user_test"
	OtherTestTenantID = "user_other"
)

// Stores holds the in-memory repositories shared by a test
type Stores struct {
	CustomerRepo *InMemoryCustomerStore
	InvoiceRepo  *InMemoryInvoiceStore
	PaymentRepo  *InMemoryPaymentStore
}

// BaseServiceTestSuite provides fresh stores, config and collaborators per test
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	stores Stores
	db     *MockPostgresClient
	stripe *FakeStripeClient
	logger *logger.Logger
	config *config.Configuration
	now    time.Time
}

func (s *BaseServiceTestSuite) SetupTest() {
	customers := NewInMemoryCustomerStore()
	s.stores = Stores{
		CustomerRepo: customers,
		InvoiceRepo:  NewInMemoryInvoiceStore(customers),
		PaymentRepo:  NewInMemoryPaymentStore(),
	}
	s.db = NewMockPostgresClient()
	s.stripe = NewFakeStripeClient()
	s.logger = logger.NewNopLogger()
	s.config = config.GetDefaultConfig()
	s.config.Stripe.AppBaseURL = "https://app.invoicer.test"
	s.ctx = types.SetTenantID(context.Background(), TestTenantID)
	s.now = time.Now().UTC()
}

func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetContextFor returns a context scoped to another tenant
func (s *BaseServiceTestSuite) GetContextFor(tenantID string) context.Context {
	return types.SetTenantID(context.Background(), tenantID)
}

func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

func (s *BaseServiceTestSuite) GetDB() *MockPostgresClient {
	return s.db
}

func (s *BaseServiceTestSuite) GetStripe() *FakeStripeClient {
	return s.stripe
}

func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}

// CreateTestCustomer stores a customer for the test tenant
func (s *BaseServiceTestSuite) CreateTestCustomer(name string) *customer.Customer {
	c := &customer.Customer{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CUSTOMER),
		UserID:    TestTenantID,
		Name:      name,
		Email:     "billing@" + name + ".test",
		CreatedAt: s.now,
		UpdatedAt: s.now,
	}
	s.Require().NoError(s.stores.CustomerRepo.Create(s.ctx, c))
	return c
}

// CreateTestInvoice stores the reference invoice for the test tenant:
// 2 x 50.00 + 1 x 25.00, discount 10.00, tax 8% giving a total of 124.20
func (s *BaseServiceTestSuite) CreateTestInvoice(c *customer.Customer, number string, status types.InvoiceStatus) *invoice.Invoice {
	id := types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE)
	inv := &invoice.Invoice{
		ID:            id,
		UserID:        TestTenantID,
		CustomerID:    c.ID,
		InvoiceNumber: number,
		IssueDate:     s.now.AddDate(0, 0, -1).Truncate(24 * time.Hour),
		DueDate:       s.now.AddDate(0, 0, 29).Truncate(24 * time.Hour),
		Currency:      "usd",
		TaxRate:       decimal.NewFromInt(8),
		Discount:      decimal.NewFromInt(10),
		Status:        status,
		CreatedAt:     s.now,
		UpdatedAt:     s.now,
		LineItems: []*invoice.LineItem{
			{ID: types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LINE_ITEM), InvoiceID: id, Description: "Design", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(50), Position: 0},
			{ID: types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LINE_ITEM), InvoiceID: id, Description: "Hosting", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(25), Position: 1},
		},
	}
	s.Require().NoError(inv.Recalculate())
	s.Require().NoError(s.stores.InvoiceRepo.Create(s.ctx, inv))
	return inv
}
