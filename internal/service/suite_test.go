package service

import (
	"github.com/flexprice/invoicer/internal/document"
	"github.com/flexprice/invoicer/internal/testutil"
)

// serviceSuite wires every service to the in-memory stores
type serviceSuite struct {
	testutil.BaseServiceTestSuite
	params    ServiceParams
	customers CustomerService
	invoices  InvoiceService
	payments  PaymentService
}

func (s *serviceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = ServiceParams{
		Logger:       s.GetLogger(),
		Config:       s.GetConfig(),
		DB:           s.GetDB(),
		CustomerRepo: s.GetStores().CustomerRepo,
		InvoiceRepo:  s.GetStores().InvoiceRepo,
		PaymentRepo:  s.GetStores().PaymentRepo,
		Stripe:       s.GetStripe(),
		Renderer:     document.NewPDFRenderer(s.GetLogger()),
	}
	s.customers = NewCustomerService(s.params)
	s.invoices = NewInvoiceService(s.params)
	s.payments = NewPaymentService(s.params)
}
