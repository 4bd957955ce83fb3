package service

import (
	"github.com/flexprice/invoicer/internal/config"
	"github.com/flexprice/invoicer/internal/document"
	"github.com/flexprice/invoicer/internal/domain/customer"
	"github.com/flexprice/invoicer/internal/domain/invoice"
	"github.com/flexprice/invoicer/internal/domain/payment"
	"github.com/flexprice/invoicer/internal/integration/stripe"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/postgres"
	"go.uber.org/fx"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	fx.In

	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	// Repositories
	CustomerRepo customer.Repository
	InvoiceRepo  invoice.Repository
	PaymentRepo  payment.Repository

	// External collaborators
	Stripe   stripe.Client
	Renderer document.Renderer
}
