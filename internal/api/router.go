package api

import (
	"net/http"

	"github.com/flexprice/invoicer/internal/api/cron"
	v1 "github.com/flexprice/invoicer/internal/api/v1"
	"github.com/flexprice/invoicer/internal/auth"
	"github.com/flexprice/invoicer/internal/config"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/rest/middleware"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Customer    *v1.CustomerHandler
	Invoice     *v1.InvoiceHandler
	Payment     *v1.PaymentHandler
	InvoiceCron *cron.InvoiceCronHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, log *logger.Logger, authProvider auth.Provider) *gin.Engine {
	if cfg.Deployment.Mode != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.SentryMiddleware(cfg),
		middleware.LoggingMiddleware(log),
		middleware.ErrorHandler(log),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	public := router.Group("/v1")
	{
		webhooks := public.Group("/webhooks")
		webhooks.Use(
			middleware.RateLimitMiddleware(cfg.Server.WebhookRateLimit, cfg.Server.WebhookRateBurst),
			middleware.BodyLimitMiddleware(cfg.Server.WebhookBodyLimitBytes),
		)
		webhooks.POST("/stripe", handlers.Payment.HandleStripeWebhook)
	}

	private := router.Group("/v1")
	private.Use(middleware.AuthenticateMiddleware(authProvider, log))
	private.Use(middleware.SentryScopeMiddleware)

	customers := private.Group("/customers")
	{
		customers.POST("", handlers.Customer.CreateCustomer)
		customers.GET("", handlers.Customer.ListCustomers)
		customers.GET("/:id", handlers.Customer.GetCustomer)
		customers.PUT("/:id", handlers.Customer.UpdateCustomer)
		customers.DELETE("/:id", handlers.Customer.DeleteCustomer)
	}

	invoices := private.Group("/invoices")
	{
		invoices.POST("", handlers.Invoice.CreateInvoice)
		invoices.GET("", handlers.Invoice.ListInvoices)
		invoices.GET("/summary", handlers.Invoice.GetSummary)
		invoices.GET("/export", handlers.Invoice.ExportInvoices)
		invoices.GET("/:id", handlers.Invoice.GetInvoice)
		invoices.PUT("/:id", handlers.Invoice.UpdateInvoice)
		invoices.DELETE("/:id", handlers.Invoice.DeleteInvoice)
		invoices.PUT("/:id/status", handlers.Invoice.UpdateInvoiceStatus)
		invoices.GET("/:id/pdf", handlers.Invoice.GetInvoicePDF)
		invoices.GET("/:id/payments", handlers.Invoice.ListPayments)
	}

	payments := private.Group("/payments")
	{
		payments.POST("/checkout", handlers.Payment.CreatePaymentSession)
	}

	cronGroup := private.Group("/cron")
	{
		cronGroup.POST("/invoices/mark-overdue", handlers.InvoiceCron.MarkOverdue)
	}

	return router
}
