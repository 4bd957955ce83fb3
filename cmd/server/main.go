package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/flexprice/invoicer/internal/api"
	"github.com/flexprice/invoicer/internal/api/cron"
	v1 "github.com/flexprice/invoicer/internal/api/v1"
	"github.com/flexprice/invoicer/internal/auth"
	"github.com/flexprice/invoicer/internal/cache"
	"github.com/flexprice/invoicer/internal/config"
	"github.com/flexprice/invoicer/internal/document"
	"github.com/flexprice/invoicer/internal/integration/stripe"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/postgres"
	repo "github.com/flexprice/invoicer/internal/repository/gorm"
	"github.com/flexprice/invoicer/internal/sentry"
	"github.com/flexprice/invoicer/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func main() {
	app := fx.New(
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,
			sentry.NewSentryService,
			cache.Initialize,

			// storage
			postgres.NewDB,
			postgres.NewClient,
			repo.NewCustomerRepository,
			repo.NewInvoiceRepository,
			repo.NewPaymentRepository,

			// external collaborators
			stripe.NewClient,
			document.NewPDFRenderer,
			auth.NewProvider,

			// services
			service.NewCustomerService,
			service.NewInvoiceService,
			service.NewPaymentService,

			// handlers
			provideHandlers,
			api.NewRouter,
		),
		fx.Invoke(
			sentry.RegisterHooks,
			migrate,
			startServer,
		),
	)
	app.Run()
}

func provideHandlers(
	log *logger.Logger,
	customerService service.CustomerService,
	invoiceService service.InvoiceService,
	paymentService service.PaymentService,
	renderer document.Renderer,
) api.Handlers {
	return api.Handlers{
		Customer:    v1.NewCustomerHandler(customerService, log),
		Invoice:     v1.NewInvoiceHandler(invoiceService, renderer, log),
		Payment:     v1.NewPaymentHandler(paymentService, log),
		InvoiceCron: cron.NewInvoiceCronHandler(invoiceService, log),
	}
}

func migrate(lc fx.Lifecycle, cfg *config.Configuration, db *gorm.DB, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !cfg.Postgres.AutoMigrate {
				return nil
			}
			log.Infow("running database migrations")
			return repo.Migrate(db.WithContext(ctx))
		},
		OnStop: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
}

func startServer(lc fx.Lifecycle, cfg *config.Configuration, router *gin.Engine, log *logger.Logger) {
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting http server", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("http server failed: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("shutting down http server")
			return srv.Shutdown(ctx)
		},
	})
}
