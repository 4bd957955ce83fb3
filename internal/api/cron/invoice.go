package cron

import (
	"net/http"
	"time"

	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/service"
	"github.com/gin-gonic/gin"
)

// InvoiceCronHandler exposes invoice sweeps to an external scheduler
type InvoiceCronHandler struct {
	invoiceService service.InvoiceService
	logger         *logger.Logger
}

func NewInvoiceCronHandler(invoiceService service.InvoiceService, logger *logger.Logger) *InvoiceCronHandler {
	return &InvoiceCronHandler{
		invoiceService: invoiceService,
		logger:         logger,
	}
}

// MarkOverdue moves the caller's SENT invoices past their due date to OVERDUE
func (h *InvoiceCronHandler) MarkOverdue(c *gin.Context) {
	ctx := c.Request.Context()
	log := h.logger.WithContext(ctx)
	log.Infow("starting overdue invoice sweep", "time", time.Now().UTC().Format(time.RFC3339))

	resp, err := h.invoiceService.MarkOverdueInvoices(ctx)
	if err != nil {
		log.Errorw("failed to mark overdue invoices", "error", err)
		c.Error(err)
		return
	}

	log.Infow("completed overdue invoice sweep", "updated", resp.Updated)
	c.JSON(http.StatusOK, resp)
}
