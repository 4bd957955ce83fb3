package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/flexprice/invoicer/internal/domain/invoice"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/logger"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// Issuer is the party sending the invoice
type Issuer struct {
	Name    string
	Email   string
	Company string
}

// Renderer turns a fully loaded invoice into a printable document
type Renderer interface {
	Render(inv *invoice.Invoice, issuer Issuer) ([]byte, error)
	ContentType() string
}

type pdfRenderer struct {
	logger *logger.Logger
}

func NewPDFRenderer(log *logger.Logger) Renderer {
	return &pdfRenderer{logger: log}
}

func (r *pdfRenderer) ContentType() string {
	return "application/pdf"
}

const (
	margin     = 15.0
	pageWidth  = 210.0
	rightEdge  = pageWidth - margin
	lineHeight = 6.0
)

func (r *pdfRenderer) Render(inv *invoice.Invoice, issuer Issuer) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetTitle("Invoice "+inv.InvoiceNumber, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// header
	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetTextColor(30, 64, 175)
	pdf.CellFormat(100, 12, "INVOICE", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(17, 17, 17)
	pdf.CellFormat(0, 12, tr(firstNonEmpty(issuer.Company, issuer.Name, "Your Company")), "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(102, 102, 102)
	pdf.CellFormat(100, lineHeight, inv.InvoiceNumber, "", 0, "L", false, 0, "")
	pdf.CellFormat(0, lineHeight, tr(issuer.Email), "", 1, "R", false, 0, "")
	pdf.Ln(8)

	// bill to and dates
	top := pdf.GetY()
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(100, lineHeight, "BILL TO", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(17, 17, 17)
	if c := inv.Customer; c != nil {
		for _, line := range []string{c.Name, c.Company, c.Email, c.Address, c.Phone} {
			if line != "" {
				pdf.CellFormat(100, lineHeight, tr(line), "", 1, "L", false, 0, "")
			}
		}
	}
	bottom := pdf.GetY()

	pdf.SetXY(pageWidth/2+20, top)
	r.labelValue(pdf, "Issue Date:", inv.IssueDate.Format("Jan 2, 2006"))
	pdf.SetX(pageWidth/2 + 20)
	r.labelValue(pdf, "Due Date:", inv.DueDate.Format("Jan 2, 2006"))
	pdf.SetX(pageWidth/2 + 20)
	r.labelValue(pdf, "Status:", string(inv.Status))
	if pdf.GetY() > bottom {
		bottom = pdf.GetY()
	}
	pdf.SetY(bottom + 10)

	// line items
	widths := []float64{95, 20, 32, 33}
	pdf.SetFillColor(243, 244, 246)
	pdf.SetTextColor(55, 65, 81)
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range []string{"Description", "Qty", "Unit Price", "Amount"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 8, h, "", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(17, 17, 17)
	for _, item := range inv.LineItems {
		pdf.CellFormat(widths[0], 7, tr(truncate(item.Description, 60)), "B", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, item.Quantity.String(), "B", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 7, money(item.UnitPrice, inv.Currency), "B", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, money(item.Amount, inv.Currency), "B", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// summary
	r.summaryRow(pdf, "Subtotal:", money(inv.Subtotal, inv.Currency))
	if inv.Discount.IsPositive() {
		r.summaryRow(pdf, "Discount:", "-"+money(inv.Discount, inv.Currency))
	}
	if inv.TaxRate.IsPositive() {
		r.summaryRow(pdf, fmt.Sprintf("Tax (%s%%):", inv.TaxRate.String()), money(inv.TaxAmount, inv.Currency))
	}
	pdf.SetFont("Helvetica", "B", 13)
	r.summaryRow(pdf, "Total:", money(inv.Total, inv.Currency))

	if inv.Notes != "" {
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(102, 102, 102)
		pdf.CellFormat(0, lineHeight, "Notes", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(55, 65, 81)
		pdf.MultiCell(0, 5, tr(inv.Notes), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		r.logger.Errorw("failed to render invoice pdf", "invoice_id", inv.ID, "error", err)
		return nil, ierr.WithError(err).
			WithHint("Failed to generate invoice PDF").
			Mark(ierr.ErrSystem)
	}
	return buf.Bytes(), nil
}

func (r *pdfRenderer) labelValue(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(102, 102, 102)
	pdf.CellFormat(25, lineHeight, label, "", 0, "L", false, 0, "")
	pdf.SetTextColor(17, 17, 17)
	pdf.CellFormat(0, lineHeight, value, "", 1, "R", false, 0, "")
}

func (r *pdfRenderer) summaryRow(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetX(rightEdge - 75)
	pdf.CellFormat(40, 7, label, "", 0, "L", false, 0, "")
	pdf.CellFormat(35, 7, value, "", 1, "R", false, 0, "")
}

func money(amount decimal.Decimal, currency string) string {
	precision := types.GetCurrencyPrecision(currency)
	return strings.ToUpper(currency) + " " + amount.StringFixed(precision)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
