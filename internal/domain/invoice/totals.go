package invoice

import (
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/shopspring/decimal"
)

// TaxRatePrecision is the number of decimals a tax rate may carry
const TaxRatePrecision = 2

var hundred = decimal.NewFromInt(100)

// Totals is the derived money state of an invoice. LineAmounts is aligned
// with the line items it was computed from.
type Totals struct {
	LineAmounts []decimal.Decimal
	Subtotal    decimal.Decimal
	TaxAmount   decimal.Decimal
	Total       decimal.Decimal
}

// CalculateTotals computes line amounts, subtotal, tax and total.
//
//	amount    = round(quantity * unitPrice)
//	subtotal  = sum(amount)
//	taxAmount = round(max(0, subtotal - discount) * taxRate / 100)
//	total     = max(0, subtotal - discount + taxAmount)
//
// Rounding uses the currency precision. The inputs are not modified.
func CalculateTotals(items []*LineItem, taxRate, discount decimal.Decimal, currency string) (*Totals, error) {
	if len(items) == 0 {
		return nil, ierr.NewError("invoice must have at least one line item").
			WithHint("Add at least one line item").
			Mark(ierr.ErrValidation)
	}

	if err := ValidateTaxRate(taxRate); err != nil {
		return nil, err
	}

	if err := ValidateDiscount(discount, currency); err != nil {
		return nil, err
	}

	totals := &Totals{
		LineAmounts: make([]decimal.Decimal, len(items)),
		Subtotal:    decimal.Zero,
	}

	for idx, item := range items {
		if item == nil {
			return nil, ierr.NewErrorf("line item %d is empty", idx).
				WithHint("Line items must not be empty").
				Mark(ierr.ErrValidation)
		}
		if err := item.Validate(); err != nil {
			return nil, err
		}
		amount := types.RoundToCurrencyPrecision(item.Quantity.Mul(item.UnitPrice), currency)
		totals.LineAmounts[idx] = amount
		totals.Subtotal = totals.Subtotal.Add(amount)
	}

	taxable := decimal.Max(decimal.Zero, totals.Subtotal.Sub(discount))
	totals.TaxAmount = types.RoundToCurrencyPrecision(taxable.Mul(taxRate).Div(hundred), currency)
	totals.Total = types.RoundToCurrencyPrecision(
		decimal.Max(decimal.Zero, totals.Subtotal.Sub(discount).Add(totals.TaxAmount)), currency)

	return totals, nil
}

// ValidateTaxRate checks the rate is a percentage in [0, 100] with at most
// TaxRatePrecision decimals, the precision it is stored with
func ValidateTaxRate(taxRate decimal.Decimal) error {
	if taxRate.IsNegative() || taxRate.GreaterThan(hundred) {
		return ierr.NewError("tax rate out of range").
			WithHint("Tax rate must be between 0 and 100").
			WithReportableDetails(map[string]any{
				"tax_rate": taxRate.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	if !taxRate.Equal(taxRate.Round(TaxRatePrecision)) {
		return ierr.NewError("tax rate has too many decimal places").
			WithHintf("Tax rate must have at most %d decimal places", TaxRatePrecision).
			WithReportableDetails(map[string]any{
				"tax_rate": taxRate.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ValidateDiscount checks the discount is a non-negative amount expressible
// in the currency's minor units
func ValidateDiscount(discount decimal.Decimal, currency string) error {
	if discount.IsNegative() {
		return ierr.NewError("discount must not be negative").
			WithHint("Discount must be zero or a positive amount").
			WithReportableDetails(map[string]any{
				"discount": discount.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	precision := types.GetCurrencyPrecision(currency)
	if !discount.Equal(discount.Round(precision)) {
		return ierr.NewError("discount has too many decimal places").
			WithHintf("Discount must have at most %d decimal places", precision).
			WithReportableDetails(map[string]any{
				"discount": discount.String(),
				"currency": currency,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
