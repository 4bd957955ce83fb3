package types

import (
	"strings"

	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/shopspring/decimal"
)

// DEFAULT_PRECISION applies to any currency not listed in currencyPrecision
const DEFAULT_PRECISION = 2

// DEFAULT_CURRENCY is used when neither the request nor the config sets one
const DEFAULT_CURRENCY = "usd"

// currencyPrecision holds the minor unit exponent of zero-decimal currencies;
// everything else uses DEFAULT_PRECISION.
var currencyPrecision = map[string]int32{
	"bif": 0,
	"clp": 0,
	"djf": 0,
	"gnf": 0,
	"jpy": 0,
	"kmf": 0,
	"krw": 0,
	"mga": 0,
	"pyg": 0,
	"rwf": 0,
	"ugx": 0,
	"vnd": 0,
	"vuv": 0,
	"xaf": 0,
	"xof": 0,
	"xpf": 0,
}

// GetCurrencyPrecision returns the number of decimal places used by the currency
func GetCurrencyPrecision(currency string) int32 {
	if p, ok := currencyPrecision[strings.ToLower(currency)]; ok {
		return p
	}
	return DEFAULT_PRECISION
}

// RoundToCurrencyPrecision rounds half away from zero to the currency's precision
func RoundToCurrencyPrecision(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.Round(GetCurrencyPrecision(currency))
}

// ToMinorUnits converts an amount to the integer the payment processor expects,
// e.g. 12.34 usd -> 1234, 1200 jpy -> 1200.
func ToMinorUnits(amount decimal.Decimal, currency string) int64 {
	precision := GetCurrencyPrecision(currency)
	return amount.Shift(precision).Round(0).IntPart()
}

// FromMinorUnits converts a processor amount back into a decimal amount
func FromMinorUnits(amount int64, currency string) decimal.Decimal {
	return decimal.New(amount, -GetCurrencyPrecision(currency))
}

// ValidateCurrencyCode checks the value is a three letter ISO code
func ValidateCurrencyCode(currency string) error {
	if len(currency) != 3 {
		return ierr.NewError("invalid currency code").
			WithHint("Currency code must be a 3 letter ISO 4217 code").
			WithReportableDetails(map[string]any{
				"currency": currency,
			}).
			Mark(ierr.ErrValidation)
	}
	for _, r := range strings.ToLower(currency) {
		if r < 'a' || r > 'z' {
			return ierr.NewError("invalid currency code").
				WithHint("Currency code must only contain letters").
				WithReportableDetails(map[string]any{
					"currency": currency,
				}).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}
