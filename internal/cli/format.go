package cli

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when settings name no currency.
const DefaultCurrency = "BRL"

// FormatMoney renders amount in the currency's own notation, e.g. R$1.234,56.
// Unknown currency codes fall back to "<amount> <code>".
func FormatMoney(amount decimal.Decimal, currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = DefaultCurrency
	}
	if money.GetCurrency(code) == nil {
		return fmt.Sprintf("%s %s", amount.StringFixed(2), code)
	}
	cents := amount.Shift(2).Round(0).IntPart()
	return money.New(cents, code).Display()
}

// FormatSigned colors an amount by its sign.
func FormatSigned(amount decimal.Decimal, currency string) string {
	text := FormatMoney(amount, currency)
	switch {
	case amount.IsPositive():
		return IncomeStyle.Render(text)
	case amount.IsNegative():
		return ExpenseStyle.Render(text)
	default:
		return text
	}
}
