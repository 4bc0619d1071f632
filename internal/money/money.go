// Package money holds the cent arithmetic shared by the ledger, the planner
// and the payment provider boundary. Amounts are int64 cents.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var ErrInvalidAmount = errors.New("invalid amount")

var hundred = decimal.NewFromInt(100)

// Split divides total into n parts of round(total/n) cents each, the last part
// absorbing the remainder so the parts always sum to total.
// When rounding half-up would overshoot (tiny totals spread over many parts)
// the parts are truncated instead, so the last part is never negative.
func Split(total int64, n int) []int64 {
	if n < 1 {
		return nil
	}

	parts := make([]int64, n)
	if n == 1 {
		parts[0] = total
		return parts
	}

	share := decimal.NewFromInt(total).Div(decimal.NewFromInt(int64(n)))

	each := share.Round(0).IntPart()
	if each*int64(n-1) > total {
		each = share.Truncate(0).IntPart()
	}

	for i := 0; i < n-1; i++ {
		parts[i] = each
	}

	parts[n-1] = total - each*int64(n-1)

	return parts
}

// Sum adds up amounts.
func Sum(amounts []int64) int64 {
	var total int64
	for _, a := range amounts {
		total += a
	}

	return total
}

// FromDecimal converts a decimal amount in currency units into cents, rounding half-up.
func FromDecimal(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}

// ToDecimal converts cents into a decimal amount in currency units.
func ToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Parse reads an amount written either with a dot ("1234.56", as payment
// providers send it) or in Brazilian notation ("1.234,56").
func Parse(s string) (int64, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimPrefix(clean, "R$")
	clean = strings.TrimSpace(clean)

	if strings.Contains(clean, ",") {
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	}

	if clean == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	return FromDecimal(d), nil
}

var printer = message.NewPrinter(language.BrazilianPortuguese)

// Format renders cents as Brazilian reais, e.g. 123456 -> "R$ 1.234,56".
func Format(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}

	v := ToDecimal(cents).InexactFloat64()

	return sign + "R$ " + printer.Sprint(number.Decimal(v, number.Scale(2)))
}
