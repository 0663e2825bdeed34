// Package format renders projection values for people: whole-peso currency
// amounts with thousands separators, years and percentages.
package format

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NotAvailable is shown in place of values that cannot be computed.
const NotAvailable = "N/D"

var printer = message.NewPrinter(language.English)

// Currency returns a whole-peso amount with a dollar sign and thousands
// separators (e.g., "-$1,234,568"). Halves round to even.
func Currency(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return NotAvailable
	}
	pesos := decimal.NewFromFloat(amount).RoundBank(0)
	sign := ""
	if pesos.IsNegative() {
		sign = "-"
		pesos = pesos.Neg()
	}
	return sign + "$" + groupThousands(pesos.BigInt())
}

func groupThousands(n *big.Int) string {
	if n.IsInt64() {
		return printer.Sprintf("%d", n.Int64())
	}
	digits := n.String()
	var b strings.Builder
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Years returns a duration in years with one decimal (e.g., "1.1"). The
// binary value is rounded, so an exact 1.25 becomes "1.2".
func Years(years float64) string {
	if math.IsNaN(years) || math.IsInf(years, 0) {
		return NotAvailable
	}
	return strconv.FormatFloat(years, 'f', 1, 64)
}

// Payback returns the payback period as shown on the dashboard metric.
func Payback(years float64) string {
	if math.IsNaN(years) || math.IsInf(years, 0) {
		return "sin retorno"
	}
	return Years(years) + " años"
}

// Percent returns a percentage with one decimal (e.g., "5.0%").
func Percent(percent float64) string {
	if math.IsNaN(percent) || math.IsInf(percent, 0) {
		return NotAvailable
	}
	return decimal.NewFromFloat(percent).StringFixed(1) + "%"
}

// Share returns a fraction as a whole percentage (e.g., 0.6 -> "60%").
func Share(fraction float64) string {
	return decimal.NewFromFloat(fraction).Shift(2).StringFixed(0) + "%"
}
