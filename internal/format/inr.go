// Package format renders ledger values for terminal output.
package format

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"kharcha/internal/core"
)

var printer = message.NewPrinter(language.Make("en-IN"))

// INR formats amount as Indian Rupees with two decimals, e.g. ₹1,250.50.
// Negative amounts get a leading minus before the symbol.
func INR(amount float64) string {
	amount = core.Round2(amount)
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = math.Abs(amount)
	}
	return sign + "₹" + printer.Sprintf("%.2f", amount)
}
