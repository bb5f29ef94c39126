// Package money formats and parses US-dollar decimal amounts.
package money

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// Format renders an amount as a currency string, e.g. 2500 -> "$2,500.00".
func Format(amount float64) string {
	return "$" + printer.Sprintf("%.2f", amount)
}

// Parse reads a currency string back into an amount. Currency symbols and
// grouping commas are stripped first. Unparseable input yields 0.
func Parse(value string) float64 {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(value))
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return parsed
}
