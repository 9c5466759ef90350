package lineimport

import (
	"strings"

	"github.com/shopspring/decimal"
)

// currencyMarks may lead or trail an amount. Longer marks come first so
// "US$" is not left as "US".
var currencyMarks = []string{"US$", "USD", "EUR", "GBP", "$", "€", "£"}

// parseAmount reads a number written in either English ("1,234.56") or
// European ("1.234,56") style. The right-most separator is taken as the
// decimal point; the other is a thousands separator.
func parseAmount(s string) (decimal.Decimal, error) {
	clean := strings.TrimSpace(s)
	for _, mark := range currencyMarks {
		clean = strings.TrimSpace(strings.TrimPrefix(clean, mark))
		clean = strings.TrimSpace(strings.TrimSuffix(clean, mark))
	}

	clean = strings.ReplaceAll(clean, " ", "")

	comma := strings.LastIndex(clean, ",")
	dot := strings.LastIndex(clean, ".")

	switch {
	case comma > dot:
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.Replace(clean, ",", ".", 1)
	case dot > comma && comma >= 0:
		clean = strings.ReplaceAll(clean, ",", "")
	}

	return decimal.NewFromString(clean)
}
