package document

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const currencyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Rounding is the rule applied at every aggregation step.
type Rounding int

const (
	// RoundHalfUp rounds ties away from zero (12.025 -> 12.03). It is the
	// default because invoice totals are expected to round half a cent up;
	// RoundHalfEven is opt-in.
	RoundHalfUp Rounding = iota
	// RoundHalfEven rounds ties to the even neighbour (12.025 -> 12.02).
	RoundHalfEven
)

func (r Rounding) Round(d decimal.Decimal) decimal.Decimal {
	if r == RoundHalfEven {
		return d.RoundBank(currencyPlaces)
	}

	return d.Round(currencyPlaces)
}

func (r Rounding) String() string {
	if r == RoundHalfEven {
		return "half_even"
	}

	return "half_up"
}

func ParseRounding(s string) (Rounding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "half_up":
		return RoundHalfUp, nil
	case "half_even", "bankers":
		return RoundHalfEven, nil
	}

	return 0, fmt.Errorf("unknown rounding mode %q", s)
}

// Totals holds the computed monetary fields of a document.
type Totals struct {
	Subtotal    decimal.Decimal
	Discount    decimal.Decimal // discount actually applied, at most Subtotal
	TaxableBase decimal.Decimal
	TaxAmount   decimal.Decimal
	Total       decimal.Decimal

	// DiscountClamped is set when the requested discount exceeded the
	// subtotal and was reduced to it.
	DiscountClamped bool
}

type Calculator struct {
	rounding Rounding
}

func NewCalculator(rounding Rounding) *Calculator {
	return &Calculator{rounding: rounding}
}

func (c *Calculator) Rounding() Rounding { return c.rounding }

// Extension is quantity × unit price rounded to currency precision.
func (c *Calculator) Extension(li LineItem) decimal.Decimal {
	return c.rounding.Round(li.Quantity.Mul(li.UnitPrice))
}

// Compute derives subtotal, tax and total. It has no side effects.
func (c *Calculator) Compute(items []LineItem, taxRate, discount decimal.Decimal) (Totals, error) {
	if err := ValidateLineItems(items); err != nil {
		return Totals{}, err
	}

	if taxRate.IsNegative() {
		return Totals{}, &ValidationError{Field: "tax_rate", Reason: "must not be negative"}
	}

	if discount.IsNegative() {
		return Totals{}, &ValidationError{Field: "discount", Reason: "must not be negative"}
	}

	subtotal := decimal.Zero
	for _, li := range items {
		subtotal = subtotal.Add(c.Extension(li))
	}

	t := Totals{Subtotal: subtotal, Discount: discount}

	if discount.GreaterThan(subtotal) {
		t.Discount = subtotal
		t.DiscountClamped = true
	}

	t.TaxableBase = subtotal.Sub(t.Discount)
	t.TaxAmount = c.rounding.Round(t.TaxableBase.Mul(taxRate).Div(hundred))
	t.Total = t.TaxableBase.Add(t.TaxAmount)

	return t, nil
}

// ValidateLineItems checks every line independently of any document.
func ValidateLineItems(items []LineItem) error {
	for i, li := range items {
		field := fmt.Sprintf("line_items[%d]", i)

		if strings.TrimSpace(li.Description) == "" {
			return &ValidationError{Field: field + ".description", Reason: "must not be empty"}
		}

		if !li.Quantity.IsPositive() {
			return &ValidationError{Field: field + ".quantity", Reason: "must be positive"}
		}

		if li.UnitPrice.IsNegative() {
			return &ValidationError{Field: field + ".unit_price", Reason: "must not be negative"}
		}

		if !li.Category.Valid() {
			return &ValidationError{Field: field + ".category", Reason: fmt.Sprintf("unknown category %q", li.Category)}
		}
	}

	return nil
}
