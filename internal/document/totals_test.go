package document_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tradebooks/internal/document"
)

func line(desc string, qty, price string, cat document.Category) document.LineItem {
	return document.LineItem{
		Description: desc,
		Quantity:    decimal.RequireFromString(qty),
		UnitPrice:   decimal.RequireFromString(price),
		Category:    cat,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculator_Compute(t *testing.T) {
	type want struct {
		subtotal string
		tax      string
		total    string
		clamped  bool
	}

	tests := []struct {
		name     string
		rounding document.Rounding
		items    []document.LineItem
		taxRate  string
		discount string
		want     want
	}{
		{
			name: "LaborAndMaterials",
			items: []document.LineItem{
				line("Labor", "2", "50", document.CategoryLabor),
				line("Materials", "3", "10", document.CategoryMaterials),
			},
			taxRate:  "9.25",
			discount: "0",
			want:     want{subtotal: "130.00", tax: "12.03", total: "142.03"},
		},
		{
			name:     "HalfEvenRounding",
			rounding: document.RoundHalfEven,
			items: []document.LineItem{
				line("Labor", "2", "50", document.CategoryLabor),
				line("Materials", "3", "10", document.CategoryMaterials),
			},
			taxRate:  "9.25",
			discount: "0",
			want:     want{subtotal: "130.00", tax: "12.02", total: "142.02"},
		},
		{
			name: "ExtensionsRoundedBeforeSum",
			items: []document.LineItem{
				line("Wire", "0.333", "1.00", document.CategoryMaterials),
				line("Wire", "0.333", "1.00", document.CategoryMaterials),
				line("Wire", "0.333", "1.00", document.CategoryMaterials),
			},
			taxRate:  "0",
			discount: "0",
			want:     want{subtotal: "0.99", tax: "0.00", total: "0.99"},
		},
		{
			name: "DiscountReducesTaxableBase",
			items: []document.LineItem{
				line("Service call", "1", "200", document.CategoryLabor),
			},
			taxRate:  "10",
			discount: "50",
			want:     want{subtotal: "200.00", tax: "15.00", total: "165.00"},
		},
		{
			name: "DiscountClampedToSubtotal",
			items: []document.LineItem{
				line("Service call", "1", "80", document.CategoryLabor),
			},
			taxRate:  "10",
			discount: "100",
			want:     want{subtotal: "80.00", tax: "0.00", total: "0.00", clamped: true},
		},
		{
			name:     "NoLines",
			taxRate:  "8",
			discount: "0",
			want:     want{subtotal: "0.00", tax: "0.00", total: "0.00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := document.NewCalculator(tt.rounding)

			got, err := calc.Compute(tt.items, dec(tt.taxRate), dec(tt.discount))
			require.NoError(t, err)

			assert.Equal(t, tt.want.subtotal, got.Subtotal.StringFixed(2))
			assert.Equal(t, tt.want.tax, got.TaxAmount.StringFixed(2))
			assert.Equal(t, tt.want.total, got.Total.StringFixed(2))
			assert.Equal(t, tt.want.clamped, got.DiscountClamped)
			assert.True(t, got.Total.Equal(got.TaxableBase.Add(got.TaxAmount)))

			again, err := calc.Compute(tt.items, dec(tt.taxRate), dec(tt.discount))
			require.NoError(t, err)
			assert.True(t, got.Total.Equal(again.Total))
			assert.True(t, got.TaxAmount.Equal(again.TaxAmount))
		})
	}
}

func TestCalculator_Compute_Invalid(t *testing.T) {
	ok := line("Labor", "1", "10", document.CategoryLabor)

	tests := []struct {
		name      string
		items     []document.LineItem
		taxRate   string
		discount  string
		wantField string
	}{
		{
			name:      "EmptyDescription",
			items:     []document.LineItem{ok, line("  ", "1", "10", document.CategoryLabor)},
			taxRate:   "0",
			discount:  "0",
			wantField: "line_items[1].description",
		},
		{
			name:      "ZeroQuantity",
			items:     []document.LineItem{line("Labor", "0", "10", document.CategoryLabor)},
			taxRate:   "0",
			discount:  "0",
			wantField: "line_items[0].quantity",
		},
		{
			name:      "NegativePrice",
			items:     []document.LineItem{line("Labor", "1", "-1", document.CategoryLabor)},
			taxRate:   "0",
			discount:  "0",
			wantField: "line_items[0].unit_price",
		},
		{
			name:      "UnknownCategory",
			items:     []document.LineItem{line("Labor", "1", "1", "misc")},
			taxRate:   "0",
			discount:  "0",
			wantField: "line_items[0].category",
		},
		{
			name:      "NegativeTaxRate",
			items:     []document.LineItem{ok},
			taxRate:   "-1",
			discount:  "0",
			wantField: "tax_rate",
		},
		{
			name:      "NegativeDiscount",
			items:     []document.LineItem{ok},
			taxRate:   "0",
			discount:  "-5",
			wantField: "discount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := document.NewCalculator(document.RoundHalfUp).Compute(tt.items, dec(tt.taxRate), dec(tt.discount))

			var ve *document.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}

func TestParseRounding(t *testing.T) {
	r, err := document.ParseRounding("")
	require.NoError(t, err)
	assert.Equal(t, document.RoundHalfUp, r)

	r, err = document.ParseRounding("Half_Even")
	require.NoError(t, err)
	assert.Equal(t, document.RoundHalfEven, r)

	_, err = document.ParseRounding("truncate")
	assert.Error(t, err)
}
