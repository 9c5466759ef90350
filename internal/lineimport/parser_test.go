package lineimport_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/MrJamesThe3rd/tradebooks/internal/document"
	"github.com/MrJamesThe3rd/tradebooks/internal/inventory"
	"github.com/MrJamesThe3rd/tradebooks/internal/lineimport"
)

type staticCatalog struct {
	items []inventory.Item
	err   error
	calls int
}

func (c *staticCatalog) ListItems(context.Context) ([]inventory.Item, error) {
	c.calls++
	return c.items, c.err
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParser_HeaderSemicolonEuropean(t *testing.T) {
	csv := `Descrição;Quantidade;Preço;Categoria
Mão de obra;2,5;45,00;labor
Tubo cobre 15mm;3;1.204,20;MATERIALS

Deslocação;1;15;
`

	res, err := lineimport.NewParser(nil).Parse(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.True(t, res.HasHeader)
	require.Len(t, res.LineItems, 3)

	assert.Equal(t, "Mão de obra", res.LineItems[0].Description)
	assert.True(t, dec("2.5").Equal(res.LineItems[0].Quantity))
	assert.True(t, dec("45").Equal(res.LineItems[0].UnitPrice))
	assert.Equal(t, document.CategoryLabor, res.LineItems[0].Category)

	assert.True(t, dec("1204.20").Equal(res.LineItems[1].UnitPrice))
	assert.Equal(t, document.CategoryMaterials, res.LineItems[1].Category)

	assert.Equal(t, document.CategoryOther, res.LineItems[2].Category)
}

func TestParser_CommaSeparatedEnglish(t *testing.T) {
	csv := "description,quantity,unit_price,category\n" +
		"Service call,1,\"1,250.00\",labor\n" +
		"Gasket,4,2.50,materials\n"

	res, err := lineimport.NewParser(nil).Parse(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, res.LineItems, 2)
	assert.True(t, dec("1250").Equal(res.LineItems[0].UnitPrice))
	assert.True(t, dec("2.50").Equal(res.LineItems[1].UnitPrice))
}

func TestParser_TradeHeadersAndDollars(t *testing.T) {
	csv := "Service,Hours,Rate,Type\n" +
		"Diagnostic visit,1.5,$95.00,labor\n" +
		"Condenser fan motor,1,\"$1,250.00\",equipment\n" +
		"Refrigerant,2,US$ 38,materials\n" +
		"Fittings,3,4.10 USD,materials\n"

	res, err := lineimport.NewParser(nil).Parse(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.True(t, res.HasHeader)
	require.Len(t, res.LineItems, 4)

	assert.Equal(t, "Diagnostic visit", res.LineItems[0].Description)
	assert.True(t, dec("1.5").Equal(res.LineItems[0].Quantity))
	assert.True(t, dec("95").Equal(res.LineItems[0].UnitPrice))
	assert.Equal(t, document.CategoryLabor, res.LineItems[0].Category)

	assert.True(t, dec("1250").Equal(res.LineItems[1].UnitPrice))
	assert.Equal(t, document.CategoryEquipment, res.LineItems[1].Category)
	assert.True(t, dec("38").Equal(res.LineItems[2].UnitPrice))
	assert.True(t, dec("4.10").Equal(res.LineItems[3].UnitPrice))
}

func TestParser_Headerless(t *testing.T) {
	csv := "Labor;2;60;labor\nFilter;1;12,50;materials\n"

	res, err := lineimport.NewParser(nil).Parse(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	assert.False(t, res.HasHeader)
	require.Len(t, res.LineItems, 2)
	assert.Equal(t, "Filter", res.LineItems[1].Description)
	assert.True(t, dec("12.5").Equal(res.LineItems[1].UnitPrice))
}

func TestParser_SKUResolvesInventoryRef(t *testing.T) {
	filter := inventory.Item{ID: uuid.New(), Name: "Furnace filter", SKU: "FLT-16", UnitCost: dec("12.50"), StockLevel: 8}
	catalog := &staticCatalog{items: []inventory.Item{filter}}

	csv := "description;quantity;unit_price;category;sku\n" +
		"Filter 16x25;2;14,00;materials;flt-16\n" +
		"Labor;1;60;labor;\n"

	res, err := lineimport.NewParser(catalog).Parse(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, res.LineItems, 2)

	ref := res.LineItems[0].InventoryRef
	require.NotNil(t, ref)
	assert.Equal(t, filter.ID, ref.ItemID)
	assert.Equal(t, "FLT-16", ref.SKU)
	assert.Nil(t, res.LineItems[1].InventoryRef)
	assert.Equal(t, 1, catalog.calls)
}

func TestParser_NoSKUColumnSkipsCatalog(t *testing.T) {
	catalog := &staticCatalog{err: errors.New("should not be called")}

	_, err := lineimport.NewParser(catalog).Parse(context.Background(),
		strings.NewReader("description;quantity;unit_price\nLabor;1;60\n"))
	require.NoError(t, err)
	assert.Zero(t, catalog.calls)
}

func TestParser_Windows1252(t *testing.T) {
	utf8 := "Descrição;Quantidade;Preço\nVálvula;1;9,90\n"
	encoded, err := charmap.Windows1252.NewEncoder().Bytes([]byte(utf8))
	require.NoError(t, err)

	res, err := lineimport.NewParser(nil).Parse(context.Background(), bytes.NewReader(encoded))
	require.NoError(t, err)
	assert.NotEqual(t, "UTF-8", res.Charset)
	require.Len(t, res.LineItems, 1)
	assert.Equal(t, "Válvula", res.LineItems[0].Description)
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name    string
		csv     string
		catalog inventory.Catalog
		row     int
		reason  string
	}{
		{
			name:   "MissingDescription",
			csv:    "description;quantity;unit_price\n;1;10\n",
			row:    2,
			reason: "missing description",
		},
		{
			name:   "BadQuantity",
			csv:    "description;quantity;unit_price\nLabor;1;10\nFilter;two;10\n",
			row:    3,
			reason: "quantity",
		},
		{
			name:   "UnknownCategory",
			csv:    "Labor;1;10;plumbing\n",
			row:    1,
			reason: `unknown category "plumbing"`,
		},
		{
			name:    "UnknownSKU",
			csv:     "description;quantity;unit_price;sku\nFilter;1;10;NOPE\n",
			catalog: &staticCatalog{},
			row:     2,
			reason:  `unknown sku "NOPE"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lineimport.NewParser(tt.catalog).Parse(context.Background(), strings.NewReader(tt.csv))

			var re *lineimport.RowError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.row, re.Row)
			assert.Contains(t, re.Reason, tt.reason)
		})
	}
}

func TestParser_Empty(t *testing.T) {
	_, err := lineimport.NewParser(nil).Parse(context.Background(), strings.NewReader("description;quantity;unit_price\n\n"))
	assert.ErrorIs(t, err, lineimport.ErrEmpty)
}

func TestParser_CatalogError(t *testing.T) {
	catalog := &staticCatalog{err: errors.New("connection refused")}

	_, err := lineimport.NewParser(catalog).Parse(context.Background(), strings.NewReader("Filter;1;10;materials;FLT\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
