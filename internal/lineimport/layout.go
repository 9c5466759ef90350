package lineimport

import "strings"

// column is a logical field of a line-item row.
type column int

const (
	colDescription column = iota
	colQuantity
	colUnitPrice
	colCategory
	colSKU
)

// aliases lists the header spellings accepted for each column. Headers are
// compared lower-cased with surrounding spaces trimmed.
var aliases = map[column][]string{
	colDescription: {"description", "item", "service", "part", "work", "descrição", "descricao"},
	colQuantity:    {"quantity", "qty", "hours", "units", "quantidade", "qtd"},
	colUnitPrice:   {"unit_price", "unit price", "price", "rate", "unit cost", "preço", "preco", "preço unitário"},
	colCategory:    {"category", "type", "categoria"},
	colSKU:         {"sku", "part number", "part no", "ref", "referência", "referencia"},
}

// required columns must be present for a row to count as a header.
var required = []column{colDescription, colQuantity, colUnitPrice}

// positional is the layout of a file without a header row:
// description;quantity;unit_price;category[;sku].
var positional = layout{
	colDescription: 0,
	colQuantity:    1,
	colUnitPrice:   2,
	colCategory:    3,
	colSKU:         4,
}

// layout maps each column to its index in the row.
type layout map[column]int

func (l layout) index(c column) int {
	if idx, ok := l[c]; ok {
		return idx
	}

	return -1
}

// headerLayout returns the layout described by row, or nil when row is not a
// header.
func headerLayout(row []string) layout {
	l := make(layout)

	for i, cell := range row {
		name := strings.ToLower(strings.TrimSpace(cell))
		if name == "" {
			continue
		}

		for col, names := range aliases {
			if _, seen := l[col]; seen {
				continue
			}

			for _, alias := range names {
				if name == alias {
					l[col] = i
				}
			}
		}
	}

	for _, col := range required {
		if _, ok := l[col]; !ok {
			return nil
		}
	}

	return l
}
