package lineimport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MrJamesThe3rd/tradebooks/internal/document"
	enc "github.com/MrJamesThe3rd/tradebooks/internal/encoding"
	"github.com/MrJamesThe3rd/tradebooks/internal/inventory"
)

var ErrEmpty = errors.New("no line items found")

// RowError points at the offending row of an upload. Row is 1-based.
type RowError struct {
	Row    int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// Result is a parsed upload, ready to become the line items of a draft.
type Result struct {
	Charset   string
	HasHeader bool
	LineItems []document.LineItem
}

// Parser turns a spreadsheet export of line items into document lines. A SKU
// column pins the line to the inventory item with that SKU.
type Parser struct {
	catalog inventory.Catalog
}

func NewParser(catalog inventory.Catalog) *Parser {
	return &Parser{catalog: catalog}
}

func (p *Parser) Parse(ctx context.Context, r io.Reader) (*Result, error) {
	utf8r, det, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	br := bufio.NewReader(utf8r)

	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	cols, start := positional, 0
	if len(rows) > 0 {
		if l := headerLayout(rows[0]); l != nil {
			cols, start = l, 1
		}
	}

	bySKU, err := p.skuIndex(ctx, cols)
	if err != nil {
		return nil, err
	}

	res := &Result{Charset: det.Charset, HasHeader: start == 1}

	for i, row := range rows[start:] {
		if blank(row) {
			continue
		}

		li, err := parseRow(row, cols, bySKU)
		if err != nil {
			return nil, &RowError{Row: start + i + 1, Reason: err.Error()}
		}

		res.LineItems = append(res.LineItems, li)
	}

	if len(res.LineItems) == 0 {
		return nil, ErrEmpty
	}

	return res, nil
}

// skuIndex loads the catalog only when the layout has a SKU column.
func (p *Parser) skuIndex(ctx context.Context, cols layout) (map[string]inventory.Item, error) {
	if cols.index(colSKU) < 0 || p.catalog == nil {
		return nil, nil
	}

	items, err := p.catalog.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing inventory: %w", err)
	}

	bySKU := make(map[string]inventory.Item, len(items))
	for _, it := range items {
		if it.SKU != "" {
			bySKU[strings.ToLower(it.SKU)] = it
		}
	}

	return bySKU, nil
}

func parseRow(row []string, cols layout, bySKU map[string]inventory.Item) (document.LineItem, error) {
	li := document.LineItem{
		Description: cellValue(row, cols.index(colDescription)),
		Category:    document.CategoryOther,
	}

	if li.Description == "" {
		return li, errors.New("missing description")
	}

	qty, err := parseAmount(cellValue(row, cols.index(colQuantity)))
	if err != nil {
		return li, fmt.Errorf("quantity: %w", err)
	}

	li.Quantity = qty

	price, err := parseAmount(cellValue(row, cols.index(colUnitPrice)))
	if err != nil {
		return li, fmt.Errorf("unit price: %w", err)
	}

	li.UnitPrice = price

	if c := strings.ToLower(cellValue(row, cols.index(colCategory))); c != "" {
		li.Category = document.Category(c)
		if !li.Category.Valid() {
			return li, fmt.Errorf("unknown category %q", c)
		}
	}

	sku := cellValue(row, cols.index(colSKU))
	if sku == "" || bySKU == nil {
		return li, nil
	}

	it, ok := bySKU[strings.ToLower(sku)]
	if !ok {
		return li, fmt.Errorf("unknown sku %q", sku)
	}

	li.InventoryRef = &inventory.Ref{ItemID: it.ID, Name: it.Name, SKU: it.SKU}

	return li, nil
}

// sniffDelimiter picks ';' unless the first line only has commas, tabs or
// pipes in it.
func sniffDelimiter(br *bufio.Reader) rune {
	head, _ := br.Peek(br.Size())
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}

	best, bestCount := ';', bytes.Count(head, []byte{';'})
	for _, d := range []rune{'\t', '|', ','} {
		if n := bytes.Count(head, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}

	return best
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}

	return true
}

// cellValue safely gets a trimmed cell value from a row.
func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
