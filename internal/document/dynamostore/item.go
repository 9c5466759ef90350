package dynamostore

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tradebooks/internal/document"
	"github.com/MrJamesThe3rd/tradebooks/internal/inventory"
)

// Amounts are stored as decimal strings and times as RFC3339Nano strings so
// that nothing is lost to float conversion.

type docItem struct {
	ID               string     `dynamodbav:"id"`
	Kind             string     `dynamodbav:"kind"`
	Number           string     `dynamodbav:"number"`
	CustomerID       string     `dynamodbav:"customer_id"`
	JobID            string     `dynamodbav:"job_id,omitempty"`
	LineItems        []lineItem `dynamodbav:"line_items"`
	TaxRate          string     `dynamodbav:"tax_rate"`
	Discount         string     `dynamodbav:"discount"`
	Notes            string     `dynamodbav:"notes"`
	Status           string     `dynamodbav:"status"`
	Subtotal         string     `dynamodbav:"subtotal"`
	TaxAmount        string     `dynamodbav:"tax_amount"`
	Total            string     `dynamodbav:"total"`
	ExpiresAt        string     `dynamodbav:"expires_at,omitempty"`
	DueDate          string     `dynamodbav:"due_date,omitempty"`
	PaymentTerms     string     `dynamodbav:"payment_terms"`
	PaidAmount       string     `dynamodbav:"paid_amount"`
	PaidAt           string     `dynamodbav:"paid_at,omitempty"`
	SourceEstimateID string     `dynamodbav:"source_estimate_id,omitempty"`
	StockDraws       []drawItem `dynamodbav:"stock_draws"`
	Version          int64      `dynamodbav:"version"`
	CreatedAt        string     `dynamodbav:"created_at"`
	UpdatedAt        string     `dynamodbav:"updated_at"`
}

type lineItem struct {
	Description string `dynamodbav:"description"`
	Quantity    string `dynamodbav:"quantity"`
	UnitPrice   string `dynamodbav:"unit_price"`
	Category    string `dynamodbav:"category"`
	ItemID      string `dynamodbav:"item_id,omitempty"`
	ItemName    string `dynamodbav:"item_name,omitempty"`
	ItemSKU     string `dynamodbav:"item_sku,omitempty"`
}

type drawItem struct {
	ItemID   string `dynamodbav:"item_id"`
	Quantity int64  `dynamodbav:"quantity"`
}

type stockItem struct {
	ID         string `dynamodbav:"id"`
	Name       string `dynamodbav:"name"`
	SKU        string `dynamodbav:"sku"`
	UnitCost   string `dynamodbav:"unit_cost"`
	StockLevel int64  `dynamodbav:"stock_level"`
}

func toDocItem(d *document.Document) docItem {
	it := docItem{
		ID:           d.ID.String(),
		Kind:         string(d.Kind),
		Number:       d.Number,
		CustomerID:   d.CustomerID.String(),
		LineItems:    make([]lineItem, len(d.LineItems)),
		TaxRate:      d.TaxRate.String(),
		Discount:     d.Discount.String(),
		Notes:        d.Notes,
		Status:       string(d.Status),
		Subtotal:     d.Subtotal.String(),
		TaxAmount:    d.TaxAmount.String(),
		Total:        d.Total.String(),
		ExpiresAt:    formatTime(d.ExpiresAt),
		DueDate:      formatTime(d.DueDate),
		PaymentTerms: d.PaymentTerms,
		PaidAmount:   d.PaidAmount.String(),
		PaidAt:       formatTime(d.PaidAt),
		StockDraws:   make([]drawItem, len(d.StockDraws)),
		Version:      d.Version,
		CreatedAt:    d.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:    d.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}

	if d.JobID != nil {
		it.JobID = d.JobID.String()
	}

	if d.SourceEstimateID != nil {
		it.SourceEstimateID = d.SourceEstimateID.String()
	}

	for i, li := range d.LineItems {
		it.LineItems[i] = lineItem{
			Description: li.Description,
			Quantity:    li.Quantity.String(),
			UnitPrice:   li.UnitPrice.String(),
			Category:    string(li.Category),
		}

		if ref := li.InventoryRef; ref != nil {
			it.LineItems[i].ItemID = ref.ItemID.String()
			it.LineItems[i].ItemName = ref.Name
			it.LineItems[i].ItemSKU = ref.SKU
		}
	}

	for i, dr := range d.StockDraws {
		it.StockDraws[i] = drawItem{ItemID: dr.ItemID.String(), Quantity: dr.Quantity}
	}

	return it
}

func fromDocItem(it docItem) (*document.Document, error) {
	var d document.Document

	p := parser{}

	d.ID = p.uuid(it.ID)
	d.Kind = document.Kind(it.Kind)
	d.Number = it.Number
	d.CustomerID = p.uuid(it.CustomerID)
	d.JobID = p.optUUID(it.JobID)
	d.TaxRate = p.decimal(it.TaxRate)
	d.Discount = p.decimal(it.Discount)
	d.Notes = it.Notes
	d.Status = document.Status(it.Status)
	d.Subtotal = p.decimal(it.Subtotal)
	d.TaxAmount = p.decimal(it.TaxAmount)
	d.Total = p.decimal(it.Total)
	d.ExpiresAt = p.optTime(it.ExpiresAt)
	d.DueDate = p.optTime(it.DueDate)
	d.PaymentTerms = it.PaymentTerms
	d.PaidAmount = p.decimal(it.PaidAmount)
	d.PaidAt = p.optTime(it.PaidAt)
	d.SourceEstimateID = p.optUUID(it.SourceEstimateID)
	d.Version = it.Version
	d.CreatedAt = p.time(it.CreatedAt)
	d.UpdatedAt = p.time(it.UpdatedAt)

	d.LineItems = make([]document.LineItem, len(it.LineItems))
	for i, li := range it.LineItems {
		d.LineItems[i] = document.LineItem{
			Description: li.Description,
			Quantity:    p.decimal(li.Quantity),
			UnitPrice:   p.decimal(li.UnitPrice),
			Category:    document.Category(li.Category),
		}

		if li.ItemID != "" {
			d.LineItems[i].InventoryRef = &inventory.Ref{ItemID: p.uuid(li.ItemID), Name: li.ItemName, SKU: li.ItemSKU}
		}
	}

	for _, dr := range it.StockDraws {
		d.StockDraws = append(d.StockDraws, inventory.Draw{ItemID: p.uuid(dr.ItemID), Quantity: dr.Quantity})
	}

	if p.err != nil {
		return nil, fmt.Errorf("decoding document %s: %w", it.ID, p.err)
	}

	return &d, nil
}

func toStockItem(it inventory.Item) stockItem {
	return stockItem{
		ID:         it.ID.String(),
		Name:       it.Name,
		SKU:        it.SKU,
		UnitCost:   it.UnitCost.String(),
		StockLevel: it.StockLevel,
	}
}

func fromStockItem(it stockItem) (inventory.Item, error) {
	p := parser{}

	item := inventory.Item{
		ID:         p.uuid(it.ID),
		Name:       it.Name,
		SKU:        it.SKU,
		UnitCost:   p.decimal(it.UnitCost),
		StockLevel: it.StockLevel,
	}

	if p.err != nil {
		return inventory.Item{}, fmt.Errorf("decoding inventory item %s: %w", it.ID, p.err)
	}

	return item, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}

	return t.UTC().Format(time.RFC3339Nano)
}

// parser keeps the first error so decoding reads as a flat list of fields.
type parser struct {
	err error
}

func (p *parser) uuid(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil && p.err == nil {
		p.err = err
	}

	return id
}

func (p *parser) optUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}

	id := p.uuid(s)

	return &id
}

func (p *parser) decimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(s)
	if err != nil && p.err == nil {
		p.err = err
	}

	return d
}

func (p *parser) time(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil && p.err == nil {
		p.err = err
	}

	return t
}

func (p *parser) optTime(s string) *time.Time {
	if s == "" {
		return nil
	}

	t := p.time(s)

	return &t
}
