package document

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tradebooks/internal/inventory"
)

// Kind tags a financial document as an estimate or an invoice.
type Kind string

const (
	KindEstimate Kind = "estimate"
	KindInvoice  Kind = "invoice"
)

func (k Kind) Valid() bool {
	return k == KindEstimate || k == KindInvoice
}

// Category classifies a billable line.
type Category string

const (
	CategoryLabor     Category = "labor"
	CategoryMaterials Category = "materials"
	CategoryEquipment Category = "equipment"
	CategoryTravel    Category = "travel"
	CategoryOther     Category = "other"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryLabor, CategoryMaterials, CategoryEquipment, CategoryTravel, CategoryOther:
		return true
	}

	return false
}

// Status is the lifecycle state of a document. Which values apply depends on
// the document kind.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusExpired   Status = "expired"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

// LineItem is one billable row. It belongs to exactly one document.
type LineItem struct {
	Description  string
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	Category     Category
	InventoryRef *inventory.Ref // only set when the line was added from stock
}

// Document is an Estimate or an Invoice. Estimate-only and invoice-only
// fields are left zero on the other kind.
type Document struct {
	ID         uuid.UUID
	Kind       Kind
	Number     string
	CustomerID uuid.UUID
	JobID      *uuid.UUID
	LineItems  []LineItem
	TaxRate    decimal.Decimal // percent
	Discount   decimal.Decimal
	Notes      string
	Status     Status

	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal

	// Estimate
	ExpiresAt *time.Time

	// Invoice
	DueDate          *time.Time
	PaymentTerms     string
	PaidAmount       decimal.Decimal
	PaidAt           *time.Time
	SourceEstimateID *uuid.UUID
	StockDraws       []inventory.Draw

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BalanceDue is total minus paid amount, never negative. Always zero for
// estimates.
func (d *Document) BalanceDue() decimal.Decimal {
	if d.Kind != KindInvoice {
		return decimal.Zero
	}

	balance := d.Total.Sub(d.PaidAmount)
	if balance.IsNegative() {
		return decimal.Zero
	}

	return balance
}

func (d *Document) IsTerminal() bool {
	return IsTerminal(d.Kind, d.Status)
}

func (d *Document) applyTotals(t Totals) {
	d.Subtotal = t.Subtotal
	d.TaxAmount = t.TaxAmount
	d.Total = t.Total
}

func (d *Document) stockLines() []inventory.Line {
	lines := make([]inventory.Line, len(d.LineItems))
	for i, li := range d.LineItems {
		lines[i] = inventory.Line{
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
			Ref:         li.InventoryRef,
		}
	}

	return lines
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	c := *d
	c.LineItems = CloneLineItems(d.LineItems)
	c.JobID = cloneUUID(d.JobID)
	c.SourceEstimateID = cloneUUID(d.SourceEstimateID)
	c.ExpiresAt = cloneTime(d.ExpiresAt)
	c.DueDate = cloneTime(d.DueDate)
	c.PaidAt = cloneTime(d.PaidAt)

	if d.StockDraws != nil {
		c.StockDraws = append([]inventory.Draw(nil), d.StockDraws...)
	}

	return &c
}

func CloneLineItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}

	out := make([]LineItem, len(items))
	for i, li := range items {
		out[i] = li
		if li.InventoryRef != nil {
			ref := *li.InventoryRef
			out[i].InventoryRef = &ref
		}
	}

	return out
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}

	v := *id

	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	v := *t

	return &v
}
