package document

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tradebooks/internal/document"
	"github.com/MrJamesThe3rd/tradebooks/internal/inventory"
)

type inventoryRefDTO struct {
	ItemID uuid.UUID `json:"item_id"`
	Name   string    `json:"name,omitempty"`
	SKU    string    `json:"sku,omitempty"`
}

type lineItemRequest struct {
	Description  string            `json:"description"`
	Quantity     decimal.Decimal   `json:"quantity"`
	UnitPrice    decimal.Decimal   `json:"unit_price"`
	Category     document.Category `json:"category"`
	InventoryRef *inventoryRefDTO  `json:"inventory_ref,omitempty"`
}

type createDocumentRequest struct {
	Kind         document.Kind     `json:"kind"`
	CustomerID   uuid.UUID         `json:"customer_id"`
	JobID        *uuid.UUID        `json:"job_id,omitempty"`
	LineItems    []lineItemRequest `json:"line_items"`
	TaxRate      decimal.Decimal   `json:"tax_rate"`
	Discount     decimal.Decimal   `json:"discount"`
	Notes        string            `json:"notes"`
	ExpiresAt    *time.Time        `json:"expires_at,omitempty"`
	DueDate      *time.Time        `json:"due_date,omitempty"`
	PaymentTerms string            `json:"payment_terms,omitempty"`
}

type updateDocumentRequest struct {
	CustomerID   *uuid.UUID         `json:"customer_id,omitempty"`
	JobID        *uuid.UUID         `json:"job_id,omitempty"`
	LineItems    *[]lineItemRequest `json:"line_items,omitempty"`
	TaxRate      *decimal.Decimal   `json:"tax_rate,omitempty"`
	Discount     *decimal.Decimal   `json:"discount,omitempty"`
	Notes        *string            `json:"notes,omitempty"`
	ExpiresAt    *time.Time         `json:"expires_at,omitempty"`
	DueDate      *time.Time         `json:"due_date,omitempty"`
	PaymentTerms *string            `json:"payment_terms,omitempty"`
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type transitionRequest struct {
	Status  document.Status `json:"status"`
	Payment *paymentRequest `json:"payment,omitempty"`
}

type totalsRequest struct {
	LineItems []lineItemRequest `json:"line_items"`
	TaxRate   decimal.Decimal   `json:"tax_rate"`
	Discount  decimal.Decimal   `json:"discount"`
}

func toLineItems(reqs []lineItemRequest) []document.LineItem {
	items := make([]document.LineItem, len(reqs))
	for i, r := range reqs {
		items[i] = document.LineItem{
			Description: r.Description,
			Quantity:    r.Quantity,
			UnitPrice:   r.UnitPrice,
			Category:    r.Category,
		}

		if r.InventoryRef != nil {
			items[i].InventoryRef = &inventory.Ref{
				ItemID: r.InventoryRef.ItemID,
				Name:   r.InventoryRef.Name,
				SKU:    r.InventoryRef.SKU,
			}
		}
	}

	return items
}

func (r createDocumentRequest) draft() document.Draft {
	return document.Draft{
		CustomerID:   r.CustomerID,
		JobID:        r.JobID,
		LineItems:    toLineItems(r.LineItems),
		TaxRate:      r.TaxRate,
		Discount:     r.Discount,
		Notes:        r.Notes,
		ExpiresAt:    r.ExpiresAt,
		DueDate:      r.DueDate,
		PaymentTerms: r.PaymentTerms,
	}
}

func (r updateDocumentRequest) patch() document.Patch {
	p := document.Patch{
		CustomerID:   r.CustomerID,
		JobID:        r.JobID,
		TaxRate:      r.TaxRate,
		Discount:     r.Discount,
		Notes:        r.Notes,
		ExpiresAt:    r.ExpiresAt,
		DueDate:      r.DueDate,
		PaymentTerms: r.PaymentTerms,
	}

	if r.LineItems != nil {
		items := toLineItems(*r.LineItems)
		p.LineItems = &items
	}

	return p
}
