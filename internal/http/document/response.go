package document

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tradebooks/internal/document"
)

type lineItemResponse struct {
	Description  string            `json:"description"`
	Quantity     string            `json:"quantity"`
	UnitPrice    string            `json:"unit_price"`
	Category     document.Category `json:"category"`
	Extension    string            `json:"extension"`
	InventoryRef *inventoryRefDTO  `json:"inventory_ref,omitempty"`
}

type documentResponse struct {
	ID         uuid.UUID          `json:"id"`
	Kind       document.Kind      `json:"kind"`
	Number     string             `json:"number"`
	CustomerID uuid.UUID          `json:"customer_id"`
	JobID      *uuid.UUID         `json:"job_id,omitempty"`
	LineItems  []lineItemResponse `json:"line_items"`
	TaxRate    string             `json:"tax_rate"`
	Discount   string             `json:"discount"`
	Notes      string             `json:"notes"`
	Status     document.Status    `json:"status"`
	Subtotal   string             `json:"subtotal"`
	TaxAmount  string             `json:"tax_amount"`
	Total      string             `json:"total"`

	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	DueDate          *time.Time `json:"due_date,omitempty"`
	PaymentTerms     string     `json:"payment_terms,omitempty"`
	PaidAmount       *string    `json:"paid_amount,omitempty"`
	BalanceDue       *string    `json:"balance_due,omitempty"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	SourceEstimateID *uuid.UUID `json:"source_estimate_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type totalsResponse struct {
	Subtotal        string `json:"subtotal"`
	Discount        string `json:"discount"`
	TaxableBase     string `json:"taxable_base"`
	TaxAmount       string `json:"tax_amount"`
	Total           string `json:"total"`
	DiscountClamped bool   `json:"discount_clamped,omitempty"`
}

func toResponse(doc *document.Document, calc *document.Calculator) documentResponse {
	resp := documentResponse{
		ID:               doc.ID,
		Kind:             doc.Kind,
		Number:           doc.Number,
		CustomerID:       doc.CustomerID,
		JobID:            doc.JobID,
		LineItems:        make([]lineItemResponse, len(doc.LineItems)),
		TaxRate:          doc.TaxRate.String(),
		Discount:         doc.Discount.StringFixed(2),
		Notes:            doc.Notes,
		Status:           doc.Status,
		Subtotal:         doc.Subtotal.StringFixed(2),
		TaxAmount:        doc.TaxAmount.StringFixed(2),
		Total:            doc.Total.StringFixed(2),
		ExpiresAt:        doc.ExpiresAt,
		DueDate:          doc.DueDate,
		PaymentTerms:     doc.PaymentTerms,
		PaidAt:           doc.PaidAt,
		SourceEstimateID: doc.SourceEstimateID,
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}

	if doc.Kind == document.KindInvoice {
		paid := doc.PaidAmount.StringFixed(2)
		balance := doc.BalanceDue().StringFixed(2)
		resp.PaidAmount = &paid
		resp.BalanceDue = &balance
	}

	for i, li := range doc.LineItems {
		resp.LineItems[i] = lineItemResponse{
			Description: li.Description,
			Quantity:    li.Quantity.String(),
			UnitPrice:   li.UnitPrice.StringFixed(2),
			Category:    li.Category,
			Extension:   calc.Extension(li).StringFixed(2),
		}

		if ref := li.InventoryRef; ref != nil {
			resp.LineItems[i].InventoryRef = &inventoryRefDTO{ItemID: ref.ItemID, Name: ref.Name, SKU: ref.SKU}
		}
	}

	return resp
}

func toResponseList(docs []*document.Document, calc *document.Calculator) []documentResponse {
	resp := make([]documentResponse, len(docs))
	for i, d := range docs {
		resp[i] = toResponse(d, calc)
	}

	return resp
}

func toTotalsResponse(t document.Totals) totalsResponse {
	return totalsResponse{
		Subtotal:        t.Subtotal.StringFixed(2),
		Discount:        t.Discount.StringFixed(2),
		TaxableBase:     t.TaxableBase.StringFixed(2),
		TaxAmount:       t.TaxAmount.StringFixed(2),
		Total:           t.Total.StringFixed(2),
		DiscountClamped: t.DiscountClamped,
	}
}
