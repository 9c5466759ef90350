package document

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DefaultNetTermsDays = 30

// Converter builds a draft invoice from an approved estimate. It does not
// touch the estimate and does not check for earlier conversions.
type Converter struct {
	netTermsDays int
	now          func() time.Time
}

func NewConverter(netTermsDays int, now func() time.Time) *Converter {
	if netTermsDays <= 0 {
		netTermsDays = DefaultNetTermsDays
	}

	if now == nil {
		now = time.Now
	}

	return &Converter{netTermsDays: netTermsDays, now: now}
}

func (c *Converter) NetTermsDays() int { return c.netTermsDays }

// PaymentTerms is the label written on converted invoices.
func (c *Converter) PaymentTerms() string {
	return fmt.Sprintf("Net %d", c.netTermsDays)
}

func (c *Converter) Convert(est *Document) (*Document, error) {
	if est.Kind != KindEstimate {
		return nil, &ConversionError{EstimateID: est.ID, Reason: "document is not an estimate"}
	}

	if est.Status != StatusApproved {
		return nil, &ConversionError{EstimateID: est.ID, Reason: fmt.Sprintf("estimate is %s, not approved", est.Status)}
	}

	now := c.now().UTC()
	due := now.AddDate(0, 0, c.netTermsDays)
	source := est.ID

	items := CloneLineItems(est.LineItems)
	for i := range items {
		items[i].InventoryRef = nil
	}

	return &Document{
		ID:               uuid.New(),
		Kind:             KindInvoice,
		CustomerID:       est.CustomerID,
		JobID:            cloneUUID(est.JobID),
		LineItems:        items,
		TaxRate:          est.TaxRate,
		Discount:         est.Discount,
		Notes:            est.Notes,
		Status:           StatusDraft,
		DueDate:          &due,
		PaymentTerms:     c.PaymentTerms(),
		PaidAmount:       decimal.Zero,
		SourceEstimateID: &source,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}
