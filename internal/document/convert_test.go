package document_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tradebooks/internal/document"
	"github.com/MrJamesThe3rd/tradebooks/internal/inventory"
)

func TestConverter_Convert(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	job := uuid.New()
	filter := uuid.New()

	est := &document.Document{
		ID:         uuid.New(),
		Kind:       document.KindEstimate,
		Number:     "EST-000007",
		CustomerID: uuid.New(),
		JobID:      &job,
		LineItems: []document.LineItem{
			line("Labor", "4", "65", document.CategoryLabor),
			line("Filter", "2", "12.50", document.CategoryMaterials),
			line("Mileage", "30", "0.67", document.CategoryTravel),
		},
		TaxRate:  dec("8.5"),
		Discount: dec("20"),
		Notes:    "Replace furnace filters",
		Status:   document.StatusApproved,
	}
	est.LineItems[1].InventoryRef = &inventory.Ref{ItemID: filter, Name: "Filter", SKU: "FLT-1"}

	conv := document.NewConverter(0, func() time.Time { return now })

	inv, err := conv.Convert(est)
	require.NoError(t, err)

	assert.Equal(t, document.KindInvoice, inv.Kind)
	assert.Equal(t, document.StatusDraft, inv.Status)
	assert.NotEqual(t, est.ID, inv.ID)
	assert.Equal(t, est.CustomerID, inv.CustomerID)
	require.NotNil(t, inv.JobID)
	assert.Equal(t, job, *inv.JobID)
	assert.True(t, inv.Discount.Equal(dec("20")))
	assert.True(t, inv.TaxRate.Equal(dec("8.5")))
	assert.Equal(t, est.Notes, inv.Notes)
	assert.True(t, inv.PaidAmount.IsZero())
	assert.Equal(t, "Net 30", inv.PaymentTerms)
	require.NotNil(t, inv.DueDate)
	assert.True(t, now.AddDate(0, 0, 30).Equal(*inv.DueDate))
	require.NotNil(t, inv.SourceEstimateID)
	assert.Equal(t, est.ID, *inv.SourceEstimateID)

	require.Len(t, inv.LineItems, 3)
	for i, li := range inv.LineItems {
		assert.Equal(t, est.LineItems[i].Description, li.Description)
		assert.True(t, est.LineItems[i].Quantity.Equal(li.Quantity))
		assert.True(t, est.LineItems[i].UnitPrice.Equal(li.UnitPrice))
		assert.Nil(t, li.InventoryRef)
	}

	// the estimate is untouched
	assert.Equal(t, document.StatusApproved, est.Status)
	assert.NotNil(t, est.LineItems[1].InventoryRef)

	inv.LineItems[0].Description = "changed"
	*inv.JobID = uuid.New()
	assert.Equal(t, "Labor", est.LineItems[0].Description)
	assert.Equal(t, job, *est.JobID)
}

func TestConverter_Convert_Rejects(t *testing.T) {
	conv := document.NewConverter(14, time.Now)
	assert.Equal(t, "Net 14", conv.PaymentTerms())

	for _, status := range []document.Status{document.StatusDraft, document.StatusSent, document.StatusRejected, document.StatusExpired} {
		t.Run(string(status), func(t *testing.T) {
			_, err := conv.Convert(&document.Document{ID: uuid.New(), Kind: document.KindEstimate, Status: status})

			var ce *document.ConversionError
			assert.ErrorAs(t, err, &ce)
		})
	}

	t.Run("Invoice", func(t *testing.T) {
		_, err := conv.Convert(&document.Document{ID: uuid.New(), Kind: document.KindInvoice, Status: document.StatusApproved})

		var ce *document.ConversionError
		assert.ErrorAs(t, err, &ce)
	})
}
